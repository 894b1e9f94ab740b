package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/table-tracking/internal/config"
)

func newFlagCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("format", "", "")

	return cmd
}

func TestMergeFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flags   map[string]string
		check   func(t *testing.T, cfg *config.Config)
		wantErr bool
	}{
		{
			name:  "database url overrides config",
			flags: map[string]string{"database-url": "postgres://test:5432/db"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "postgres://test:5432/db", cfg.DatabaseURL)
			},
		},
		{
			name:  "log level overrides config",
			flags: map[string]string{"log-level": "debug"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
		{
			name:  "format overrides config",
			flags: map[string]string{"format": "json"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "json", cfg.Format)
			},
		},
		{
			name: "unchanged flags preserve config",
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
				assert.Equal(t, config.DefaultFormat, cfg.Format)
				assert.Empty(t, cfg.DatabaseURL)
			},
		},
		{
			name:    "invalid log level",
			flags:   map[string]string{"log-level": "loud"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			flags:   map[string]string{"format": "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.New()
			cmd := newFlagCmd()

			for k, v := range tt.flags {
				require.NoError(t, cmd.Flags().Set(k, v))
			}

			err := mergeFlags(cmd, cfg)
			if tt.wantErr {
				require.ErrorIs(t, err, config.ErrInvalidValue)

				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_missingFile_usesDefaults(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	cmd := newFlagCmd()
	require.NoError(t, cmd.Flags().Lookup("config").Value.Set("nonexistent.yml"))

	err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, AppConfig)
	assert.Equal(t, config.DefaultSchema, AppConfig.DefaultSchema)
	assert.Equal(t, config.DefaultListenAddr, AppConfig.ListenAddr)
}

func TestLoadConfig_validFile_loadsValues(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "test-config.yml")

	yamlContent := "default_schema: audit\nlisten_addr: \":9090\"\ndefault_statements: INSERT,DELETE\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0o600))

	cmd := newFlagCmd()
	require.NoError(t, cmd.Flags().Set("config", cfgPath))
	require.NoError(t, cmd.Flags().Set("format", "json"))

	err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, AppConfig)
	assert.Equal(t, "audit", AppConfig.DefaultSchema)
	assert.Equal(t, ":9090", AppConfig.ListenAddr)
	assert.Equal(t, "INSERT,DELETE", AppConfig.DefaultStatements)
	assert.Equal(t, "json", AppConfig.Format)
}

func TestLoadConfig_invalidFile_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad-config.yml")

	require.NoError(t, os.WriteFile(cfgPath, []byte("lock_timeout: [unclosed"), 0o600))

	cmd := newFlagCmd()
	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestRootCmd_registersCommands(t *testing.T) {
	t.Parallel()

	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{
		"serve", "tables", "versions", "create", "delete", "activate", "deactivate",
		"report", "export", "snapshot", "analyze", "exec",
	} {
		assert.Contains(t, names, want)
	}
}
