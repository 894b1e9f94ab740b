package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultListenAddr       = ":8080"
	DefaultSchema           = "public"
	DefaultLockTimeout      = 5 * time.Second
	DefaultStatementTimeout = 30 * time.Second
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultFormat           = "text"
	DefaultStatements       = "ALTER TABLE,RENAME TABLE,CREATE TABLE,DROP TABLE," +
		"ALTER VIEW,CREATE VIEW,DROP VIEW,CREATE INDEX,DROP INDEX," +
		"INSERT,UPDATE,DELETE,TRUNCATE"
)

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL       string
	ListenAddr        string
	DefaultSchema     string
	DefaultStatements string
	LockTimeout       time.Duration
	StatementTimeout  time.Duration
	LogLevel          string
	LogFormat         string
	Format            string

	// DisabledRules lists analyzer rule IDs that are not run.
	DisabledRules []string
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseURL       string   `yaml:"database_url"`
	ListenAddr        string   `yaml:"listen_addr"`
	DefaultSchema     string   `yaml:"default_schema"`
	DefaultStatements string   `yaml:"default_statements"`
	LockTimeout       string   `yaml:"lock_timeout"`
	StatementTimeout  string   `yaml:"statement_timeout"`
	LogLevel          string   `yaml:"log_level"`
	LogFormat         string   `yaml:"log_format"`
	Format            string   `yaml:"format"`
	DisabledRules     []string `yaml:"disabled_rules"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		ListenAddr:        DefaultListenAddr,
		DefaultSchema:     DefaultSchema,
		DefaultStatements: DefaultStatements,
		LockTimeout:       DefaultLockTimeout,
		StatementTimeout:  DefaultStatementTimeout,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
		Format:            DefaultFormat,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	setString(&cfg.DatabaseURL, raw.DatabaseURL)
	setString(&cfg.ListenAddr, raw.ListenAddr)
	setString(&cfg.DefaultSchema, raw.DefaultSchema)
	setString(&cfg.DefaultStatements, raw.DefaultStatements)
	setString(&cfg.Format, raw.Format)

	cfg.DisabledRules = raw.DisabledRules

	if raw.LockTimeout != "" {
		d, err := time.ParseDuration(raw.LockTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing lock_timeout %q: %w", raw.LockTimeout, err)
		}

		cfg.LockTimeout = d
	}

	if raw.StatementTimeout != "" {
		d, err := time.ParseDuration(raw.StatementTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing statement_timeout %q: %w", raw.StatementTimeout, err)
		}

		cfg.StatementTimeout = d
	}

	if raw.LogLevel != "" {
		if _, err := ParseLevel(raw.LogLevel); err != nil {
			return nil, err
		}

		cfg.LogLevel = strings.ToLower(raw.LogLevel)
	}

	if raw.LogFormat != "" {
		if raw.LogFormat != "text" && raw.LogFormat != "json" {
			return nil, fmt.Errorf("%w: log_format %q", ErrInvalidValue, raw.LogFormat)
		}

		cfg.LogFormat = raw.LogFormat
	}

	return cfg, nil
}

// MergeEnv overrides config fields from TRACK_* environment variables.
func MergeEnv(cfg *Config) {
	if v := os.Getenv("TRACK_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}

	if v := os.Getenv("TRACK_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	if v := os.Getenv("TRACK_DEFAULT_SCHEMA"); v != "" {
		cfg.DefaultSchema = v
	}

	if v := os.Getenv("TRACK_DEFAULT_STATEMENTS"); v != "" {
		cfg.DefaultStatements = v
	}

	if v := os.Getenv("TRACK_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LockTimeout = d
		}
	}

	if v := os.Getenv("TRACK_STATEMENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StatementTimeout = d
		}
	}

	if v := os.Getenv("TRACK_LOG_LEVEL"); v != "" {
		if _, err := ParseLevel(v); err == nil {
			cfg.LogLevel = strings.ToLower(v)
		}
	}

	if v, ok := os.LookupEnv("TRACK_DISABLED_RULES"); ok {
		cfg.DisabledRules = splitList(v)
	}
}

// splitList splits a comma-separated list, dropping blank items.
func splitList(v string) []string {
	var out []string

	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
