package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/table-tracking/internal/executor"
	"github.com/aqasim81/table-tracking/internal/tracker"
	"github.com/aqasim81/table-tracking/internal/web"
)

const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var serveCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "serve",
	Short: "Serve the tracking web UI",
	Long: `Start the HTTP server with the tracking pages: tracked and untracked
tables per schema, versions, reports, snapshots and exports.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	serveCmd.Flags().String("listen-addr", "", "address to listen on (overrides listen_addr)")
	serveCmd.Flags().String("user-header", "", "request header carrying the user name set by an auth proxy")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	logger := newLogger(cmd)

	addr := cfg.ListenAddr
	if cmd.Flags().Changed("listen-addr") {
		addr, _ = cmd.Flags().GetString("listen-addr")
	}

	userHeader, _ := cmd.Flags().GetString("user-header")

	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	h := web.New(
		st,
		tracker.New(tracker.PoolSessions(pool), st, logger),
		executor.New(pool,
			executor.WithLockTimeout(cfg.LockTimeout),
			executor.WithStatementTimeout(cfg.StatementTimeout),
		),
		newAnalyzer(),
		web.WithLogger(logger),
		web.WithDefaultSchema(cfg.DefaultSchema),
		web.WithDefaultStatements(cfg.DefaultStatements),
		web.WithUser(headerUser(userHeader)),
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("server starting", "addr", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	logger.Info("server stopped")

	return nil
}

// headerUser reads the acting user from name. An empty name leaves the
// user to the database role.
func headerUser(name string) func(*http.Request) string {
	return func(r *http.Request) string {
		if name == "" {
			return ""
		}

		return r.Header.Get(name)
	}
}
