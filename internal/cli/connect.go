package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/aqasim81/table-tracking/internal/config"
	"github.com/aqasim81/table-tracking/internal/database"
	"github.com/aqasim81/table-tracking/internal/store"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New( //nolint:gochecknoglobals // sentinel error
	"database URL is required (set --database-url, TRACK_DATABASE_URL, or database_url in config)",
)

// errInvalidArg is returned for malformed positional arguments.
var errInvalidArg = errors.New("invalid argument")

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

func connectDB(ctx context.Context, cfg *config.Config, log io.Writer) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errDatabaseURLRequired
	}

	fmt.Fprintf(log, "Connecting to %s\n", config.RedactURL(cfg.DatabaseURL))

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return pool, nil
}

// openStore connects and makes sure the tracking table exists. The caller
// closes the returned pool.
func openStore(cmd *cobra.Command) (*pgxpool.Pool, *store.Store, error) {
	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, AppConfig, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	st := store.New(pool)
	if err := st.EnsureTable(ctx); err != nil {
		pool.Close()

		return nil, nil, fmt.Errorf("preparing tracking table: %w", err)
	}

	return pool, st, nil
}

func parseVersionArg(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: version %q", errInvalidArg, raw)
	}

	return v, nil
}
