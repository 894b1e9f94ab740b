package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// timeoutSettings returns the statements that apply the configured lock
// and statement timeouts. With local set they last until the transaction
// ends.
func (e *Executor) timeoutSettings(local bool) []string {
	verb := "SET"
	if local {
		verb = "SET LOCAL"
	}

	var out []string

	add := func(name string, d time.Duration) {
		if d > 0 {
			out = append(out, fmt.Sprintf("%s %s = '%dms'", verb, name, d.Milliseconds()))
		}
	}

	add("lock_timeout", e.lockTimeout)
	add("statement_timeout", e.statementTimeout)

	return out
}

func applySettings(ctx context.Context, q execer, settings []string) error {
	for _, s := range settings {
		if _, err := q.Exec(ctx, s); err != nil {
			return fmt.Errorf("applying %q: %w", s, err)
		}
	}

	return nil
}

// runOnPool runs fn in one transaction, or on a single connection in
// autocommit mode when transactional is false. Timeouts apply either way.
func (e *Executor) runOnPool(ctx context.Context, transactional bool, fn func(q execer) error) error {
	if transactional {
		//nolint:wrapcheck // errors from fn are already wrapped
		return pgx.BeginFunc(ctx, e.pool, func(tx pgx.Tx) error {
			if err := applySettings(ctx, tx, e.timeoutSettings(true)); err != nil {
				return err
			}

			return fn(tx)
		})
	}

	//nolint:wrapcheck // errors from fn are already wrapped
	return e.pool.AcquireFunc(ctx, func(conn *pgxpool.Conn) error {
		if err := applySettings(ctx, conn, e.timeoutSettings(false)); err != nil {
			return err
		}

		defer conn.Exec(ctx, "RESET lock_timeout; RESET statement_timeout") //nolint:errcheck // connection returns to the pool either way

		return fn(conn)
	})
}
