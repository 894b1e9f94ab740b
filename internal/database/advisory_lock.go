package database

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReplayLockID is the advisory lock identifier held while a tracking report
// is replayed, so two replays cannot interleave their statements.
const ReplayLockID int64 = 723004117

// TableLockKey derives a stable advisory lock key for a tracked table.
func TableLockKey(schema, table string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(schema))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(table))

	return int64(h.Sum64()) //nolint:gosec // wraparound is fine for a lock key
}

// LockTableTx blocks until the transaction-scoped advisory lock for the
// table is held. PostgreSQL releases it when tx ends.
func LockTableTx(ctx context.Context, tx pgx.Tx, schema, table string) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", TableLockKey(schema, table)); err != nil {
		return fmt.Errorf("locking %s.%s: %w", schema, table, err)
	}

	return nil
}

// LockHandle wraps a dedicated pooled connection that holds a
// session-level advisory lock. Call Release to unlock and return
// the connection to the pool.
type LockHandle struct {
	conn *pgxpool.Conn
	id   int64
}

// TryAcquireLock attempts to acquire the session-level advisory lock id.
// Returns ErrLockNotAcquired if another session holds it. The caller must
// call handle.Release() when done.
func TryAcquireLock(ctx context.Context, pool *pgxpool.Pool, id int64) (*LockHandle, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}

	var acquired bool

	err = conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", id).Scan(&acquired)
	if err != nil {
		conn.Release()

		return nil, fmt.Errorf("executing pg_try_advisory_lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return nil, ErrLockNotAcquired
	}

	return &LockHandle{conn: conn, id: id}, nil
}

// Conn exposes the locked connection so work can run on the same session.
func (h *LockHandle) Conn() *pgxpool.Conn {
	if h == nil {
		return nil
	}

	return h.conn
}

// Release unlocks the advisory lock and returns the connection to the pool.
// Safe to call multiple times.
func (h *LockHandle) Release(ctx context.Context) error {
	if h == nil || h.conn == nil {
		return nil
	}

	_, err := h.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", h.id)
	h.conn.Release()
	h.conn = nil

	if err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}

	return nil
}
