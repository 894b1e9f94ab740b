//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/table-tracking/internal/database"
	"github.com/aqasim81/table-tracking/internal/store"
	"github.com/aqasim81/table-tracking/internal/tracker"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTracker_Execute_logsTrackedStatements(t *testing.T) {
	t.Parallel()

	pool, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema: "public", Table: "users", Version: 1, TrackingSet: "INSERT,ALTER TABLE,DROP INDEX",
	}))

	tr := tracker.New(tracker.PoolSessions(pool), st, discardLogger())

	res, err := tr.Execute(ctx, "alice", `
		INSERT INTO users (email) VALUES ('a@example.com');
		/*NOTRACK*/ INSERT INTO users (email) VALUES ('b@example.com');
		DELETE FROM users WHERE email = 'b@example.com';
		ALTER TABLE users ADD COLUMN age int;
		DROP INDEX users_email_idx;
		INSERT INTO orders (user_id) VALUES (1);
	`)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Statements)
	assert.Equal(t, []tracker.Recorded{
		{Table: tracking.TableRef{Schema: "public", Table: "users"}, Kind: tracking.Insert},
		{Table: tracking.TableRef{Schema: "public", Table: "users"}, Kind: tracking.AlterTable},
		{Table: tracking.TableRef{Schema: "public", Table: "users"}, Kind: tracking.DropIndex},
	}, res.Recorded)

	data, err := st.TrackedData(ctx, "public", "users", 1)
	require.NoError(t, err)
	require.Len(t, data.DMLog, 1)
	assert.Contains(t, data.DMLog[0].Statement, "a@example.com")
	assert.Equal(t, "alice", data.DMLog[0].Username)
	require.Len(t, data.DDLog, 4)
	assert.Contains(t, data.DDLog[2].Statement, "ADD COLUMN age")
	assert.Contains(t, data.DDLog[3].Statement, "DROP INDEX")

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestTracker_Execute_followsSearchPath(t *testing.T) {
	t.Parallel()

	pool, st := setupStore(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `CREATE SCHEMA audit; CREATE TABLE audit.events (id int);`)
	require.NoError(t, err)
	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema: "audit", Table: "events", Version: 1, TrackingSet: "INSERT",
	}))

	tr := tracker.New(tracker.PoolSessions(pool), st, discardLogger())

	res, err := tr.Execute(ctx, "", `
		SET search_path TO audit;
		INSERT INTO events VALUES (1);
	`)
	require.NoError(t, err)
	require.Len(t, res.Recorded, 1)
	assert.Equal(t, tracking.TableRef{Schema: "audit", Table: "events"}, res.Recorded[0].Table)

	data, err := st.TrackedData(ctx, "audit", "events", 1)
	require.NoError(t, err)
	require.Len(t, data.DMLog, 1)
	assert.Equal(t, testUser, data.DMLog[0].Username)
}

func TestTracker_Execute_resetsSessionBeforeReuse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cfg, err := database.PoolConfig(SetupPostgresDSN(t))
	require.NoError(t, err)

	cfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	st := store.New(pool)
	require.NoError(t, st.EnsureTable(ctx))

	_, err = pool.Exec(ctx, `CREATE SCHEMA audit; CREATE TABLE audit.events (id int);`)
	require.NoError(t, err)
	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema: "audit", Table: "events", Version: 1, TrackingSet: "INSERT",
	}))

	tr := tracker.New(tracker.PoolSessions(pool), st, discardLogger())

	_, err = tr.Execute(ctx, "alice", `SET search_path TO audit; SET lock_timeout = '1s';`)
	require.NoError(t, err)

	var searchPath, lockTimeout string
	require.NoError(t, pool.QueryRow(ctx, `SELECT current_setting('search_path'), current_setting('lock_timeout')`).
		Scan(&searchPath, &lockTimeout))
	assert.Equal(t, `"$user", public`, searchPath)
	assert.Equal(t, "0", lockTimeout)

	_, err = tr.Execute(ctx, "alice", `INSERT INTO audit.events VALUES (1);`)
	require.NoError(t, err)

	data, err := st.TrackedData(ctx, "audit", "events", 1)
	require.NoError(t, err)
	assert.Len(t, data.DMLog, 1)
}

func TestTracker_Execute_renameMovesTracking(t *testing.T) {
	t.Parallel()

	pool, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema: "public", Table: "orders", Version: 1, TrackingSet: "RENAME TABLE",
	}))

	tr := tracker.New(tracker.PoolSessions(pool), st, discardLogger())

	_, err := tr.Execute(ctx, "bob", `ALTER TABLE orders RENAME TO purchases;`)
	require.NoError(t, err)

	data, err := st.TrackedData(ctx, "public", "purchases", 1)
	require.NoError(t, err)
	require.Len(t, data.DDLog, 3)
	assert.Contains(t, data.DDLog[2].Statement, "RENAME TO purchases")

	tracked, err := st.IsTracked(ctx, "public", "orders")
	require.NoError(t, err)
	assert.False(t, tracked)
}

func TestTracker_Execute_stopsAtFailingStatement(t *testing.T) {
	t.Parallel()

	pool, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema: "public", Table: "users", Version: 1, TrackingSet: "INSERT",
	}))

	tr := tracker.New(tracker.PoolSessions(pool), st, discardLogger())

	res, err := tr.Execute(ctx, "alice", `
		INSERT INTO users (email) VALUES ('a@example.com');
		INSERT INTO missing_table VALUES (1);
		INSERT INTO users (email) VALUES ('c@example.com');
	`)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Statements)
	assert.Len(t, res.Recorded, 1)

	data, err := st.TrackedData(ctx, "public", "users", 1)
	require.NoError(t, err)
	assert.Len(t, data.DMLog, 1)
}
