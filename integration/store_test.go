//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/table-tracking/internal/store"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

func setupStore(t *testing.T) (*pgxpool.Pool, *store.Store) {
	t.Helper()

	pool := SetupPostgres(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE users (
			id    serial PRIMARY KEY,
			email text NOT NULL,
			name  text
		);
		CREATE UNIQUE INDEX users_email_idx ON users (email);
		CREATE TABLE orders (id serial PRIMARY KEY, user_id int);
		CREATE VIEW active_users AS SELECT id, email FROM users;
		CREATE MATERIALIZED VIEW user_emails AS SELECT email FROM users;
	`)
	require.NoError(t, err)

	st := store.New(pool)
	require.NoError(t, st.EnsureTable(ctx))
	require.NoError(t, st.EnsureTable(ctx), "EnsureTable is idempotent")

	return pool, st
}

func TestStore_versionLifecycle(t *testing.T) {
	t.Parallel()

	_, st := setupStore(t)
	ctx := context.Background()

	last, err := st.LastVersion(ctx, "public", "users")
	require.NoError(t, err)
	assert.Equal(t, -1, last)

	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema:      "public",
		Table:       "users",
		Version:     1,
		TrackingSet: "CREATE TABLE,INSERT,DELETE",
		User:        "alice",
	}))

	err = st.CreateVersion(ctx, store.CreateParams{Schema: "public", Table: "users", Version: 1})
	require.ErrorIs(t, err, store.ErrVersionExists)

	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema:      "public",
		Table:       "users",
		Version:     2,
		TrackingSet: "INSERT",
	}))

	last, err = st.LastVersion(ctx, "public", "users")
	require.NoError(t, err)
	assert.Equal(t, 2, last)

	versions, err := st.ListVersions(ctx, "public", "users")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Number, "newest first")
	assert.True(t, versions[0].Active)

	tracked, err := st.IsTracked(ctx, "public", "users")
	require.NoError(t, err)
	assert.True(t, tracked)

	require.NoError(t, st.SetActive(ctx, "public", "users", 2, false))

	data, err := st.TrackedData(ctx, "public", "users", -1)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Number)
	assert.False(t, data.Active)

	require.NoError(t, st.DeleteVersion(ctx, "public", "users", 2))
	require.ErrorIs(t, st.DeleteVersion(ctx, "public", "users", 2), store.ErrVersionNotFound)
	require.ErrorIs(t, st.SetActive(ctx, "public", "users", 9, true), store.ErrVersionNotFound)

	require.NoError(t, st.DeleteTracking(ctx, "public", "users"))
	require.ErrorIs(t, st.DeleteTracking(ctx, "public", "users"), store.ErrNotTracked)

	_, err = st.TrackedData(ctx, "public", "users", 1)
	require.ErrorIs(t, err, store.ErrVersionNotFound)
}

func TestStore_CreateVersion_capturesStructure(t *testing.T) {
	t.Parallel()

	_, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema: "public", Table: "users", Version: 1, TrackingSet: "INSERT", User: "alice",
	}))

	data, err := st.TrackedData(ctx, "public", "users", 1)
	require.NoError(t, err)

	require.Len(t, data.DDLog, 2)
	assert.Contains(t, data.DDLog[0].Statement, "DROP TABLE IF EXISTS")
	assert.Contains(t, data.DDLog[1].Statement, "CREATE TABLE")
	assert.Equal(t, "alice", data.DDLog[0].Username)
	assert.Empty(t, data.DMLog)

	require.Len(t, data.Snapshot.Columns, 3)
	assert.Equal(t, "id", data.Snapshot.Columns[0].Name)
	assert.False(t, data.Snapshot.Columns[1].Nullable)
	assert.True(t, data.Snapshot.Columns[2].Nullable)

	names := make([]string, 0, len(data.Snapshot.Indexes))
	for _, idx := range data.Snapshot.Indexes {
		names = append(names, idx.Name)
	}

	assert.Contains(t, names, "users_email_idx")

	f, err := tracking.ParseFilter("", "", "", data.CreatedAt, time.Now())
	require.NoError(t, err)
	assert.Len(t, tracking.Entries(data, tracking.LogSchema, f), 2, "default report window starts at creation")
}

func TestStore_CreateVersion_emptyUserUsesRole(t *testing.T) {
	t.Parallel()

	_, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{Schema: "public", Table: "orders", Version: 1}))

	data, err := st.TrackedData(ctx, "public", "orders", 1)
	require.NoError(t, err)
	require.NotEmpty(t, data.DDLog)
	assert.Equal(t, testUser, data.DDLog[0].Username)
}

func TestStore_Record(t *testing.T) {
	t.Parallel()

	_, st := setupStore(t)
	ctx := context.Background()
	ref := tracking.TableRef{Schema: "public", Table: "users"}

	ok, err := st.Record(ctx, ref, tracking.Insert, "alice", "INSERT INTO users (email) VALUES ('a');")
	require.NoError(t, err)
	assert.False(t, ok, "untracked table")

	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema: "public", Table: "users", Version: 1, TrackingSet: "INSERT,ALTER TABLE",
	}))

	ok, err = st.Record(ctx, ref, tracking.Insert, "alice", "INSERT INTO users (email) VALUES ('a');")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.Record(ctx, ref, tracking.Delete, "alice", "DELETE FROM users;")
	require.NoError(t, err)
	assert.False(t, ok, "kind outside the tracking set")

	ok, err = st.Record(ctx, ref, tracking.AlterTable, "bob", "ALTER TABLE users ADD COLUMN age int;")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, st.SetActive(ctx, "public", "users", 1, false))

	ok, err = st.Record(ctx, ref, tracking.Insert, "alice", "INSERT INTO users (email) VALUES ('b');")
	require.NoError(t, err)
	assert.False(t, ok, "inactive version")

	data, err := st.TrackedData(ctx, "public", "users", 1)
	require.NoError(t, err)
	require.Len(t, data.DMLog, 1)
	assert.Equal(t, "alice", data.DMLog[0].Username)
	require.Len(t, data.DDLog, 3)
	assert.Equal(t, "bob", data.DDLog[2].Username)
}

func TestStore_ChangeTrackingData(t *testing.T) {
	t.Parallel()

	_, st := setupStore(t)
	ctx := context.Background()
	ref := tracking.TableRef{Schema: "public", Table: "users"}

	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema: "public", Table: "users", Version: 1, TrackingSet: "INSERT",
	}))

	for _, email := range []string{"a", "b", "c"} {
		_, err := st.Record(ctx, ref, tracking.Insert, "alice", "INSERT INTO users (email) VALUES ('"+email+"');")
		require.NoError(t, err)
	}

	data, err := st.TrackedData(ctx, "public", "users", 1)
	require.NoError(t, err)

	entries, err := tracking.DeleteLogEntry(data.DMLog, 1)
	require.NoError(t, err)
	require.NoError(t, st.ChangeTrackingData(ctx, "public", "users", 1, tracking.DML, entries))

	data, err = st.TrackedData(ctx, "public", "users", 1)
	require.NoError(t, err)
	require.Len(t, data.DMLog, 2)
	assert.Contains(t, data.DMLog[0].Statement, "'a'")
	assert.Contains(t, data.DMLog[1].Statement, "'c'")

	err = st.ChangeTrackingData(ctx, "public", "users", 7, tracking.DML, nil)
	require.ErrorIs(t, err, store.ErrVersionNotFound)
}

func TestStore_catalog(t *testing.T) {
	t.Parallel()

	_, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema: "public", Table: "users", Version: 1, TrackingSet: "INSERT",
	}))

	untracked, err := st.UntrackedTables(ctx, "public")
	require.NoError(t, err)
	assert.Equal(t, []store.Relation{
		{Name: "active_users", IsView: true},
		{Name: "orders"},
	}, untracked)

	tracked, err := st.ListTrackedTables(ctx, "public")
	require.NoError(t, err)
	require.Len(t, tracked, 1)
	assert.Equal(t, "users", tracked[0].Table)

	isView, err := st.IsView(ctx, "public", "active_users")
	require.NoError(t, err)
	assert.True(t, isView)

	isView, err = st.IsView(ctx, "public", "orders")
	require.NoError(t, err)
	assert.False(t, isView)

	isView, err = st.IsView(ctx, "public", "user_emails")
	require.NoError(t, err)
	assert.False(t, isView)

	err = st.CreateVersion(ctx, store.CreateParams{Schema: "public", Table: "user_emails", Version: 1})
	require.ErrorIs(t, err, store.ErrUnsupportedRelation)

	owner, err := st.IndexTable(ctx, tracking.TableRef{Table: "users_email_idx"})
	require.NoError(t, err)
	assert.Equal(t, tracking.TableRef{Schema: "public", Table: "users"}, owner)

	_, err = st.IndexTable(ctx, tracking.TableRef{Schema: "public", Table: "missing_idx"})
	require.ErrorIs(t, err, store.ErrRelationNotFound)
}

func TestStore_Rename(t *testing.T) {
	t.Parallel()

	_, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateVersion(ctx, store.CreateParams{
		Schema: "public", Table: "orders", Version: 1, TrackingSet: "RENAME TABLE",
	}))
	require.NoError(t, st.Rename(ctx, "public", "orders", "purchases"))

	last, err := st.LastVersion(ctx, "public", "purchases")
	require.NoError(t, err)
	assert.Equal(t, 1, last)

	last, err = st.LastVersion(ctx, "public", "orders")
	require.NoError(t, err)
	assert.Equal(t, -1, last)
}
