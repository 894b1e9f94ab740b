package tracker_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/table-tracking/internal/tracker"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

// --- Mocks ---

// MockStore is a mock for tracker.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Record(
	ctx context.Context, ref tracking.TableRef, kind tracking.Kind, user, statement string,
) (bool, error) {
	args := m.Called(ctx, ref, kind, user, statement)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Rename(ctx context.Context, schema, oldName, newName string) error {
	args := m.Called(ctx, schema, oldName, newName)
	return args.Error(0)
}

func (m *MockStore) IndexTable(ctx context.Context, index tracking.TableRef) (tracking.TableRef, error) {
	args := m.Called(ctx, index)
	//nolint:errcheck // type assertion in mock is fine
	return args.Get(0).(tracking.TableRef), args.Error(1)
}

// fakeDB is a session that records executed statements and answers the
// current_user and current_schema() lookups.
type fakeDB struct {
	executed []string
	err      error
	user     string
	schemas  []string
	lookups  int
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}

	f.executed = append(f.executed, sql)

	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if strings.Contains(sql, "current_user") {
		return fakeRow{value: f.user}
	}

	schema := "public"
	if f.lookups < len(f.schemas) {
		schema = f.schemas[f.lookups]
	}

	f.lookups++

	return fakeRow{value: schema}
}

type fakeRow struct {
	value string
}

func (r fakeRow) Scan(dest ...any) error {
	//nolint:errcheck // test helper
	*dest[0].(*string) = r.value

	return nil
}

func sessions(db *fakeDB) tracker.SessionFunc {
	return func(_ context.Context, fn func(tracker.Session) error) error {
		return fn(db)
	}
}

var users = tracking.TableRef{Schema: "public", Table: "users"}

// --- Tests ---

func TestExecute_recordsTrackedStatement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := &fakeDB{}
	st := new(MockStore)
	st.On("Record", ctx, users, tracking.Insert, "alice", "INSERT INTO users (id) VALUES (1);").Return(true, nil)
	st.On("Record", ctx, users, tracking.Update, "alice", "UPDATE users SET id = 2;").Return(false, nil)

	tr := tracker.New(sessions(db), st, nil)

	res, err := tr.Execute(ctx, "alice", "INSERT INTO users (id) VALUES (1); UPDATE users SET id = 2;")

	require.NoError(t, err)
	assert.Equal(t, 2, res.Statements)
	assert.Equal(t, []tracker.Recorded{{Table: users, Kind: tracking.Insert}}, res.Recorded)
	assert.Equal(t, []string{"INSERT INTO users (id) VALUES (1);", "UPDATE users SET id = 2;"}, db.executed)
	st.AssertExpectations(t)
}

func TestExecute_noTrackMarker_skipsRecording(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := &fakeDB{}
	st := new(MockStore)

	tr := tracker.New(sessions(db), st, nil)

	res, err := tr.Execute(ctx, "alice", "/*NOTRACK*/\nDELETE FROM public.users;")

	require.NoError(t, err)
	assert.Equal(t, 1, res.Statements)
	assert.Empty(t, res.Recorded)
	st.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_untrackableStatement_onlyExecutes(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	st := new(MockStore)

	res, err := tracker.New(sessions(db), st, nil).Execute(context.Background(), "alice", "SELECT 1;")

	require.NoError(t, err)
	assert.Equal(t, 1, res.Statements)
	st.AssertExpectations(t)
}

func TestExecute_dropIndex_resolvesOwnerBeforeExecuting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := &fakeDB{}
	st := new(MockStore)
	st.On("IndexTable", ctx, tracking.TableRef{Schema: "public", Table: "idx_users_email"}).Return(users, nil)
	st.On("Record", ctx, users, tracking.DropIndex, "bob", "DROP INDEX idx_users_email;").Return(true, nil)

	res, err := tracker.New(sessions(db), st, nil).Execute(ctx, "bob", "DROP INDEX idx_users_email;")

	require.NoError(t, err)
	assert.Equal(t, []tracker.Recorded{{Table: users, Kind: tracking.DropIndex}}, res.Recorded)
	st.AssertExpectations(t)
}

func TestExecute_renameTable_movesTracking(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := &fakeDB{}
	st := new(MockStore)
	stmt := "ALTER TABLE public.users RENAME TO members;"
	st.On("Record", ctx, users, tracking.RenameTable, "alice", stmt).Return(true, nil)
	st.On("Rename", ctx, "public", "users", "members").Return(nil)

	_, err := tracker.New(sessions(db), st, nil).Execute(ctx, "alice", stmt)

	require.NoError(t, err)
	st.AssertExpectations(t)
}

func TestExecute_execError_stopsBeforeRecording(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbErr := errors.New("relation does not exist")
	db := &fakeDB{err: dbErr}
	st := new(MockStore)

	res, err := tracker.New(sessions(db), st, nil).Execute(ctx, "alice", "INSERT INTO public.users VALUES (1);")

	require.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "executing statement 1")
	assert.Zero(t, res.Statements)
	st.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_parseError_returnsError(t *testing.T) {
	t.Parallel()

	tr := tracker.New(sessions(&fakeDB{}), new(MockStore), nil)

	_, err := tr.Execute(context.Background(), "alice", "INSERT INTO WHERE;")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "classifying query")
}

func TestExecute_emptyQuery_returnsErrEmptyQuery(t *testing.T) {
	t.Parallel()

	tr := tracker.New(sessions(&fakeDB{}), new(MockStore), nil)

	_, err := tr.Execute(context.Background(), "alice", "   ")

	require.ErrorIs(t, err, tracker.ErrEmptyQuery)
}

func TestExecute_emptyUser_logsAsConnectedRole(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := new(MockStore)
	st.On("Record", ctx, users, tracking.Truncate, "postgres", "TRUNCATE public.users;").Return(true, nil)

	_, err := tracker.New(sessions(&fakeDB{user: "postgres"}), st, nil).Execute(ctx, "", "TRUNCATE public.users;")

	require.NoError(t, err)
	st.AssertExpectations(t)
}

func TestExecute_searchPathChange_resolvesSchemaAgain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := &fakeDB{schemas: []string{"public", "audit"}}
	st := new(MockStore)
	st.On("Record", ctx, users, tracking.Insert, "alice", "INSERT INTO users VALUES (1);").Return(true, nil)
	st.On("Record", ctx, tracking.TableRef{Schema: "audit", Table: "users"}, tracking.Insert, "alice",
		"INSERT INTO users VALUES (2);").Return(true, nil)

	res, err := tracker.New(sessions(db), st, nil).Execute(ctx, "alice",
		"INSERT INTO users VALUES (1); SET search_path TO audit; INSERT INTO users VALUES (2);")

	require.NoError(t, err)
	assert.Equal(t, 3, res.Statements)
	assert.Len(t, res.Recorded, 2)
	assert.Equal(t, 2, db.lookups)
	st.AssertExpectations(t)
}

func TestExecute_sessionError_isReturned(t *testing.T) {
	t.Parallel()

	acquireErr := errors.New("pool closed")
	failing := func(context.Context, func(tracker.Session) error) error { return acquireErr }

	_, err := tracker.New(failing, new(MockStore), nil).Execute(context.Background(), "alice", "SELECT 1;")

	require.ErrorIs(t, err, acquireErr)
}
