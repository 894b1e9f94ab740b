package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqasim81/table-tracking/internal/parser"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

// Store is the part of the tracking store the tracker writes to.
type Store interface {
	Record(ctx context.Context, ref tracking.TableRef, kind tracking.Kind, user, statement string) (bool, error)
	Rename(ctx context.Context, schema, oldName, newName string) error
	IndexTable(ctx context.Context, index tracking.TableRef) (tracking.TableRef, error)
}

// resetSessionSQL restores what user SQL may change on a session.
const resetSessionSQL = `SET SESSION AUTHORIZATION DEFAULT; RESET ALL`

// Session is one database connection. A whole query runs on the same
// session so settings such as search_path carry over between statements.
type Session interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionFunc runs fn on a dedicated session.
type SessionFunc func(ctx context.Context, fn func(Session) error) error

// PoolSessions hands out pooled connections as sessions. Settings changed
// by the executed SQL are reset before the connection returns to the pool;
// a connection that cannot be reset is closed instead.
func PoolSessions(pool *pgxpool.Pool) SessionFunc {
	return func(ctx context.Context, fn func(Session) error) error {
		//nolint:wrapcheck // errors from fn are already wrapped
		return pool.AcquireFunc(ctx, func(conn *pgxpool.Conn) error {
			defer resetSession(ctx, conn)

			return fn(conn)
		})
	}
}

func resetSession(ctx context.Context, conn *pgxpool.Conn) {
	if _, err := conn.Exec(ctx, resetSessionSQL); err != nil {
		_ = conn.Conn().Close(context.WithoutCancel(ctx))
	}
}

// Recorded is one log entry written while executing a query.
type Recorded struct {
	Table tracking.TableRef
	Kind  tracking.Kind
}

// Result summarizes an executed query.
type Result struct {
	Statements int
	Recorded   []Recorded
}

// Tracker executes SQL and logs every trackable statement against the
// active version of each table it touches.
type Tracker struct {
	sessions SessionFunc
	store    Store
	logger   *slog.Logger
}

// New creates a Tracker.
func New(sessions SessionFunc, store Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{sessions: sessions, store: store, logger: logger}
}

// Execute runs every statement of sql in order and logs them under user,
// or under the connected role when user is empty. A statement is logged
// after it succeeds, unless it carries the no-track marker. The first
// failing statement stops execution.
func (t *Tracker) Execute(ctx context.Context, user, sql string) (*Result, error) {
	stmts, err := parser.Classify(sql)
	if err != nil {
		return nil, fmt.Errorf("classifying query: %w", err)
	}

	if len(stmts) == 0 {
		return nil, ErrEmptyQuery
	}

	res := &Result{}

	err = t.sessions(ctx, func(s Session) error {
		if user == "" {
			if err := s.QueryRow(ctx, `SELECT current_user`).Scan(&user); err != nil {
				return fmt.Errorf("reading current user: %w", err)
			}
		}

		r := &resolver{session: s}

		for i := range stmts {
			if err := t.run(ctx, s, r, &stmts[i], i, user, res); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return res, err
	}

	return res, nil
}

func (t *Tracker) run(
	ctx context.Context, s Session, r *resolver, stmt *parser.Statement, i int, user string, res *Result,
) error {
	targets, err := t.targets(ctx, r, stmt)
	if err != nil {
		return err
	}

	if _, err := s.Exec(ctx, stmt.SQL); err != nil {
		return fmt.Errorf("executing statement %d: %w", i+1, err)
	}

	res.Statements++

	if stmt.NoTrack || stmt.Kind == "" {
		// Untracked statements may change the search_path.
		r.forget()

		return nil
	}

	for _, ref := range targets {
		ok, err := t.store.Record(ctx, ref, stmt.Kind, user, stmt.SQL)
		if err != nil {
			return err
		}

		if ok {
			res.Recorded = append(res.Recorded, Recorded{Table: ref, Kind: stmt.Kind})
			t.logger.DebugContext(ctx, "statement tracked", "table", ref.String(), "kind", string(stmt.Kind), "user", user)
		}
	}

	if stmt.Kind == tracking.RenameTable && len(targets) == 1 && stmt.NewName != "" {
		if err := t.store.Rename(ctx, targets[0].Schema, targets[0].Table, stmt.NewName); err != nil {
			return err
		}
	}

	return nil
}

// targets resolves the tables a statement is logged against. Index
// owners are resolved before execution since a dropped index leaves no
// trace in the catalog.
func (t *Tracker) targets(ctx context.Context, r *resolver, stmt *parser.Statement) ([]tracking.TableRef, error) {
	if stmt.NoTrack || stmt.Kind == "" {
		return nil, nil
	}

	out := make([]tracking.TableRef, 0, len(stmt.Targets)+len(stmt.Indexes))

	for _, ref := range stmt.Targets {
		q, err := r.qualify(ctx, ref)
		if err != nil {
			return nil, err
		}

		out = append(out, q)
	}

	for _, idx := range stmt.Indexes {
		q, err := r.qualify(ctx, idx)
		if err != nil {
			return nil, err
		}

		ref, err := t.store.IndexTable(ctx, q)
		if err != nil {
			// DROP INDEX IF EXISTS on a missing index still runs.
			t.logger.DebugContext(ctx, "index owner not found", "index", q.String(), "error", err)

			continue
		}

		out = append(out, ref)
	}

	return out, nil
}

// resolver fills in the session's current schema for unqualified names,
// looking it up again only after the search_path may have changed.
type resolver struct {
	session Session
	schema  string
}

func (r *resolver) qualify(ctx context.Context, ref tracking.TableRef) (tracking.TableRef, error) {
	if ref.Schema != "" {
		return ref, nil
	}

	if r.schema == "" {
		if err := r.session.QueryRow(ctx, `SELECT current_schema()`).Scan(&r.schema); err != nil {
			return ref, fmt.Errorf("reading current schema: %w", err)
		}
	}

	ref.Schema = r.schema

	return ref, nil
}

func (r *resolver) forget() {
	r.schema = ""
}
