package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqasim81/table-tracking/internal/database"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// ProgressEvent is emitted by the executor for each statement processed.
type ProgressEvent struct {
	Index     int
	Statement string
	Status    string
	Duration  time.Duration
	Error     error
}

// execer runs one SQL statement. Both pgx.Tx and *pgxpool.Conn satisfy it.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// lockReleaser is returned by lockFn and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc acquires an advisory lock and returns a releaser.
type lockFunc func(ctx context.Context) (lockReleaser, error)

// runFunc runs fn either inside one transaction or directly on the pool.
type runFunc func(ctx context.Context, transactional bool, fn func(q execer) error) error

// Executor replays tracked statements with transaction safety, timeouts,
// and an advisory lock that prevents concurrent replays.
type Executor struct {
	pool             *pgxpool.Pool
	lockTimeout      time.Duration
	statementTimeout time.Duration
	dryRun           bool
	onProgress       func(ProgressEvent)
	acquireLock      lockFunc
	run              runFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithDryRun enables dry-run mode where no SQL is executed.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithProgressCallback sets a function called for each statement processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// New creates an Executor with the given pool and options.
func New(pool *pgxpool.Pool, opts ...Option) *Executor {
	e := &Executor{pool: pool}

	for _, opt := range opts {
		opt(e)
	}

	// Injectable functions get their defaults after options are applied.
	if e.acquireLock == nil {
		e.acquireLock = func(ctx context.Context) (lockReleaser, error) {
			return database.TryAcquireLock(ctx, e.pool, database.ReplayLockID)
		}
	}

	if e.run == nil {
		e.run = e.runOnPool
	}

	return e
}

// ReplayStatements prefixes every statement with the no-track marker so
// replaying a report never logs it again.
func ReplayStatements(entries []tracking.FilteredEntry) []string {
	out := make([]string, 0, len(entries))

	for _, stmt := range tracking.Statements(entries) {
		out = append(out, tracking.NoTrackMarker+"\n"+stmt)
	}

	return out
}

// Replay executes the statements of a report in entry order and returns
// how many were executed. All statements share one transaction unless one
// of them builds or drops an index concurrently, which cannot run in a
// transaction block.
func (e *Executor) Replay(ctx context.Context, entries []tracking.FilteredEntry) (int, error) {
	statements := ReplayStatements(entries)

	lock, err := e.acquireLock(ctx)
	if err != nil {
		if errors.Is(err, database.ErrLockNotAcquired) {
			return 0, ErrReplayInProgress
		}

		return 0, fmt.Errorf("acquiring replay lock: %w", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on return

	if e.dryRun {
		for i, stmt := range statements {
			e.fireProgress(ProgressEvent{Index: i, Statement: stmt, Status: StatusSkipped})
		}

		return 0, nil
	}

	autocommit, err := needsAutocommit(tracking.Statements(entries))
	if err != nil {
		return 0, err
	}

	executed := 0

	err = e.run(ctx, !autocommit, func(q execer) error {
		for i, stmt := range statements {
			if err := e.execOne(ctx, q, i, stmt); err != nil {
				return err
			}

			executed++
		}

		return nil
	})
	if err != nil {
		if !autocommit {
			executed = 0
		}

		return executed, err
	}

	return executed, nil
}

func (e *Executor) execOne(ctx context.Context, q execer, i int, stmt string) error {
	e.fireProgress(ProgressEvent{Index: i, Statement: stmt, Status: StatusStarting})

	start := time.Now()
	_, execErr := q.Exec(ctx, stmt)
	duration := time.Since(start)

	if execErr != nil {
		e.fireProgress(ProgressEvent{
			Index:     i,
			Statement: stmt,
			Status:    StatusFailed,
			Duration:  duration,
			Error:     execErr,
		})

		return fmt.Errorf("%w: statement %d: %w", ErrExecutionFailed, i+1, execErr)
	}

	e.fireProgress(ProgressEvent{Index: i, Statement: stmt, Status: StatusCompleted, Duration: duration})

	return nil
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
