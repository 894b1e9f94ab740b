package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqasim81/table-tracking/internal/database"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

// CreateParams describes a new tracking version.
type CreateParams struct {
	Schema      string
	Table       string
	Version     int
	TrackingSet string
	IsView      bool
	User        string
}

// Store manages the table_tracking table.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New creates a Store backed by the given connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// EnsureTable creates the tracking table if it does not exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createSchemaSQL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// ListVersions returns every version of a table, newest first.
func (s *Store) ListVersions(ctx context.Context, schema, table string) ([]tracking.Version, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+versionColumns+`
		 FROM table_tracking
		 WHERE schema_name = $1 AND table_name = $2
		 ORDER BY version DESC`,
		schema, table,
	)
	if err != nil {
		return nil, fmt.Errorf("querying versions of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	versions, err := pgx.CollectRows(rows, scanVersion)
	if err != nil {
		return nil, fmt.Errorf("scanning versions of %s.%s: %w", schema, table, err)
	}

	return versions, nil
}

// ListTrackedTables returns the latest version of every tracked table in a
// schema, ordered by table name.
func (s *Store) ListTrackedTables(ctx context.Context, schema string) ([]tracking.Version, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (table_name) `+versionColumns+`
		 FROM table_tracking
		 WHERE schema_name = $1
		 ORDER BY table_name, version DESC`,
		schema,
	)
	if err != nil {
		return nil, fmt.Errorf("querying tracked tables of %s: %w", schema, err)
	}
	defer rows.Close()

	versions, err := pgx.CollectRows(rows, scanVersion)
	if err != nil {
		return nil, fmt.Errorf("scanning tracked tables of %s: %w", schema, err)
	}

	return versions, nil
}

// LastVersion returns the highest version number of a table, or -1 when
// the table has never been tracked.
func (s *Store) LastVersion(ctx context.Context, schema, table string) (int, error) {
	return lastVersion(ctx, s.pool, schema, table)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func lastVersion(ctx context.Context, q queryRower, schema, table string) (int, error) {
	var last int

	err := q.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), -1) FROM table_tracking WHERE schema_name = $1 AND table_name = $2`,
		schema, table,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("reading last version of %s.%s: %w", schema, table, err)
	}

	return last, nil
}

// IsTracked reports whether the latest version of a table is active.
func (s *Store) IsTracked(ctx context.Context, schema, table string) (bool, error) {
	var active bool

	err := s.pool.QueryRow(ctx,
		`SELECT tracking_active FROM table_tracking
		 WHERE schema_name = $1 AND table_name = $2
		 ORDER BY version DESC LIMIT 1`,
		schema, table,
	).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}

		return false, fmt.Errorf("checking tracking state of %s.%s: %w", schema, table, err)
	}

	return active, nil
}

// CreateVersion snapshots the table structure and stores a new active
// version whose data definition log starts with the statements that
// recreate the table. An empty user logs as the connected role. Creators
// of the same table are serialized with an advisory lock.
func (s *Store) CreateVersion(ctx context.Context, p CreateParams) error {
	ref := tracking.TableRef{Schema: p.Schema, Table: p.Table}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := database.LockTableTx(ctx, tx, p.Schema, p.Table); err != nil {
			return err
		}

		last, err := lastVersion(ctx, tx, p.Schema, p.Table)
		if err != nil {
			return err
		}

		if p.Version <= last {
			return fmt.Errorf("%w: %s version %d", ErrVersionExists, ref, p.Version)
		}

		if p.User == "" {
			if err := tx.QueryRow(ctx, `SELECT current_user`).Scan(&p.User); err != nil {
				return fmt.Errorf("reading current user: %w", err)
			}
		}

		snapshot, err := captureSnapshot(ctx, tx, ref)
		if err != nil {
			return err
		}

		create, err := createStatement(ctx, tx, ref, p.IsView, snapshot)
		if err != nil {
			return err
		}

		// Logs store whole seconds; the creation date must not sort after
		// its own first entries.
		now := s.now().Truncate(time.Second)
		ddlog := []tracking.Entry{
			{Date: now, Username: p.User, Statement: tracking.DropStatement(ref, p.IsView)},
			{Date: now, Username: p.User, Statement: create},
		}

		encoded, err := tracking.EncodeSnapshot(snapshot)
		if err != nil {
			return fmt.Errorf("encoding snapshot of %s: %w", ref, err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO table_tracking
			     (schema_name, table_name, version, date_created, date_updated,
			      schema_snapshot, schema_sql, data_sql, tracking, tracking_active)
			 VALUES ($1, $2, $3, $4, $4, $5, $6, '', $7, TRUE)`,
			p.Schema, p.Table, p.Version, now, string(encoded), tracking.FormatLog(ddlog), p.TrackingSet,
		)
		if err != nil {
			return fmt.Errorf("inserting version %d of %s: %w", p.Version, ref, err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("creating version %d of %s: %w", p.Version, ref, err)
	}

	return nil
}

// SetActive activates or deactivates one version.
func (s *Store) SetActive(ctx context.Context, schema, table string, version int, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE table_tracking SET tracking_active = $4, date_updated = $5
		 WHERE schema_name = $1 AND table_name = $2 AND version = $3`,
		schema, table, version, active, s.now(),
	)
	if err != nil {
		return fmt.Errorf("updating tracking state of %s.%s version %d: %w", schema, table, version, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s.%s version %d: %w", schema, table, version, ErrVersionNotFound)
	}

	return nil
}

// DeleteVersion removes one version of a table.
func (s *Store) DeleteVersion(ctx context.Context, schema, table string, version int) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM table_tracking WHERE schema_name = $1 AND table_name = $2 AND version = $3`,
		schema, table, version,
	)
	if err != nil {
		return fmt.Errorf("deleting %s.%s version %d: %w", schema, table, version, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s.%s version %d: %w", schema, table, version, ErrVersionNotFound)
	}

	return nil
}

// DeleteTracking removes every version of a table.
func (s *Store) DeleteTracking(ctx context.Context, schema, table string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM table_tracking WHERE schema_name = $1 AND table_name = $2`,
		schema, table,
	)
	if err != nil {
		return fmt.Errorf("deleting tracking of %s.%s: %w", schema, table, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s.%s: %w", schema, table, ErrNotTracked)
	}

	return nil
}

// TrackedData returns the logs, snapshot, and metadata of one version. A
// negative version selects the latest one.
func (s *Store) TrackedData(ctx context.Context, schema, table string, version int) (*tracking.Data, error) {
	var (
		data               tracking.Data
		snapshot, ddl, dml string
	)

	err := s.pool.QueryRow(ctx,
		`SELECT `+versionColumns+`, schema_snapshot, schema_sql, data_sql
		 FROM table_tracking
		 WHERE schema_name = $1 AND table_name = $2 AND ($3 < 0 OR version = $3)
		 ORDER BY version DESC LIMIT 1`,
		schema, table, version,
	).Scan(
		&data.Schema, &data.Table, &data.Number, &data.CreatedAt, &data.UpdatedAt,
		&data.Active, &data.TrackingSet, &snapshot, &ddl, &dml,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s.%s version %d: %w", schema, table, version, ErrVersionNotFound)
		}

		return nil, fmt.Errorf("reading %s.%s version %d: %w", schema, table, version, err)
	}

	data.Snapshot = tracking.DecodeSnapshot([]byte(snapshot))
	data.DDLog = tracking.ParseLog(ddl)
	data.DMLog = tracking.ParseLog(dml)

	return &data, nil
}

// ChangeTrackingData replaces one log of a version with entries.
func (s *Store) ChangeTrackingData(
	ctx context.Context, schema, table string, version int, kind tracking.LogKind, entries []tracking.Entry,
) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE table_tracking SET `+logColumn(kind)+` = $4, date_updated = $5
		 WHERE schema_name = $1 AND table_name = $2 AND version = $3`,
		schema, table, version, tracking.FormatLog(entries), s.now(),
	)
	if err != nil {
		return fmt.Errorf("rewriting %s log of %s.%s version %d: %w", kind, schema, table, version, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s.%s version %d: %w", schema, table, version, ErrVersionNotFound)
	}

	return nil
}

// Record appends a statement to the matching log of the latest version of
// a table when that version is active and tracks the statement kind. It
// reports whether the statement was logged.
func (s *Store) Record(
	ctx context.Context, ref tracking.TableRef, kind tracking.Kind, user, statement string,
) (bool, error) {
	recorded := false

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var (
			version int
			active  bool
			set     string
		)

		err := tx.QueryRow(ctx,
			`SELECT version, tracking_active, tracking FROM table_tracking
			 WHERE schema_name = $1 AND table_name = $2
			 ORDER BY version DESC LIMIT 1
			 FOR UPDATE`,
			ref.Schema, ref.Table,
		).Scan(&version, &active, &set)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}

			return fmt.Errorf("reading latest version of %s: %w", ref, err)
		}

		if !active || !tracking.SetContains(set, kind) {
			return nil
		}

		now := s.now()
		entry := tracking.Entry{Date: now, Username: user, Statement: statement}

		_, err = tx.Exec(ctx,
			`UPDATE table_tracking
			 SET `+logColumn(kind.LogKind())+` = `+logColumn(kind.LogKind())+` || $4, date_updated = $5
			 WHERE schema_name = $1 AND table_name = $2 AND version = $3`,
			ref.Schema, ref.Table, version, tracking.FormatEntry(&entry), now,
		)
		if err != nil {
			return fmt.Errorf("appending to %s version %d: %w", ref, version, err)
		}

		recorded = true

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("recording %s on %s: %w", kind, ref, err)
	}

	return recorded, nil
}

// Rename moves every tracking version of a table to its new name.
func (s *Store) Rename(ctx context.Context, schema, oldName, newName string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE table_tracking SET table_name = $3 WHERE schema_name = $1 AND table_name = $2`,
		schema, oldName, newName,
	)
	if err != nil {
		return fmt.Errorf("renaming tracking of %s.%s to %s: %w", schema, oldName, newName, err)
	}

	return nil
}

func scanVersion(row pgx.CollectableRow) (tracking.Version, error) {
	var v tracking.Version
	if err := row.Scan(&v.Schema, &v.Table, &v.Number, &v.CreatedAt, &v.UpdatedAt, &v.Active, &v.TrackingSet); err != nil {
		return tracking.Version{}, fmt.Errorf("scanning version row: %w", err)
	}

	return v, nil
}
