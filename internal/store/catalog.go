package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/table-tracking/internal/tracking"
)

// Relation is a table or view found in the catalog.
type Relation struct {
	Name   string
	IsView bool
}

// pg_class.relkind values that can be tracked. Materialized views, foreign
// tables and sequences cannot be recreated from the logged statements.
const (
	relkindTable       = "r"
	relkindPartitioned = "p"
	relkindView        = "v"
)

// trackable reports whether a relation of the given relkind can be tracked.
func trackable(relkind string) bool {
	return relkind == relkindTable || relkind == relkindPartitioned || relkind == relkindView
}

const relationKindSQL = `SELECT c.relkind::text
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE n.nspname = $1 AND c.relname = $2`

const columnsSQL = `SELECT a.attname,
	       format_type(a.atttypid, a.atttypmod),
	       CASE WHEN a.attcollation <> t.typcollation THEN COALESCE(co.collname, '') ELSE '' END,
	       NOT a.attnotnull,
	       pg_get_expr(d.adbin, d.adrelid),
	       COALESCE(col_description(a.attrelid, a.attnum), '')
	FROM pg_attribute a
	JOIN pg_class c ON c.oid = a.attrelid
	JOIN pg_namespace n ON n.oid = c.relnamespace
	JOIN pg_type t ON t.oid = a.atttypid
	LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
	LEFT JOIN pg_collation co ON co.oid = a.attcollation
	WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
	ORDER BY a.attnum`

const indexesSQL = `SELECT i.relname,
	       ix.indisunique,
	       ix.indisprimary,
	       ARRAY(
	           SELECT a.attname
	           FROM unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
	           JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = k.attnum
	           ORDER BY k.ord
	       )::text[],
	       pg_get_indexdef(ix.indexrelid)
	FROM pg_index ix
	JOIN pg_class t ON t.oid = ix.indrelid
	JOIN pg_class i ON i.oid = ix.indexrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	WHERE n.nspname = $1 AND t.relname = $2
	ORDER BY ix.indisprimary DESC, i.relname`

// IsView reports whether the relation is a plain view.
func (s *Store) IsView(ctx context.Context, schema, table string) (bool, error) {
	kind, err := relationKind(ctx, s.pool, tracking.TableRef{Schema: schema, Table: table})
	if err != nil {
		return false, err
	}

	return kind == relkindView, nil
}

// UntrackedTables lists the tables and views of a schema that have no
// tracking version, ordered by name.
func (s *Store) UntrackedTables(ctx context.Context, schema string) ([]Relation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.relname, c.relkind = 'v'
		 FROM pg_class c
		 JOIN pg_namespace n ON n.oid = c.relnamespace
		 WHERE n.nspname = $1
		   AND c.relkind IN ('r', 'p', 'v')
		   AND c.relname <> $2
		   AND NOT EXISTS (
		       SELECT 1 FROM table_tracking tt
		       WHERE tt.schema_name = n.nspname AND tt.table_name = c.relname
		   )
		 ORDER BY c.relname`,
		schema, TableName,
	)
	if err != nil {
		return nil, fmt.Errorf("querying untracked tables of %s: %w", schema, err)
	}
	defer rows.Close()

	relations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Relation, error) {
		var r Relation
		if scanErr := row.Scan(&r.Name, &r.IsView); scanErr != nil {
			return Relation{}, fmt.Errorf("scanning relation row: %w", scanErr)
		}

		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning untracked tables of %s: %w", schema, err)
	}

	return relations, nil
}

// IndexTable resolves the table an index belongs to. An empty schema
// searches the current search_path.
func (s *Store) IndexTable(ctx context.Context, index tracking.TableRef) (tracking.TableRef, error) {
	var ref tracking.TableRef

	err := s.pool.QueryRow(ctx,
		`SELECT schemaname, tablename FROM pg_indexes
		 WHERE indexname = $2
		   AND (schemaname = $1 OR ($1 = '' AND schemaname = ANY(current_schemas(false))))
		 LIMIT 1`,
		index.Schema, index.Table,
	).Scan(&ref.Schema, &ref.Table)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tracking.TableRef{}, fmt.Errorf("index %s: %w", index, ErrRelationNotFound)
		}

		return tracking.TableRef{}, fmt.Errorf("resolving table of index %s: %w", index, err)
	}

	return ref, nil
}

func relationKind(ctx context.Context, q queryRower, ref tracking.TableRef) (string, error) {
	var kind string

	err := q.QueryRow(ctx, relationKindSQL, ref.Schema, ref.Table).Scan(&kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", ref, ErrRelationNotFound)
		}

		return "", fmt.Errorf("reading relation kind of %s: %w", ref, err)
	}

	return kind, nil
}

// captureSnapshot reads the columns and indexes of a relation.
func captureSnapshot(ctx context.Context, tx pgx.Tx, ref tracking.TableRef) (tracking.Snapshot, error) {
	kind, err := relationKind(ctx, tx, ref)
	if err != nil {
		return tracking.Snapshot{}, err
	}

	if !trackable(kind) {
		return tracking.Snapshot{}, fmt.Errorf("%s (relkind %q): %w", ref, kind, ErrUnsupportedRelation)
	}

	rows, err := tx.Query(ctx, columnsSQL, ref.Schema, ref.Table)
	if err != nil {
		return tracking.Snapshot{}, fmt.Errorf("querying columns of %s: %w", ref, err)
	}

	columns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tracking.Column, error) {
		var c tracking.Column
		if scanErr := row.Scan(&c.Name, &c.Type, &c.Collation, &c.Nullable, &c.Default, &c.Comment); scanErr != nil {
			return tracking.Column{}, fmt.Errorf("scanning column row: %w", scanErr)
		}

		return c, nil
	})
	if err != nil {
		return tracking.Snapshot{}, fmt.Errorf("scanning columns of %s: %w", ref, err)
	}

	rows, err = tx.Query(ctx, indexesSQL, ref.Schema, ref.Table)
	if err != nil {
		return tracking.Snapshot{}, fmt.Errorf("querying indexes of %s: %w", ref, err)
	}

	indexes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tracking.Index, error) {
		var idx tracking.Index
		if scanErr := row.Scan(&idx.Name, &idx.Unique, &idx.Primary, &idx.Columns, &idx.Definition); scanErr != nil {
			return tracking.Index{}, fmt.Errorf("scanning index row: %w", scanErr)
		}

		return idx, nil
	})
	if err != nil {
		return tracking.Snapshot{}, fmt.Errorf("scanning indexes of %s: %w", ref, err)
	}

	return tracking.Snapshot{Columns: columns, Indexes: indexes}, nil
}

// createStatement builds the statement that recreates the relation.
func createStatement(
	ctx context.Context, tx pgx.Tx, ref tracking.TableRef, isView bool, snapshot tracking.Snapshot,
) (string, error) {
	if !isView {
		return tracking.CreateTableStatement(ref, snapshot), nil
	}

	var definition string

	err := tx.QueryRow(ctx,
		`SELECT pg_get_viewdef(c.oid, true)
		 FROM pg_class c
		 JOIN pg_namespace n ON n.oid = c.relnamespace
		 WHERE n.nspname = $1 AND c.relname = $2`,
		ref.Schema, ref.Table,
	).Scan(&definition)
	if err != nil {
		return "", fmt.Errorf("reading view definition of %s: %w", ref, err)
	}

	return tracking.CreateViewStatement(ref, definition), nil
}
