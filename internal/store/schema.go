package store

import "github.com/aqasim81/table-tracking/internal/tracking"

// TableName is the table holding every tracking version.
const TableName = "table_tracking"

// createSchemaSQL is the DDL for the tracking table. One row per
// (schema, table, version); the two logs are stored as text blocks.
const createSchemaSQL = `CREATE TABLE IF NOT EXISTS table_tracking (
    schema_name     TEXT NOT NULL,
    table_name      TEXT NOT NULL,
    version         INTEGER NOT NULL,
    date_created    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    date_updated    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    schema_snapshot TEXT NOT NULL DEFAULT '',
    schema_sql      TEXT NOT NULL DEFAULT '',
    data_sql        TEXT NOT NULL DEFAULT '',
    tracking        TEXT NOT NULL DEFAULT '',
    tracking_active BOOLEAN NOT NULL DEFAULT TRUE,
    PRIMARY KEY (schema_name, table_name, version)
)`

const versionColumns = `schema_name, table_name, version, date_created, date_updated, tracking_active, tracking`

// logColumn maps a log kind to the column storing it.
func logColumn(kind tracking.LogKind) string {
	if kind == tracking.DML {
		return "data_sql"
	}

	return "schema_sql"
}
