package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/table-tracking/internal/analyzer"
	"github.com/aqasim81/table-tracking/internal/analyzer/rules"
	"github.com/aqasim81/table-tracking/internal/parser"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

type want struct {
	rule     string
	severity analyzer.Severity
	table    string
}

// check runs every default rule over the single statement in sql.
func check(t *testing.T, sql string) []analyzer.Finding {
	t.Helper()

	p, err := parser.Parse(sql)
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())

	var findings []analyzer.Finding
	for _, rule := range rules.NewDefaultRegistry().Rules() {
		findings = append(findings, rule.Check(p.Stmts[0], &analyzer.RuleContext{StmtIndex: 3, SQL: sql})...)
	}

	return findings
}

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	users := tracking.TableRef{Schema: "public", Table: "users"}

	tests := []struct {
		name string
		sql  string
		want []want
	}{
		{
			name: "version log opens with DROP TABLE IF EXISTS",
			sql:  tracking.DropStatement(users, false),
			want: []want{{"drop-table", analyzer.Critical, "public.users"}},
		},
		{
			name: "DROP TABLE of several tables",
			sql:  "DROP TABLE users, audit.orders;",
			want: []want{{"drop-table", analyzer.Critical, "users, audit.orders"}},
		},
		{
			name: "TRUNCATE",
			sql:  "TRUNCATE users;",
			want: []want{{"drop-table", analyzer.Critical, "users"}},
		},
		{
			name: "replayed statement keeps its no-track marker",
			sql:  tracking.NoTrackMarker + "\nDELETE FROM users;",
			want: []want{{"dml-without-where", analyzer.High, "users"}},
		},
		{
			name: "UPDATE without WHERE",
			sql:  "UPDATE app.users SET active = false;",
			want: []want{{"dml-without-where", analyzer.High, "app.users"}},
		},
		{
			name: "type change on each column",
			sql:  "ALTER TABLE users ALTER COLUMN age TYPE bigint, ALTER COLUMN name TYPE text;",
			want: []want{
				{"alter-column-type", analyzer.High, "users"},
				{"alter-column-type", analyzer.High, "users"},
			},
		},
		{
			name: "blocking index build",
			sql:  "CREATE UNIQUE INDEX users_email_idx ON myschema.users (email);",
			want: []want{{"create-index-not-concurrent", analyzer.High, "myschema.users"}},
		},
		{
			name: "RENAME TABLE",
			sql:  "ALTER TABLE users RENAME TO customers;",
			want: []want{{"rename", analyzer.Medium, "users"}},
		},
		{
			name: "RENAME COLUMN",
			sql:  "ALTER TABLE users RENAME COLUMN email TO email_address;",
			want: []want{{"rename", analyzer.Medium, "users"}},
		},
		{name: "version log CREATE TABLE", sql: `CREATE TABLE "public"."users" ("id" integer NOT NULL);`},
		{name: "concurrent index", sql: "CREATE INDEX CONCURRENTLY users_email_idx ON users (email);"},
		{name: "filtered DELETE", sql: "DELETE FROM users WHERE id = 1;"},
		{name: "filtered UPDATE", sql: "UPDATE users SET active = false WHERE id = 1;"},
		{name: "INSERT", sql: "INSERT INTO users (id) VALUES (1);"},
		{name: "DROP VIEW", sql: tracking.DropStatement(users, true)},
		{name: "DROP INDEX", sql: "DROP INDEX users_email_idx;"},
		{name: "RENAME INDEX", sql: "ALTER INDEX users_email_idx RENAME TO users_mail_idx;"},
		{name: "ADD COLUMN", sql: "ALTER TABLE users ADD COLUMN age int;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			findings := check(t, tt.sql)
			require.Len(t, findings, len(tt.want))

			for i, w := range tt.want {
				assert.Equal(t, w.rule, findings[i].Rule)
				assert.Equal(t, w.severity, findings[i].Severity)
				assert.Equal(t, w.table, findings[i].Table)
				assert.Equal(t, 3, findings[i].StmtIndex)
				assert.NotEmpty(t, findings[i].Message)
				assert.NotEmpty(t, findings[i].Suggestion)
			}
		})
	}
}
