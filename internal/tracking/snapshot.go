package tracking

import (
	"encoding/json"
	"strings"
)

// SnapshotSQL returns the SQL that recreates the structure of a version: the
// first data definition statement, plus the second one when the first drops
// the table or view.
func SnapshotSQL(ddlog []Entry) string {
	if len(ddlog) == 0 {
		return ""
	}

	out := ddlog[0].Statement

	first := strings.ToUpper(ddlog[0].Statement)
	if (strings.Contains(first, "DROP TABLE") || strings.Contains(first, "DROP VIEW")) && len(ddlog) > 1 {
		out += "\n" + ddlog[1].Statement
	}

	return out
}

// DecodeSnapshot reads a stored snapshot. Anything unreadable decodes to an
// empty snapshot.
func DecodeSnapshot(raw []byte) Snapshot {
	var s Snapshot

	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return Snapshot{Columns: []Column{}, Indexes: []Index{}}
	}

	if s.Columns == nil {
		s.Columns = []Column{}
	}

	if s.Indexes == nil {
		s.Indexes = []Index{}
	}

	return s
}

// EncodeSnapshot serializes a snapshot for storage.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s) //nolint:wrapcheck // caller wraps with context
}

// DropStatement returns the DROP ... IF EXISTS statement that opens the
// initial data definition log of a version.
func DropStatement(ref TableRef, isView bool) string {
	if isView {
		return "DROP VIEW IF EXISTS " + QuoteRef(ref) + ";"
	}

	return "DROP TABLE IF EXISTS " + QuoteRef(ref) + ";"
}

// CreateTableStatement rebuilds a CREATE TABLE statement from a snapshot.
func CreateTableStatement(ref TableRef, s Snapshot) string {
	var b strings.Builder

	b.WriteString("CREATE TABLE " + QuoteRef(ref) + " (\n")

	lines := make([]string, 0, len(s.Columns)+1)

	for _, c := range s.Columns {
		line := "  " + QuoteIdent(c.Name) + " " + c.Type
		if c.Collation != "" {
			line += " COLLATE " + QuoteIdent(c.Collation)
		}

		if !c.Nullable {
			line += " NOT NULL"
		}

		if c.Default != nil {
			line += " DEFAULT " + *c.Default
		}

		lines = append(lines, line)
	}

	for _, idx := range s.Indexes {
		if !idx.Primary {
			continue
		}

		cols := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			cols[i] = QuoteIdent(c)
		}

		lines = append(lines, "  PRIMARY KEY ("+strings.Join(cols, ", ")+")")
	}

	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n);")

	return b.String()
}

// CreateViewStatement rebuilds a CREATE VIEW statement from its definition.
func CreateViewStatement(ref TableRef, definition string) string {
	return "CREATE VIEW " + QuoteRef(ref) + " AS " + strings.TrimSpace(definition)
}

// QuoteIdent quotes a PostgreSQL identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteRef quotes a schema-qualified table reference.
func QuoteRef(ref TableRef) string {
	if ref.Schema == "" {
		return QuoteIdent(ref.Table)
	}

	return QuoteIdent(ref.Schema) + "." + QuoteIdent(ref.Table)
}
