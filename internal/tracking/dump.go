package tracking

import (
	"regexp"
	"strings"
	"time"
)

// TempSchema is the scratch schema the copy/execute dump switches into.
const TempSchema = "tracking_temp"

// NoTrackMarker prefixes statements that must not be recorded again.
const NoTrackMarker = "/*NOTRACK*/"

var whitespaceRun = regexp.MustCompile(`\s+`) //nolint:gochecknoglobals // compiled once

// SQLDump returns the dump shown for copy or manual execution: a short
// header that creates and selects a temporary schema, followed by every
// statement in entry order.
func SQLDump(entries []FilteredEntry) string {
	var b strings.Builder

	b.WriteString("-- You can execute the dump by creating and using a temporary schema. ")
	b.WriteString("Please ensure that you have the privileges to do so.\n")
	b.WriteString("-- Comment out these two lines if you do not need them.\n")
	b.WriteString("\n")
	b.WriteString("CREATE SCHEMA IF NOT EXISTS " + TempSchema + "; \n")
	b.WriteString("SET search_path TO " + TempSchema + "; \n")
	b.WriteString("\n")

	writeStatements(&b, entries)

	return b.String()
}

// FileDump returns the downloadable dump for table, stamped with now.
func FileDump(table string, entries []FilteredEntry, now time.Time) string {
	var b strings.Builder

	b.WriteString("-- Tracking report for table " + CollapseSpaces(table) + "\n")
	b.WriteString("-- " + now.Format(DateLayout) + "\n")

	writeStatements(&b, entries)

	return b.String()
}

// DumpFilename returns the download filename for a table's dump.
func DumpFilename(table string) string {
	return "log_" + CollapseSpaces(table) + ".sql"
}

// CollapseSpaces replaces every whitespace run with a single space.
func CollapseSpaces(s string) string {
	return whitespaceRun.ReplaceAllString(s, " ")
}

// Statements returns the statements of entries in order.
func Statements(entries []FilteredEntry) []string {
	out := make([]string, len(entries))
	for i := range entries {
		out[i] = entries[i].Statement
	}

	return out
}

func writeStatements(b *strings.Builder, entries []FilteredEntry) {
	for i := range entries {
		b.WriteString(entries[i].Statement)

		if !strings.HasSuffix(entries[i].Statement, "\n") {
			b.WriteString("\n")
		}
	}
}
