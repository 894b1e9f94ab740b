package analyzer

import "strings"

const statementDisplayLen = 80

// Finding represents a single dangerous pattern detected in a statement.
type Finding struct {
	Rule       string   // Rule ID (e.g., "create-index-not-concurrent")
	Severity   Severity // Danger level
	Table      string   // Affected table name
	Statement  string   // The SQL statement text (truncated for display)
	Message    string   // Human-readable description of the danger
	Suggestion string   // Safe alternative approach
	LockType   string   // PostgreSQL lock type acquired (e.g., "ACCESS EXCLUSIVE")
	StmtIndex  int      // Index in the analyzed statement list (0-based)
}

// Result holds all findings for one list of statements.
type Result struct {
	Findings    []Finding
	MaxSeverity Severity // Highest severity across all findings
	Unparsed    []int

	bySeverity map[int]Severity
}

func (r *Result) add(f Finding) {
	r.Findings = append(r.Findings, f)

	if f.Severity > r.MaxSeverity {
		r.MaxSeverity = f.Severity
	}

	if r.bySeverity == nil {
		r.bySeverity = make(map[int]Severity)
	}

	if f.Severity > r.bySeverity[f.StmtIndex] {
		r.bySeverity[f.StmtIndex] = f.Severity
	}
}

// HasHighOrCritical returns true if any finding is High or Critical severity.
func (r *Result) HasHighOrCritical() bool {
	return r.MaxSeverity >= High
}

// SeverityOf returns the highest severity found for statement i.
func (r *Result) SeverityOf(i int) Severity {
	if r == nil {
		return Safe
	}

	return r.bySeverity[i]
}

// Summary lists the findings of High severity or above, one per line.
func (r *Result) Summary() string {
	var lines []string

	for _, f := range r.Findings {
		if f.Severity < High {
			continue
		}

		lines = append(lines, "["+f.Severity.String()+"] "+f.Table+": "+f.Message)
	}

	return strings.Join(lines, "\n")
}

// TruncateSQL truncates a SQL string to maxLen characters for display.
func TruncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen || maxLen < 4 { //nolint:mnd // room for the ellipsis
		return sql
	}

	return sql[:maxLen-3] + "..."
}
