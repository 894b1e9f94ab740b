package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/table-tracking/internal/analyzer"
)

// RenameRule flags renames, which move tracking to a new name and break
// later statements in a report that still use the old one.
type RenameRule struct{}

// NewRenameRule creates a new RenameRule.
func NewRenameRule() *RenameRule { return &RenameRule{} }

// ID returns the rule identifier.
func (r *RenameRule) ID() string { return "rename" }

// Check examines a statement for RENAME TABLE or RENAME COLUMN.
func (r *RenameRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_RenameStmt)
	if !ok || node.RenameStmt == nil {
		return nil
	}

	rename := node.RenameStmt

	var msg string

	switch rename.RenameType {
	case pg_query.ObjectType_OBJECT_TABLE:
		msg = "RENAME TABLE to " + rename.Newname + " moves tracking of the table to its new name"
	case pg_query.ObjectType_OBJECT_COLUMN:
		msg = "RENAME COLUMN to " + rename.Newname + " breaks replayed statements that use the old column name"
	default:
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Medium,
		Table:      analyzer.TableName(rename.Relation),
		Message:    msg,
		Suggestion: "Check that later statements in the report reference the new name",
		LockType:   "ACCESS EXCLUSIVE",
		StmtIndex:  ctx.StmtIndex,
	}}
}
