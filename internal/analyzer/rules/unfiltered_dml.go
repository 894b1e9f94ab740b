package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/table-tracking/internal/analyzer"
)

// UnfilteredDMLRule flags UPDATE and DELETE statements without a WHERE
// clause. Replayed against a table with other content they touch every row.
type UnfilteredDMLRule struct{}

// NewUnfilteredDMLRule creates a new UnfilteredDMLRule.
func NewUnfilteredDMLRule() *UnfilteredDMLRule { return &UnfilteredDMLRule{} }

// ID returns the rule identifier.
func (r *UnfilteredDMLRule) ID() string { return "dml-without-where" }

// Check examines a statement for UPDATE or DELETE without WHERE.
func (r *UnfilteredDMLRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_UpdateStmt:
		if node.UpdateStmt.WhereClause != nil {
			return nil
		}

		return r.finding(node.UpdateStmt.Relation, "UPDATE without WHERE rewrites every row of the table", ctx)
	case *pg_query.Node_DeleteStmt:
		if node.DeleteStmt.WhereClause != nil {
			return nil
		}

		return r.finding(node.DeleteStmt.Relation, "DELETE without WHERE removes every row of the table", ctx)
	default:
		return nil
	}
}

func (r *UnfilteredDMLRule) finding(rel *pg_query.RangeVar, msg string, ctx *analyzer.RuleContext) []analyzer.Finding {
	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      analyzer.TableName(rel),
		Message:    msg,
		Suggestion: "Narrow the report date range or users so the statement is excluded",
		LockType:   "ROW EXCLUSIVE",
		StmtIndex:  ctx.StmtIndex,
	}}
}
