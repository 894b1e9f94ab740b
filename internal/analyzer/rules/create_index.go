package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/table-tracking/internal/analyzer"
)

// CreateIndexRule flags replayed CREATE INDEX statements that block writes.
type CreateIndexRule struct{}

// NewCreateIndexRule creates a new CreateIndexRule.
func NewCreateIndexRule() *CreateIndexRule { return &CreateIndexRule{} }

// ID returns the rule identifier.
func (r *CreateIndexRule) ID() string { return "create-index-not-concurrent" }

// Check examines a statement for non-concurrent CREATE INDEX.
func (r *CreateIndexRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
	if !ok || node.IndexStmt.Concurrent {
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      analyzer.TableName(node.IndexStmt.Relation),
		Message:    "Replaying CREATE INDEX holds a SHARE lock on the table until the whole replay commits",
		Suggestion: "Edit the statement to CREATE INDEX CONCURRENTLY before replaying against a live table",
		LockType:   "SHARE",
		StmtIndex:  ctx.StmtIndex,
	}}
}
