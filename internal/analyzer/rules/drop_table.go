package rules

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/table-tracking/internal/analyzer"
)

// DropTableRule flags replayed statements that discard a whole table's rows.
type DropTableRule struct{}

// NewDropTableRule creates a new DropTableRule.
func NewDropTableRule() *DropTableRule { return &DropTableRule{} }

// ID returns the rule identifier.
func (r *DropTableRule) ID() string { return "drop-table" }

// Check examines a statement for DROP TABLE or TRUNCATE.
func (r *DropTableRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_DropStmt:
		return r.checkDrop(node.DropStmt, ctx)
	case *pg_query.Node_TruncateStmt:
		return r.checkTruncate(node.TruncateStmt, ctx)
	default:
		return nil
	}
}

func (r *DropTableRule) checkDrop(drop *pg_query.DropStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	if drop == nil || drop.RemoveType != pg_query.ObjectType_OBJECT_TABLE {
		return nil
	}

	msg := "Replaying DROP TABLE deletes the table and every row in it"

	// Every version log opens with DROP TABLE IF EXISTS; replaying it into
	// the scratch schema is expected but still destroys the target.
	if drop.MissingOk {
		msg = "Replaying DROP TABLE IF EXISTS deletes the table when it already exists"
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Critical,
		Table:      strings.Join(dropTableNames(drop), ", "),
		Message:    msg,
		Suggestion: "Replay into an empty schema, or export the report as a file and review it first",
		LockType:   "ACCESS EXCLUSIVE",
		StmtIndex:  ctx.StmtIndex,
	}}
}

func (r *DropTableRule) checkTruncate(trunc *pg_query.TruncateStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	if trunc == nil {
		return nil
	}

	var tables []string

	for _, rel := range trunc.Relations {
		if rv, ok := rel.Node.(*pg_query.Node_RangeVar); ok {
			tables = append(tables, analyzer.TableName(rv.RangeVar))
		}
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Critical,
		Table:      strings.Join(tables, ", "),
		Message:    "Replaying TRUNCATE empties the table",
		Suggestion: "Filter the report to exclude the TRUNCATE, or replay into a scratch schema",
		LockType:   "ACCESS EXCLUSIVE",
		StmtIndex:  ctx.StmtIndex,
	}}
}

func dropTableNames(drop *pg_query.DropStmt) []string {
	var tables []string

	for _, obj := range drop.Objects {
		listNode, ok := obj.Node.(*pg_query.Node_List)
		if !ok {
			continue
		}

		var parts []string

		for _, item := range listNode.List.Items {
			if s, ok := item.Node.(*pg_query.Node_String_); ok {
				parts = append(parts, s.String_.Sval)
			}
		}

		if len(parts) > 0 {
			tables = append(tables, strings.Join(parts, "."))
		}
	}

	return tables
}
