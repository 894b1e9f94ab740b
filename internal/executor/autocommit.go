package executor

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/table-tracking/internal/parser"
)

// needsAutocommit reports whether a replay must run outside a transaction
// block. PostgreSQL rejects CREATE INDEX CONCURRENTLY and DROP INDEX
// CONCURRENTLY inside one.
func needsAutocommit(statements []string) (bool, error) {
	for i, sql := range statements {
		p, err := parser.Parse(sql)
		if err != nil {
			return false, fmt.Errorf("reading statement %d: %w", i+1, err)
		}

		for _, raw := range p.Stmts {
			if isConcurrent(raw.GetStmt()) {
				return true, nil
			}
		}
	}

	return false, nil
}

func isConcurrent(node *pg_query.Node) bool {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_IndexStmt:
		return n.IndexStmt.GetConcurrent()
	case *pg_query.Node_DropStmt:
		return n.DropStmt.GetConcurrent()
	default:
		return false
	}
}
