package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Parsed is a parsed query: the statement nodes and the trimmed text they
// were parsed from.
type Parsed struct {
	Stmts []*pg_query.RawStmt
	SQL   string

	tokens []*pg_query.ScanToken
}

// Parse parses a PostgreSQL query. Blank input yields no statements.
func Parse(sql string) (*Parsed, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &Parsed{}, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}

	scan, err := pg_query.Scan(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}

	return &Parsed{Stmts: tree.GetStmts(), SQL: trimmed, tokens: scan.GetTokens()}, nil
}

// Len returns the number of statements.
func (p *Parsed) Len() int {
	return len(p.Stmts)
}

// Text returns statement i as written, ending with a single semicolon.
// Leading and inner comments are kept; comments after the last token are
// dropped so the terminator is never commented out. It returns "" when i
// is out of range.
func (p *Parsed) Text(i int) string {
	if i < 0 || i >= len(p.Stmts) {
		return ""
	}

	start := int(p.Stmts[i].GetStmtLocation())

	end := len(p.SQL)
	if n := int(p.Stmts[i].GetStmtLen()); n > 0 {
		end = start + n
	} else if i+1 < len(p.Stmts) {
		end = int(p.Stmts[i+1].GetStmtLocation())
	}

	if start >= end || end > len(p.SQL) {
		return ""
	}

	end = p.lastTokenEnd(start, end)

	text := strings.TrimSpace(p.SQL[start:end])
	text = strings.TrimSpace(strings.TrimSuffix(text, ";"))

	return text + ";"
}

// lastTokenEnd returns the end of the last token in [start, end) that is
// neither a comment nor a semicolon, or end when no token qualifies.
func (p *Parsed) lastTokenEnd(start, end int) int {
	for i := len(p.tokens) - 1; i >= 0; i-- {
		tok := p.tokens[i]
		if int(tok.GetStart()) < start || int(tok.GetEnd()) > end {
			continue
		}

		switch tok.GetToken() { //nolint:exhaustive // only trailing noise is skipped
		case pg_query.Token_SQL_COMMENT, pg_query.Token_C_COMMENT, pg_query.Token_ASCII_59:
			continue
		default:
			return int(tok.GetEnd())
		}
	}

	return end
}

// Texts returns the text of every statement in order.
func (p *Parsed) Texts() []string {
	out := make([]string, len(p.Stmts))
	for i := range p.Stmts {
		out[i] = p.Text(i)
	}

	return out
}
