package analyzer

import (
	"github.com/aqasim81/table-tracking/internal/parser"
)

// Option configures the Analyzer.
type Option func(*Analyzer)

// Analyzer runs registered rules against tracked statements.
type Analyzer struct {
	registry *Registry
	parseFn  func(string) (*parser.Parsed, error)
}

// New creates a new Analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry: NewRegistry(),
		parseFn:  parser.Parse,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithRegistry sets a custom rule registry.
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// WithParser overrides the SQL parser function (useful for testing).
func WithParser(fn func(string) (*parser.Parsed, error)) Option {
	return func(a *Analyzer) { a.parseFn = fn }
}

// Analyze checks every statement of a log against the registered rules.
// Findings carry the index of the statement they belong to. Statements
// that do not parse are listed in Unparsed and otherwise ignored, since a
// log may hold text the current parser rejects.
func (a *Analyzer) Analyze(statements []string) *Result {
	res := &Result{
		MaxSeverity: Safe,
		bySeverity:  make(map[int]Severity),
	}

	for i, sql := range statements {
		parsed, err := a.parseFn(sql)
		if err != nil {
			res.Unparsed = append(res.Unparsed, i)

			continue
		}

		for _, stmt := range parsed.Stmts {
			ctx := &RuleContext{StmtIndex: i, SQL: sql}

			for _, rule := range a.registry.Rules() {
				for _, f := range rule.Check(stmt, ctx) {
					if f.Statement == "" {
						f.Statement = TruncateSQL(sql, statementDisplayLen)
					}

					res.add(f)
				}
			}
		}
	}

	return res
}
