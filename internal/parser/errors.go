package parser

import "errors"

// ErrNotSingleStatement indicates input that should hold exactly one statement.
var ErrNotSingleStatement = errors.New("expected exactly one SQL statement")

// ErrSyntax indicates SQL the PostgreSQL parser rejects.
var ErrSyntax = errors.New("SQL syntax error")
