package tracker

import "errors"

// ErrEmptyQuery indicates a query with no statements.
var ErrEmptyQuery = errors.New("query holds no statements")
