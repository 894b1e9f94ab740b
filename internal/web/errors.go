package web

import "errors"

// ErrInvalidParam indicates a malformed request parameter.
var ErrInvalidParam = errors.New("invalid request parameter")

// ErrDangerousStatements indicates an execution export that needs to be
// forced because the analyzer flagged some of its statements.
var ErrDangerousStatements = errors.New("dangerous statements found")
