package analyzer

import "errors"

// ErrUnknownSeverity indicates a severity label outside SAFE..CRITICAL.
var ErrUnknownSeverity = errors.New("unknown severity")
