package tracking

import "errors"

// ErrInvalidEntryID indicates a log row id outside the log.
var ErrInvalidEntryID = errors.New("invalid tracking entry id")

// ErrInvalidLogType indicates an unknown report log type.
var ErrInvalidLogType = errors.New("invalid log type")

// ErrInvalidDate indicates a report date filter that cannot be parsed.
var ErrInvalidDate = errors.New("invalid date")
