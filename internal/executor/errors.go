package executor

import "errors"

// ErrExecutionFailed indicates a replayed statement failed to execute.
var ErrExecutionFailed = errors.New("replay execution failed")

// ErrReplayInProgress indicates another session is already replaying a report.
var ErrReplayInProgress = errors.New("another replay is in progress")
