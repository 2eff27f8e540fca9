package services

import "errors"

// ErrDataInsufficient marks a computation skipped because a symbol does not
// have enough history for the requested window. Callers log it and move on;
// it never aborts the rest of a run.
var ErrDataInsufficient = errors.New("insufficient historical data")
