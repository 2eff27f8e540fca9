package models

import "time"

// SymbolStatus is the outcome of one symbol's turn in a pipeline run.
type SymbolStatus string

const (
	StatusOK      SymbolStatus = "ok"
	StatusNoData  SymbolStatus = "no_data"
	StatusSkipped SymbolStatus = "skipped_locked"
	StatusFailed  SymbolStatus = "failed"
)

// SymbolResult reports what happened to one symbol during a run.
type SymbolResult struct {
	Symbol         string       `json:"symbol"`
	Status         SymbolStatus `json:"status"`
	Error          string       `json:"error,omitempty"`
	IndicatorRows  int          `json:"indicator_rows"`
	PredictionRows int          `json:"prediction_rows"`
	Reconciled     int          `json:"reconciled"`
}

// RunSummary is the per-run report returned by the pipeline trigger. One
// symbol failing never fails the batch; callers inspect Results.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Articles   int            `json:"articles_scored"`
	Results    []SymbolResult `json:"results"`
}

// Failed counts symbols that ended in StatusFailed.
func (s *RunSummary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			n++
		}
	}
	return n
}
