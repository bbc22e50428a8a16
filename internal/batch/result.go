package batch

import (
	"time"

	"github.com/Iron-Ham/ssbatch/internal/index"
	"github.com/Iron-Ham/ssbatch/internal/pair"
)

// Result is the immutable record of a finished batch.
type Result struct {
	RunID    string
	Entries  []pair.Outcome
	Started  time.Time
	Finished time.Time
}

// Counts summarizes a Result.
type Counts struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	// Warnings counts succeeded pairs whose archival failed.
	Warnings int `json:"warnings"`
}

// Counts tallies entries by status.
func (r *Result) Counts() Counts {
	c := Counts{Total: len(r.Entries)}
	for _, e := range r.Entries {
		switch e.Status {
		case pair.StatusSuccess:
			c.Succeeded++
			if e.Warning != nil {
				c.Warnings++
			}
		case pair.StatusFailed:
			c.Failed++
		case pair.StatusSkipped:
			c.Skipped++
		}
	}
	return c
}

// OK reports whether every pair succeeded.
func (r *Result) OK() bool {
	c := r.Counts()
	return c.Succeeded == c.Total
}

// Duration is the wall time of the batch.
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Entry returns the outcome recorded for id.
func (r *Result) Entry(id index.PairID) (pair.Outcome, bool) {
	for _, e := range r.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return pair.Outcome{}, false
}

// Failures returns the failed entries in index order.
func (r *Result) Failures() []pair.Outcome {
	var failed []pair.Outcome
	for _, e := range r.Entries {
		if e.Status == pair.StatusFailed {
			failed = append(failed, e)
		}
	}
	return failed
}
