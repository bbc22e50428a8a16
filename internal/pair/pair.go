// Package pair runs the per-pair step sequence: validate the record, run the
// variant-calling pipeline, write the call and score annotations, and
// optionally archive the results.
//
// Every failure is returned as part of an Outcome rather than as an error so
// a batch can keep going with unrelated pairs.
package pair

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Iron-Ham/ssbatch/internal/errors"
	"github.com/Iron-Ham/ssbatch/internal/index"
)

// Layout derives a pair's directory from its ID.
type Layout string

const (
	// LayoutPool names the directory after the pool.
	LayoutPool Layout = "pool"
	// LayoutClonePool nests the pool directory under the clone.
	LayoutClonePool Layout = "clone/pool"
)

// Layouts returns every supported layout.
func Layouts() []Layout {
	return []Layout{LayoutPool, LayoutClonePool}
}

// ParseLayout validates a layout name. The empty string means LayoutPool.
func ParseLayout(s string) (Layout, error) {
	if s == "" {
		return LayoutPool, nil
	}
	l := Layout(s)
	if !slices.Contains(Layouts(), l) {
		return "", errors.Wrapf(errors.ErrInvalidInput, "unknown layout %q", s)
	}
	return l, nil
}

// Dir returns the directory for id, relative to the batch root.
func (l Layout) Dir(id index.PairID) string {
	if l == LayoutClonePool {
		return filepath.Join(id.Clone, id.Pool)
	}
	return id.Pool
}

// Context is everything the runner needs for one pair. It is built once per
// pair and never shared.
type Context struct {
	ID     index.PairID
	Dir    string
	Record index.PairRecord
	// RunID tags the pair's log entries with the batch that ran it.
	RunID string
}

// NewContext derives a pair context from the index entry and layout.
func NewContext(id index.PairID, rec index.PairRecord, layout Layout) Context {
	return Context{
		ID:     id,
		Dir:    layout.Dir(id),
		Record: rec,
	}
}

// Status is the final state of a pair.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	// StatusSkipped marks a pair never started because the batch halted or
	// was canceled.
	StatusSkipped
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText encodes the status name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{StatusSuccess, StatusFailed, StatusSkipped} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return errors.Wrapf(errors.ErrInvalidInput, "unknown status %q", text)
}

// StepResult records one executed step.
type StepResult struct {
	Name     string        `json:"name"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration_ns"`
}

// Outcome is the result of running one pair.
type Outcome struct {
	ID     index.PairID
	Dir    string
	Status Status
	// Err is set when Status is failed or skipped.
	Err error
	// Warning is set when the pair succeeded but archival did not.
	Warning error
	// Archive is the bundle path when one was written.
	Archive  string
	Steps    []StepResult
	Duration time.Duration
}

// Succeeded reports whether the pair completed its required steps.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// Skip returns the outcome of a pair that was never started.
func Skip(pc Context, reason error) Outcome {
	return Outcome{
		ID:     pc.ID,
		Dir:    pc.Dir,
		Status: StatusSkipped,
		Err:    reason,
	}
}

// incompleteRecord builds the error for a record missing call or score.
func incompleteRecord(pc Context) error {
	return errors.NewPairError(errors.KindIncompleteRecord,
		"missing "+strings.Join(pc.Record.Missing(), ", "), nil).
		WithPair(pc.ID.String())
}
