package report

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/Iron-Ham/ssbatch/internal/batch"
	"github.com/Iron-Ham/ssbatch/internal/errors"
	"github.com/Iron-Ham/ssbatch/internal/pair"
)

// Summary is the JSON form of a batch result.
type Summary struct {
	RunID      string        `json:"run_id"`
	Started    time.Time     `json:"started"`
	Finished   time.Time     `json:"finished"`
	DurationMS int64         `json:"duration_ms"`
	Counts     batch.Counts  `json:"counts"`
	Pairs      []PairSummary `json:"pairs"`
}

// PairSummary is the JSON form of one pair outcome.
type PairSummary struct {
	Clone      string            `json:"clone"`
	Pool       string            `json:"pool"`
	Dir        string            `json:"dir"`
	Status     pair.Status       `json:"status"`
	Error      string            `json:"error,omitempty"`
	Kind       string            `json:"kind,omitempty"`
	Step       string            `json:"step,omitempty"`
	ExitCode   int               `json:"exit_code,omitempty"`
	Output     string            `json:"output,omitempty"`
	Retryable  bool              `json:"retryable,omitempty"`
	Severity   string            `json:"severity,omitempty"`
	Warning    string            `json:"warning,omitempty"`
	Archive    string            `json:"archive,omitempty"`
	DurationMS int64             `json:"duration_ms"`
	Steps      []pair.StepResult `json:"steps,omitempty"`
}

// NewSummary converts res for encoding.
func NewSummary(res *batch.Result) Summary {
	s := Summary{
		RunID:      res.RunID,
		Started:    res.Started,
		Finished:   res.Finished,
		DurationMS: res.Duration().Milliseconds(),
		Counts:     res.Counts(),
		Pairs:      make([]PairSummary, 0, len(res.Entries)),
	}
	for _, e := range res.Entries {
		s.Pairs = append(s.Pairs, pairSummary(e))
	}
	return s
}

func pairSummary(e pair.Outcome) PairSummary {
	ps := PairSummary{
		Clone:      e.ID.Clone,
		Pool:       e.ID.Pool,
		Dir:        e.Dir,
		Status:     e.Status,
		Archive:    e.Archive,
		DurationMS: e.Duration.Milliseconds(),
		Steps:      e.Steps,
	}
	if e.Err != nil {
		ps.Error = e.Err.Error()
		ps.Retryable = errors.IsRetryable(e.Err)
		ps.Severity = errors.GetSeverity(e.Err).String()
		var pe *errors.PairError
		if errors.As(e.Err, &pe) {
			ps.Kind = pe.Kind.String()
			ps.Step = pe.Step
			ps.ExitCode = pe.ExitCode
			ps.Output = pe.Output
		}
	}
	if e.Warning != nil {
		ps.Warning = e.Warning.Error()
		if ps.Severity == "" {
			ps.Severity = errors.GetSeverity(e.Warning).String()
		}
	}
	return ps
}

// JSON writes res as indented JSON.
func JSON(w io.Writer, res *batch.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewSummary(res))
}

// WriteFile writes the JSON summary of res to path.
func WriteFile(path string, res *batch.Result) error {
	data, err := json.MarshalIndent(NewSummary(res), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
