package executor

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/Iron-Ham/ssbatch/internal/command"
)

// Recorder is an Executor that records specs instead of running them.
// It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	specs []command.CommandSpec
	out   io.Writer

	// Fail, when set, decides the result of each recorded spec.
	Fail func(spec command.CommandSpec) (Result, error)
}

// NewRecorder creates a Recorder. When out is non-nil every recorded spec
// is printed to it as a shell line.
func NewRecorder(out io.Writer) *Recorder {
	return &Recorder{out: out}
}

// Execute records spec and returns the Fail hook's verdict, or success.
func (r *Recorder) Execute(ctx context.Context, spec command.CommandSpec) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}

	r.mu.Lock()
	r.specs = append(r.specs, spec)
	if r.out != nil {
		_, _ = fmt.Fprintln(r.out, spec.String())
	}
	fail := r.Fail
	r.mu.Unlock()

	if fail != nil {
		return fail(spec)
	}
	return Result{}, nil
}

// Specs returns a copy of everything recorded so far.
func (r *Recorder) Specs() []command.CommandSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.specs)
}

// Len returns the number of recorded specs.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.specs)
}

