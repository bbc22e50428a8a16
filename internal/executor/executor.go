// Package executor runs command specs.
//
// Local performs them against the operating system. Recorder only remembers
// them and is used for dry runs and for tests that must prove no process was
// spawned and no file was touched.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Iron-Ham/ssbatch/internal/command"
)

// Result describes a finished step.
type Result struct {
	// ExitCode is the child's exit status, 0 for successful filesystem steps
	// and -1 when a child could not be started or was killed by a signal.
	ExitCode int
	// Output is the tail of the combined stdout/stderr of an exec step.
	Output string
	// Duration is the wall time of the step.
	Duration time.Duration
}

// Executor runs one CommandSpec. A non-nil error means the step failed;
// Result is still populated as far as it is known.
type Executor interface {
	Execute(ctx context.Context, spec command.CommandSpec) (Result, error)
}

// ExitError reports a child that exited with a non-zero status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	if e.Code < 0 {
		return "process terminated by signal"
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// TimeoutError reports an exec step that exceeded its configured timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s", e.Timeout)
}

// resolve joins a relative path onto the spec's working directory.
func resolve(spec command.CommandSpec, path string) string {
	if filepath.IsAbs(path) || spec.Dir == "" {
		return path
	}
	return filepath.Join(spec.Dir, path)
}
