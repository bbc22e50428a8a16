package cmd

import (
	"fmt"

	"github.com/Iron-Ham/ssbatch/internal/errors"
)

// Process exit codes.
const (
	ExitOK = 0
	// ExitFailures means the command ran but at least one pair or file failed.
	ExitFailures = 1
	// ExitFatal means the batch could not start: the index failed to load or
	// the share failed to mount.
	ExitFatal = 2
)

// ExitError carries a process exit code out of a command. A nil Err means
// the command already reported the problem and nothing more is printed.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Silent reports whether the error has already been shown to the user.
func (e *ExitError) Silent() bool {
	return e.Err == nil
}

// fatal wraps a batch-fatal error with ExitFatal.
func fatal(err error) error {
	return &ExitError{Code: ExitFatal, Err: err}
}

// indexFatal wraps an index load failure with ExitFatal. IndexErrors are
// shown as "source:line:column: message".
func indexFatal(err error) error {
	var ie *errors.IndexError
	if errors.As(err, &ie) {
		err = locatedIndexError{ie}
	}
	return fatal(err)
}

type locatedIndexError struct {
	*errors.IndexError
}

func (e locatedIndexError) Error() string {
	msg := e.Location() + ": " + e.Message()
	if cause := e.IndexError.Unwrap(); cause != nil {
		msg += ": " + cause.Error()
	}
	return msg
}

func (e locatedIndexError) Unwrap() error {
	return e.IndexError
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	if errors.IsBatchFatal(err) {
		return ExitFatal
	}
	return ExitFailures
}

// ShouldPrint reports whether main should print err.
func ShouldPrint(err error) bool {
	if err == nil {
		return false
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return !ee.Silent()
	}
	return true
}
