// Package errors provides the error taxonomy for ssbatch. It defines sentinel
// errors, typed domain errors with context builders, and classification
// helpers that decide whether a failure is fatal to a whole batch or only to
// a single (clone, pool) pair.
//
// # Error Types
//
// Batch-level errors stop a run before any pair is processed:
//   - IndexError: the sample index could not be parsed (MalformedIndex)
//   - MountError: the remote sample volume could not be mounted
//
// Pair-level errors are converted into a pair outcome and never abort
// unrelated pairs:
//   - PairError with Kind IncompleteRecord, PipelineExecution,
//     AnnotationWrite, Archival or Canceled
//
// Collaborator errors:
//   - UploadError: a result upload or query against the ICE REST API failed
//
// # Usage
//
//	err := errors.NewPairError(errors.KindPipelineExecution, "pipeline exited non-zero", cause).
//		WithPair("cloneA/pool1").
//		WithExitCode(2).
//		WithOutput(out)
//
//	if errors.Is(err, errors.ErrPipelineExecution) { ... }
//
//	var pe *errors.PairError
//	if errors.As(err, &pe) { fmt.Println(pe.Output) }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityWarning is for failures that leave the primary result intact.
	SeverityWarning Severity = iota
	// SeverityError is for failures of a single unit of work.
	SeverityError
	// SeverityCritical is for failures that stop the whole batch.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Batch-fatal sentinel errors
var (
	// ErrMalformedIndex indicates the sample index could not be parsed.
	ErrMalformedIndex = New("malformed index")
	// ErrMount indicates the remote sample volume could not be mounted.
	ErrMount = New("mount failed")
)

// Pair-level sentinel errors
var (
	// ErrIncompletePairRecord indicates a pair is missing its call or score.
	ErrIncompletePairRecord = New("incomplete pair record")
	// ErrPipelineExecution indicates the variant-calling pipeline failed.
	ErrPipelineExecution = New("pipeline execution failed")
	// ErrAnnotationWrite indicates a call or score file could not be written.
	ErrAnnotationWrite = New("annotation write failed")
	// ErrArchival indicates compression or cleanup of a pair directory failed.
	ErrArchival = New("archival failed")
	// ErrCanceled indicates the pair was interrupted by cancellation.
	ErrCanceled = New("canceled")
)

// Collaborator sentinel errors
var (
	// ErrUpload indicates an ICE upload or query failed.
	ErrUpload = New("upload failed")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if the cause matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable reports whether re-running the same unit of work may succeed.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// Message returns the message without cause or context decoration.
func (e *baseError) Message() string {
	return e.message
}

// format renders "prefix [k=v, ...]: message: cause".
func (e *baseError) format(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// IndexError
// -----------------------------------------------------------------------------

// IndexError reports an unparseable sample index. Line and Column are
// 1-based and zero when unknown.
//
// Example:
//
//	err := errors.NewIndexError("pool entry must be a mapping", nil).
//		WithSource("samples.yaml").WithPosition(4, 9)
//	fmt.Println(err) // "malformed index [source=samples.yaml, line=4, column=9]: pool entry must be a mapping"
type IndexError struct {
	baseError
	Source string
	Line   int
	Column int
}

// NewIndexError creates a new IndexError.
func NewIndexError(message string, cause error) *IndexError {
	return &IndexError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityCritical,
		},
	}
}

// WithSource records the name of the index source.
func (e *IndexError) WithSource(source string) *IndexError {
	e.Source = source
	return e
}

// WithPosition records the offending fragment location.
func (e *IndexError) WithPosition(line, column int) *IndexError {
	e.Line = line
	e.Column = column
	return e
}

// Location returns "source:line:column", omitting unknown parts.
func (e *IndexError) Location() string {
	loc := e.Source
	if loc == "" {
		loc = "<index>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
		if e.Column > 0 {
			loc = fmt.Sprintf("%s:%d", loc, e.Column)
		}
	}
	return loc
}

// Error returns the formatted error message.
func (e *IndexError) Error() string {
	var parts []string
	if e.Source != "" {
		parts = append(parts, fmt.Sprintf("source=%s", e.Source))
	}
	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line=%d", e.Line))
	}
	if e.Column > 0 {
		parts = append(parts, fmt.Sprintf("column=%d", e.Column))
	}
	return e.format("malformed index", parts)
}

// Is checks if this error matches the target.
func (e *IndexError) Is(target error) bool {
	if _, ok := target.(*IndexError); ok {
		return true
	}
	if target == ErrMalformedIndex {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// PairError
// -----------------------------------------------------------------------------

// PairErrorKind classifies a pair-level failure.
type PairErrorKind int

const (
	// KindIncompleteRecord means the pair's call or score is empty.
	KindIncompleteRecord PairErrorKind = iota
	// KindPipelineExecution means the external pipeline exited non-zero.
	KindPipelineExecution
	// KindAnnotationWrite means a call or score file write failed.
	KindAnnotationWrite
	// KindArchival means compression or cleanup failed after a successful run.
	KindArchival
	// KindCanceled means the run was interrupted before the pair finished.
	KindCanceled
)

// String returns the taxonomy name of the kind.
func (k PairErrorKind) String() string {
	switch k {
	case KindIncompleteRecord:
		return "IncompletePairRecord"
	case KindPipelineExecution:
		return "PipelineExecutionError"
	case KindAnnotationWrite:
		return "AnnotationWriteError"
	case KindArchival:
		return "ArchivalError"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// sentinel maps a kind to the sentinel error it matches under errors.Is.
func (k PairErrorKind) sentinel() error {
	switch k {
	case KindIncompleteRecord:
		return ErrIncompletePairRecord
	case KindPipelineExecution:
		return ErrPipelineExecution
	case KindAnnotationWrite:
		return ErrAnnotationWrite
	case KindArchival:
		return ErrArchival
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// PairError represents a failure while processing one (clone, pool) pair.
// Output holds the captured stdout/stderr of the failing external step.
//
// Example:
//
//	err := errors.NewPairError(errors.KindPipelineExecution, "pipeline exited non-zero", nil).
//		WithPair("cloneA/pool1").WithStep("pipeline").WithExitCode(1)
//	fmt.Println(err) // "PipelineExecutionError [pair=cloneA/pool1, step=pipeline, exit=1]: pipeline exited non-zero"
type PairError struct {
	baseError
	Kind     PairErrorKind
	PairID   string
	Step     string
	ExitCode int
	Output   string
	// Partial is set on archival errors where the archive was written but
	// cleanup of the intermediates failed.
	Partial bool
}

// NewPairError creates a new PairError of the given kind.
func NewPairError(kind PairErrorKind, message string, cause error) *PairError {
	severity := SeverityError
	if kind == KindArchival {
		severity = SeverityWarning
	}
	return &PairError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  severity,
			retryable: kind == KindPipelineExecution || kind == KindAnnotationWrite || kind == KindArchival,
		},
		Kind: kind,
	}
}

// WithPair adds the pair identifier to the error context.
func (e *PairError) WithPair(id string) *PairError {
	e.PairID = id
	return e
}

// WithStep adds the failing step name to the error context.
func (e *PairError) WithStep(step string) *PairError {
	e.Step = step
	return e
}

// WithExitCode records the external process exit code.
func (e *PairError) WithExitCode(code int) *PairError {
	e.ExitCode = code
	return e
}

// WithOutput records captured process output for diagnosis.
func (e *PairError) WithOutput(output string) *PairError {
	e.Output = output
	return e
}

// WithPartial marks an archival error as partial (archive retained).
func (e *PairError) WithPartial(partial bool) *PairError {
	e.Partial = partial
	return e
}

// Error returns the formatted error message.
func (e *PairError) Error() string {
	var parts []string
	if e.PairID != "" {
		parts = append(parts, fmt.Sprintf("pair=%s", e.PairID))
	}
	if e.Step != "" {
		parts = append(parts, fmt.Sprintf("step=%s", e.Step))
	}
	if e.ExitCode != 0 {
		parts = append(parts, fmt.Sprintf("exit=%d", e.ExitCode))
	}
	if e.Partial {
		parts = append(parts, "partial")
	}
	return e.format(e.Kind.String(), parts)
}

// Is checks if this error matches the target.
func (e *PairError) Is(target error) bool {
	if _, ok := target.(*PairError); ok {
		return true
	}
	if s := e.Kind.sentinel(); s != nil && target == s {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// MountError
// -----------------------------------------------------------------------------

// MountError represents a failure to mount the remote sample volume.
type MountError struct {
	baseError
	Share  string
	Dir    string
	Output string
}

// NewMountError creates a new MountError.
func NewMountError(message string, cause error) *MountError {
	return &MountError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityCritical,
		},
	}
}

// WithShare records the remote share address.
func (e *MountError) WithShare(share string) *MountError {
	e.Share = share
	return e
}

// WithDir records the local mount point.
func (e *MountError) WithDir(dir string) *MountError {
	e.Dir = dir
	return e
}

// WithOutput records the mount command's output.
func (e *MountError) WithOutput(output string) *MountError {
	e.Output = output
	return e
}

// Error returns the formatted error message.
func (e *MountError) Error() string {
	var parts []string
	if e.Share != "" {
		parts = append(parts, fmt.Sprintf("share=%s", e.Share))
	}
	if e.Dir != "" {
		parts = append(parts, fmt.Sprintf("dir=%s", e.Dir))
	}
	return e.format("mount error", parts)
}

// Is checks if this error matches the target.
func (e *MountError) Is(target error) bool {
	if _, ok := target.(*MountError); ok {
		return true
	}
	if target == ErrMount {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// UploadError
// -----------------------------------------------------------------------------

// UploadError represents a failed request against the ICE REST API.
type UploadError struct {
	baseError
	File       string
	EntryID    string
	StatusCode int
}

// NewUploadError creates a new UploadError.
func NewUploadError(message string, cause error) *UploadError {
	return &UploadError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithFile records the file being uploaded.
func (e *UploadError) WithFile(file string) *UploadError {
	e.File = file
	return e
}

// WithEntry records the ICE entry ID.
func (e *UploadError) WithEntry(id string) *UploadError {
	e.EntryID = id
	return e
}

// WithStatus records the HTTP status code.
func (e *UploadError) WithStatus(code int) *UploadError {
	e.StatusCode = code
	return e
}

// Error returns the formatted error message.
func (e *UploadError) Error() string {
	var parts []string
	if e.EntryID != "" {
		parts = append(parts, fmt.Sprintf("entry=%s", e.EntryID))
	}
	if e.File != "" {
		parts = append(parts, fmt.Sprintf("file=%s", e.File))
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	return e.format("upload error", parts)
}

// Is checks if this error matches the target.
func (e *UploadError) Is(target error) bool {
	if _, ok := target.(*UploadError); ok {
		return true
	}
	if target == ErrUpload {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsBatchFatal reports whether err prevents a batch from starting at all.
// Only index-load and mount failures are batch-fatal.
func IsBatchFatal(err error) bool {
	return errors.Is(err, ErrMalformedIndex) || errors.Is(err, ErrMount)
}

// IsRetryable reports whether re-running the failed unit of work may succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// GetSeverity returns the severity of err, defaulting to SeverityError.
func GetSeverity(err error) Severity {
	var s interface{ Severity() Severity }
	if errors.As(err, &s) {
		return s.Severity()
	}
	return SeverityError
}

// KindOf returns the pair error kind carried by err.
func KindOf(err error) (PairErrorKind, bool) {
	var pe *PairError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// Wrap wraps an error with additional context message.
// Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
// Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
