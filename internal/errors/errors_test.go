package errors

import (
	"errors"
	"fmt"
	"testing"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// IndexError Tests
// -----------------------------------------------------------------------------

func TestIndexError(t *testing.T) {
	err := NewIndexError("pool entry must be a mapping", nil).
		WithSource("samples.yaml").
		WithPosition(4, 9)

	want := "malformed index [source=samples.yaml, line=4, column=9]: pool entry must be a mapping"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got := err.Location(); got != "samples.yaml:4:9" {
		t.Errorf("Location() = %q, want %q", got, "samples.yaml:4:9")
	}
	if !errors.Is(err, ErrMalformedIndex) {
		t.Error("errors.Is(err, ErrMalformedIndex) = false, want true")
	}
	if err.Severity() != SeverityCritical {
		t.Errorf("Severity() = %v, want critical", err.Severity())
	}
	if !IsBatchFatal(err) {
		t.Error("IsBatchFatal() = false, want true")
	}
}

func TestIndexError_LocationUnknown(t *testing.T) {
	err := NewIndexError("bad", nil)
	if got := err.Location(); got != "<index>" {
		t.Errorf("Location() = %q, want %q", got, "<index>")
	}
}

// -----------------------------------------------------------------------------
// PairError Tests
// -----------------------------------------------------------------------------

func TestPairError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *PairError
		want string
	}{
		{
			name: "pipeline with exit code",
			err: NewPairError(KindPipelineExecution, "pipeline exited non-zero", nil).
				WithPair("cloneA/pool1").WithStep("pipeline").WithExitCode(1),
			want: "PipelineExecutionError [pair=cloneA/pool1, step=pipeline, exit=1]: pipeline exited non-zero",
		},
		{
			name: "incomplete record without context",
			err:  NewPairError(KindIncompleteRecord, "call is empty", nil),
			want: "IncompletePairRecord: call is empty",
		},
		{
			name: "partial archival with cause",
			err: NewPairError(KindArchival, "cleanup failed", fmt.Errorf("permission denied")).
				WithPair("cloneA/pool1").WithPartial(true),
			want: "ArchivalError [pair=cloneA/pool1, partial]: cleanup failed: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPairError_IsMatchesKindSentinel(t *testing.T) {
	tests := []struct {
		kind     PairErrorKind
		sentinel error
	}{
		{KindIncompleteRecord, ErrIncompletePairRecord},
		{KindPipelineExecution, ErrPipelineExecution},
		{KindAnnotationWrite, ErrAnnotationWrite},
		{KindArchival, ErrArchival},
		{KindCanceled, ErrCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewPairError(tt.kind, "x", nil))
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false, want true", tt.kind)
			}
			var pe *PairError
			if !errors.As(err, &pe) {
				t.Fatal("errors.As failed")
			}
			if pe.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", pe.Kind, tt.kind)
			}
			if IsBatchFatal(err) {
				t.Error("pair errors must not be batch-fatal")
			}
		})
	}

	if errors.Is(NewPairError(KindPipelineExecution, "x", nil), ErrAnnotationWrite) {
		t.Error("pipeline error should not match ErrAnnotationWrite")
	}
}

func TestPairError_Classification(t *testing.T) {
	if IsRetryable(NewPairError(KindIncompleteRecord, "x", nil)) {
		t.Error("incomplete record should not be retryable")
	}
	if !IsRetryable(NewPairError(KindPipelineExecution, "x", nil)) {
		t.Error("pipeline failure should be retryable")
	}
	if got := GetSeverity(NewPairError(KindArchival, "x", nil)); got != SeverityWarning {
		t.Errorf("archival severity = %v, want warning", got)
	}
	if got := GetSeverity(errors.New("plain")); got != SeverityError {
		t.Errorf("plain severity = %v, want error", got)
	}

	kind, ok := KindOf(fmt.Errorf("ctx: %w", NewPairError(KindAnnotationWrite, "x", nil)))
	if !ok || kind != KindAnnotationWrite {
		t.Errorf("KindOf() = %v, %v, want AnnotationWriteError, true", kind, ok)
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf(plain) should report false")
	}
}

// -----------------------------------------------------------------------------
// Collaborator Error Tests
// -----------------------------------------------------------------------------

func TestMountError(t *testing.T) {
	cause := errors.New("exit status 32")
	err := NewMountError("mount command failed", cause).
		WithShare("//smb.example.org/miseq").
		WithDir("/mnt/miseq")

	want := "mount error [share=//smb.example.org/miseq, dir=/mnt/miseq]: mount command failed: exit status 32"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrMount) || !errors.Is(err, cause) {
		t.Error("MountError should match ErrMount and its cause")
	}
	if !IsBatchFatal(err) {
		t.Error("mount failures are batch-fatal")
	}
}

func TestUploadError(t *testing.T) {
	err := NewUploadError("unexpected status", nil).
		WithEntry("42").
		WithFile("cloneA.ss.zip").
		WithStatus(403)

	want := "upload error [entry=42, file=cloneA.ss.zip, status=403]: unexpected status"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrUpload) {
		t.Error("errors.Is(err, ErrUpload) = false, want true")
	}
	if IsBatchFatal(err) {
		t.Error("upload failures are not batch-fatal")
	}
}

// -----------------------------------------------------------------------------
// Wrap Tests
// -----------------------------------------------------------------------------

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}

	base := errors.New("boom")
	if got := Wrapf(base, "pair %s", "a/b").Error(); got != "pair a/b: boom" {
		t.Errorf("Wrapf() = %q", got)
	}
	if !errors.Is(Wrap(base, "ctx"), base) {
		t.Error("Wrap should preserve the chain")
	}
}
