package command

import (
	"path/filepath"
	"time"
)

// Fixed parts of the pipeline's argument contract.
const (
	// ModeMiSeq is the platform tag for MiSeq runs.
	ModeMiSeq = "MS"
	// AnalysisName is the output prefix the pipeline writes under a pair directory.
	AnalysisName = "analysis"
)

// Annotation file names.
const (
	CallField  = "call"
	ScoreField = "score"
)

// Step names used in logs and errors.
const (
	StepPipeline = "pipeline"
	StepCompress = "compress"
	StepCleanup  = "cleanup"
)

// Composer builds the per-pair command specs. It never executes anything;
// the zero value is not useful, use NewComposer.
type Composer struct {
	// Program is the interpreter or binary to launch.
	Program string
	// ProgramArgs precede the positional pipeline arguments (e.g. the script path).
	ProgramArgs []string
	// Mode is the platform tag passed as the first positional argument.
	Mode string
	// WorkDir is where every step runs; pair directories are relative to it.
	WorkDir string
	// Timeout bounds one pipeline invocation; zero means unbounded.
	Timeout time.Duration
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithMode overrides the platform tag.
func WithMode(mode string) ComposerOption {
	return func(c *Composer) {
		if mode != "" {
			c.Mode = mode
		}
	}
}

// WithWorkDir sets the batch root.
func WithWorkDir(dir string) ComposerOption {
	return func(c *Composer) {
		if dir != "" {
			c.WorkDir = dir
		}
	}
}

// WithTimeout bounds each pipeline invocation.
func WithTimeout(d time.Duration) ComposerOption {
	return func(c *Composer) {
		c.Timeout = d
	}
}

// NewComposer returns a Composer that launches program with args.
func NewComposer(program string, args []string, opts ...ComposerOption) *Composer {
	c := &Composer{
		Program:     program,
		ProgramArgs: append([]string(nil), args...),
		Mode:        ModeMiSeq,
		WorkDir:     ".",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pipeline returns the variant-calling invocation for one pair:
//
//	<program> <args...> <mode> <dir> <clone> <pool> <dir>/analysis
func (c *Composer) Pipeline(dir, clone, pool string) CommandSpec {
	args := make([]string, 0, len(c.ProgramArgs)+5)
	args = append(args, c.ProgramArgs...)
	args = append(args, c.Mode, dir, clone, pool, AnalysisPath(dir))

	return CommandSpec{
		Kind:    KindExec,
		Name:    StepPipeline,
		Program: c.Program,
		Args:    args,
		Dir:     c.WorkDir,
		Timeout: c.Timeout,
	}
}

// Annotate returns a write of value into dir/field. The file holds a single
// line and is overwritten on every run.
func (c *Composer) Annotate(dir, field, value string) CommandSpec {
	return CommandSpec{
		Kind:    KindWriteFile,
		Name:    field,
		Path:    filepath.Join(dir, field),
		Content: value + "\n",
		Dir:     c.WorkDir,
	}
}

// AnalysisPath returns the pipeline output prefix for dir.
func AnalysisPath(dir string) string {
	return filepath.Join(dir, AnalysisName)
}
