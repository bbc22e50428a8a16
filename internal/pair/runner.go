package pair

import (
	"context"
	"time"

	"github.com/Iron-Ham/ssbatch/internal/archive"
	"github.com/Iron-Ham/ssbatch/internal/command"
	"github.com/Iron-Ham/ssbatch/internal/errors"
	"github.com/Iron-Ham/ssbatch/internal/executor"
	"github.com/Iron-Ham/ssbatch/internal/logging"
)

// Runner executes the step sequence for single pairs. A Runner holds no
// per-pair state and may be shared by concurrent workers.
type Runner struct {
	exec      executor.Executor
	composer  *command.Composer
	archive   bool
	artifacts []string
	logger    *logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithArchive enables the compress-and-cleanup step.
func WithArchive(enabled bool) Option {
	return func(r *Runner) {
		r.archive = enabled
	}
}

// WithArtifacts overrides the files bundled by the archive step.
func WithArtifacts(names []string) Option {
	return func(r *Runner) {
		r.artifacts = names
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner that executes steps with exec.
func NewRunner(exec executor.Executor, composer *command.Composer, opts ...Option) *Runner {
	r := &Runner{
		exec:     exec,
		composer: composer,
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// required pairs a step with the error kind its failure maps to.
type required struct {
	spec command.CommandSpec
	kind errors.PairErrorKind
}

// Run processes one pair. Steps run strictly in order and stop at the first
// failure. An incomplete record fails before anything is executed.
func (r *Runner) Run(ctx context.Context, pc Context) Outcome {
	start := time.Now()
	out := Outcome{ID: pc.ID, Dir: pc.Dir}
	log := r.logger
	if pc.RunID != "" {
		log = log.WithRun(pc.RunID)
	}
	log = log.WithPair(pc.ID.Clone, pc.ID.Pool)

	finish := func() Outcome {
		out.Duration = time.Since(start)
		switch out.Status {
		case StatusSuccess:
			log.Info("pair completed", "dir", pc.Dir, "duration_ms", out.Duration.Milliseconds())
		default:
			log.Error("pair failed", "dir", pc.Dir, "error", out.Err.Error())
		}
		return out
	}

	if !pc.Record.Complete() {
		out.Status = StatusFailed
		out.Err = incompleteRecord(pc)
		return finish()
	}

	log.Info("pair started", "dir", pc.Dir)

	steps := []required{
		{r.composer.Pipeline(pc.Dir, pc.ID.Clone, pc.ID.Pool), errors.KindPipelineExecution},
		{r.composer.Annotate(pc.Dir, command.CallField, pc.Record.Call), errors.KindAnnotationWrite},
		{r.composer.Annotate(pc.Dir, command.ScoreField, pc.Record.Display), errors.KindAnnotationWrite},
	}
	for _, s := range steps {
		if res, err := r.step(ctx, &out, s.spec); err != nil {
			out.Status = StatusFailed
			out.Err = stepError(ctx, pc, s.kind, s.spec, res, err)
			return finish()
		}
	}

	out.Status = StatusSuccess
	if r.archive {
		if err := r.archiveStep(ctx, pc, &out); err != nil {
			out.Warning = err
			log.Warn("archival failed", "error", err.Error())
		}
	}
	return finish()
}

// step executes spec and records its result on out.
func (r *Runner) step(ctx context.Context, out *Outcome, spec command.CommandSpec) (executor.Result, error) {
	res, err := r.exec.Execute(ctx, spec)
	out.Steps = append(out.Steps, StepResult{
		Name:     spec.Name,
		ExitCode: res.ExitCode,
		Duration: res.Duration,
	})
	return res, err
}

// stepError converts a failed required step into a PairError carrying the
// step's exit code and captured output. Failures caused by cancellation are
// reported as such regardless of the step.
func stepError(ctx context.Context, pc Context, kind errors.PairErrorKind, spec command.CommandSpec, res executor.Result, cause error) *errors.PairError {
	msg := spec.Name + " failed"
	if ctx.Err() != nil {
		kind = errors.KindCanceled
		msg = spec.Name + " interrupted"
	}
	return errors.NewPairError(kind, msg, cause).
		WithPair(pc.ID.String()).
		WithStep(spec.Name).
		WithExitCode(res.ExitCode).
		WithOutput(res.Output)
}

// archiveStep bundles the artifacts and then removes them. Compression
// failure leaves everything in place; cleanup failure keeps the archive and
// is reported as partial.
func (r *Runner) archiveStep(ctx context.Context, pc Context, out *Outcome) error {
	plan := archive.Bundle(r.composer.WorkDir, pc.Dir, pc.ID.Clone, r.artifacts)

	if _, err := r.step(ctx, out, plan.Compress); err != nil {
		return errors.NewPairError(errors.KindArchival, "could not create "+plan.Archive(), err).
			WithPair(pc.ID.String()).
			WithStep(plan.Compress.Name)
	}
	out.Archive = plan.Archive()

	if _, err := r.step(ctx, out, plan.Cleanup); err != nil {
		return errors.NewPairError(errors.KindArchival, "intermediates not removed", err).
			WithPair(pc.ID.String()).
			WithStep(plan.Cleanup.Name).
			WithPartial(true)
	}
	return nil
}
