// Package batch walks a sample index and runs every (clone, pool) pair.
//
// The orchestrator owns the only cross-pair policy: how many pairs run at
// once and whether a failure stops new pairs from starting. Each pair gets
// exactly one entry in the Result, in index order, whether it succeeded,
// failed or never started.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/ssbatch/internal/errors"
	"github.com/Iron-Ham/ssbatch/internal/index"
	"github.com/Iron-Ham/ssbatch/internal/logging"
	"github.com/Iron-Ham/ssbatch/internal/pair"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

// ErrHalted is the skip reason for pairs not started after a failure with
// HaltOnError set.
var ErrHalted = errors.New("batch halted after an earlier failure")

// PairRunner processes a single pair. *pair.Runner satisfies it.
type PairRunner interface {
	Run(ctx context.Context, pc pair.Context) pair.Outcome
}

// Options controls a batch run.
type Options struct {
	// HaltOnError stops starting new pairs after the first failure.
	HaltOnError bool
	// Workers is the maximum number of pairs processed at once; values
	// below 1 mean 1. Pairs sharing a directory never run concurrently.
	Workers int
	// Layout derives each pair's directory.
	Layout pair.Layout
	// Progress, when set, is called after each pair finishes. Calls are
	// serialized.
	Progress func(done, total int, out pair.Outcome)
}

// Orchestrator runs every pair of an index through a PairRunner.
type Orchestrator struct {
	runner PairRunner
	opts   Options
	logger *logging.Logger
}

// New creates an Orchestrator.
func New(runner PairRunner, opts Options, logger *logging.Logger) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Layout == "" {
		opts.Layout = pair.LayoutPool
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Orchestrator{runner: runner, opts: opts, logger: logger}
}

// RunAll processes every pair in idx and returns once all started pairs
// have finished. Canceling ctx stops new pairs from starting; pairs already
// running are interrupted by their executor.
func (o *Orchestrator) RunAll(ctx context.Context, idx *index.SampleIndex) *Result {
	res := &Result{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	log := o.logger.WithRun(res.RunID)

	ids := idx.Pairs()
	res.Entries = make([]pair.Outcome, len(ids))
	log.Info("batch started",
		"pairs", len(ids),
		"workers", o.opts.Workers,
		"halt_on_error", o.opts.HaltOnError,
		"layout", string(o.opts.Layout),
	)

	var (
		halted atomic.Bool
		mu     sync.Mutex
		done   int
	)
	record := func(i int, out pair.Outcome) {
		res.Entries[i] = out
		if o.opts.Progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		o.opts.Progress(done, len(ids), out)
	}

	// Pairs that resolve to the same directory share annotation files and
	// archive members, so each directory's pairs run in index order on a
	// single worker.
	groups := make(map[string][]int)
	var dirs []string
	pcs := make([]pair.Context, len(ids))
	for i, id := range ids {
		rec, _ := idx.Lookup(id)
		pcs[i] = pair.NewContext(id, rec, o.opts.Layout)
		pcs[i].RunID = res.RunID
		if _, ok := groups[pcs[i].Dir]; !ok {
			dirs = append(dirs, pcs[i].Dir)
		}
		groups[pcs[i].Dir] = append(groups[pcs[i].Dir], i)
	}

	runPair := func(i int) {
		pc := pcs[i]
		if reason := o.stopReason(ctx, &halted, pc); reason != nil {
			record(i, pair.Skip(pc, reason))
			return
		}
		out := o.runner.Run(ctx, pc)
		if o.opts.HaltOnError && haltsBatch(out) {
			if !halted.Swap(true) {
				log.Warn("halting batch after failure", "pair", pc.ID.String())
			}
		}
		record(i, out)
	}

	p := pool.New().WithMaxGoroutines(o.opts.Workers)
	for _, dir := range dirs {
		group := groups[dir]
		if o.stopReason(ctx, &halted, pcs[group[0]]) != nil {
			// Every pair in the group is recorded as skipped.
			for _, i := range group {
				runPair(i)
			}
			continue
		}
		if len(group) > 1 {
			log.Debug("serializing pairs sharing a directory", "dir", dir, "pairs", len(group))
		}

		// Go blocks while all workers are busy, so the stop condition is
		// checked again before each pair starts.
		p.Go(func() {
			for _, i := range group {
				runPair(i)
			}
		})
	}
	p.Wait()

	res.Finished = time.Now()
	c := res.Counts()
	log.Info("batch finished",
		"succeeded", c.Succeeded,
		"failed", c.Failed,
		"skipped", c.Skipped,
		"warnings", c.Warnings,
		"duration_ms", res.Duration().Milliseconds(),
	)
	return res
}

// stopReason returns why pc must not start, or nil.
func (o *Orchestrator) stopReason(ctx context.Context, halted *atomic.Bool, pc pair.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.NewPairError(errors.KindCanceled, "batch canceled before pair started", err).
			WithPair(pc.ID.String())
	}
	if halted.Load() {
		return ErrHalted
	}
	return nil
}

// haltsBatch reports whether out should stop a halt-on-error batch. A bad
// index entry is a data defect of that pair alone and never halts.
func haltsBatch(out pair.Outcome) bool {
	if out.Succeeded() {
		return false
	}
	kind, ok := errors.KindOf(out.Err)
	return !ok || (kind != errors.KindIncompleteRecord && kind != errors.KindCanceled)
}
