package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Iron-Ham/ssbatch/internal/batch"
	"github.com/Iron-Ham/ssbatch/internal/command"
	appconfig "github.com/Iron-Ham/ssbatch/internal/config"
	"github.com/Iron-Ham/ssbatch/internal/executor"
	"github.com/Iron-Ham/ssbatch/internal/index"
	"github.com/Iron-Ham/ssbatch/internal/logging"
	"github.com/Iron-Ham/ssbatch/internal/mount"
	"github.com/Iron-Ham/ssbatch/internal/pair"
	"github.com/Iron-Ham/ssbatch/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every pair in a sample index",
	Long: `Run the pipeline for every (clone, pool) pair in a sample index.

The index is a YAML or JSON mapping of clone -> pool -> {call, score}.
Pairs run in index order. Each pair's directory is derived from its pool
(or clone/pool with --layout clone/pool) under --root.

Exit codes:
  0  every pair succeeded
  1  at least one pair failed or was skipped
  2  the index could not be loaded or the share could not be mounted

Examples:
  # Run a batch, continuing past failures
  ssbatch run --index samples.yaml

  # Stop starting new pairs after the first failure and archive results
  ssbatch run --index samples.yaml --halt-on-error --archive

  # Show the commands that would run without executing anything
  ssbatch run --index samples.yaml --dry-run`,
	Args:    cobra.NoArgs,
	PreRunE: bindRunFlags,
	RunE:    runBatch,
}

var (
	runIndex   string
	runDryRun  bool
	runMount   bool
	runJSON    bool
	runQuiet   bool
	runSummary string
)

// runFlagKeys maps run flags onto the config keys they override.
var runFlagKeys = map[string]string{
	"halt-on-error": "batch.halt_on_error",
	"archive":       "batch.archive",
	"workers":       "batch.workers",
	"layout":        "batch.layout",
	"root":          "batch.root",
	"timeout":       "pipeline.timeout",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runIndex, "index", "i", "", "sample index file (YAML or JSON)")
	runCmd.Flags().Bool("halt-on-error", false, "stop starting new pairs after the first failure")
	runCmd.Flags().Bool("archive", false, "bundle each successful pair into {clone}.ss.zip")
	runCmd.Flags().IntP("workers", "w", 1, "number of pairs to process concurrently")
	runCmd.Flags().String("layout", string(pair.LayoutPool), "pair directory layout: pool or clone/pool")
	runCmd.Flags().String("root", ".", "directory pair directories are resolved against")
	runCmd.Flags().Duration("timeout", 0, "timeout for a single pipeline invocation (0 for none)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the commands instead of running them")
	runCmd.Flags().BoolVar(&runMount, "mount", false, "mount the configured share before starting")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the report as JSON")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "do not print per-pair progress")
	runCmd.Flags().StringVar(&runSummary, "summary", "", "also write the JSON report to this file")
	_ = runCmd.MarkFlagRequired("index")
}

// bindRunFlags binds the run flags to their config keys. Binding happens
// per invocation so a flag only overrides the config when it is set.
func bindRunFlags(cmd *cobra.Command, args []string) error {
	return bindFlags(cmd.Flags(), runFlagKeys)
}

func bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	layout, err := pair.ParseLayout(cfg.Batch.Layout)
	if err != nil {
		return err
	}

	ctx, stop := runContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	exec := newExecutor(cfg, logger, out, runDryRun)

	if runMount {
		if err := mount.Mount(ctx, exec, mountOptions(cfg), logger); err != nil {
			return fatal(err)
		}
	}

	idx, err := index.LoadFile(runIndex)
	if err != nil {
		logger.Error("failed to load index", "path", runIndex, "error", err.Error())
		return indexFatal(err)
	}

	runner := newRunner(cfg, exec, logger)
	orch := batch.New(runner, batch.Options{
		HaltOnError: cfg.Batch.HaltOnError,
		Workers:     cfg.Batch.Workers,
		Layout:      layout,
		Progress:    progressPrinter(cmd.ErrOrStderr(), runQuiet || runDryRun),
	}, logger)

	res := orch.RunAll(ctx, idx)

	if runDryRun {
		if rec, ok := exec.(*executor.Recorder); ok {
			_, _ = fmt.Fprintf(out, "dry run: %d pairs, %d steps\n", idx.Len(), rec.Len())
		}
		return nil
	}

	if err := writeReport(out, res, runJSON); err != nil {
		return err
	}
	if runSummary != "" {
		if err := report.WriteFile(runSummary, res); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if failed := res.Failures(); len(failed) > 0 {
		ids := make([]string, len(failed))
		for i, e := range failed {
			ids[i] = e.ID.String()
		}
		logger.Warn("pairs failed", "count", len(failed), "pairs", strings.Join(ids, ","))
	}
	if !res.OK() {
		return &ExitError{Code: ExitFailures}
	}
	return nil
}

// newExecutor returns the process executor, or a recorder that prints
// every step to out for a dry run.
func newExecutor(cfg *appconfig.Config, logger *logging.Logger, out io.Writer, dryRun bool) executor.Executor {
	if dryRun {
		return executor.NewRecorder(out)
	}
	return executor.NewLocal(
		executor.WithMaxOutputBytes(cfg.Pipeline.MaxOutputBytes),
		executor.WithLogger(logger),
	)
}

// newRunner wires the composer and pair runner from cfg.
func newRunner(cfg *appconfig.Config, exec executor.Executor, logger *logging.Logger) *pair.Runner {
	composer := command.NewComposer(cfg.Pipeline.Program, cfg.Pipeline.Args,
		command.WithMode(cfg.Pipeline.Mode),
		command.WithWorkDir(cfg.Batch.Root),
		command.WithTimeout(cfg.Pipeline.Timeout),
	)
	return pair.NewRunner(exec, composer,
		pair.WithArchive(cfg.Batch.Archive),
		pair.WithLogger(logger),
	)
}

func mountOptions(cfg *appconfig.Config) mount.Options {
	return mount.Options{
		Share:    cfg.Mount.Share,
		Dir:      cfg.Mount.Dir,
		FSType:   cfg.Mount.FSType,
		Username: cfg.Mount.Username,
		Password: cfg.Mount.Password,
	}
}

// progressPrinter prints one line per finished pair.
func progressPrinter(w io.Writer, quiet bool) func(done, total int, out pair.Outcome) {
	if quiet {
		return nil
	}
	return func(done, total int, out pair.Outcome) {
		_, _ = fmt.Fprintf(w, "[%d/%d] %s %s\n", done, total, out.ID, out.Status)
	}
}

func writeReport(w io.Writer, res *batch.Result, asJSON bool) error {
	if asJSON {
		return report.JSON(w, res)
	}
	return report.Text(w, res, report.Options{
		Color:       report.ColorEnabled(os.Stdout) && w == io.Writer(os.Stdout),
		OutputLines: report.DefaultOutputLines,
	})
}

// runContext is canceled on interrupt or SIGTERM.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
