package cmd

import (
	"time"

	"github.com/Iron-Ham/ssbatch/internal/batch"
	appconfig "github.com/Iron-Ham/ssbatch/internal/config"
	"github.com/Iron-Ham/ssbatch/internal/index"
	"github.com/Iron-Ham/ssbatch/internal/pair"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var pairCmd = &cobra.Command{
	Use:   "pair <dir> <clone> <pool>",
	Short: "Run a single pair",
	Long: `Run the pipeline for one (clone, pool) pair in an explicit directory.

This is the same step sequence the batch runs for each pair, useful for
re-running a pair that failed.

Example:
  ssbatch pair run42/P01 cloneA P01 --call pass --score 0.97 --archive`,
	Args:    cobra.ExactArgs(3),
	PreRunE: bindPairFlags,
	RunE:    runPair,
}

var (
	pairCall   string
	pairScore  string
	pairDryRun bool
	pairJSON   bool
)

var pairFlagKeys = map[string]string{
	"archive": "batch.archive",
	"root":    "batch.root",
	"timeout": "pipeline.timeout",
}

func init() {
	rootCmd.AddCommand(pairCmd)

	pairCmd.Flags().StringVar(&pairCall, "call", "", "call annotation to record")
	pairCmd.Flags().StringVar(&pairScore, "score", "", "score annotation to record")
	pairCmd.Flags().Bool("archive", false, "bundle the results into {clone}.ss.zip")
	pairCmd.Flags().String("root", ".", "directory <dir> is resolved against")
	pairCmd.Flags().Duration("timeout", 0, "timeout for the pipeline invocation (0 for none)")
	pairCmd.Flags().BoolVar(&pairDryRun, "dry-run", false, "print the commands instead of running them")
	pairCmd.Flags().BoolVar(&pairJSON, "json", false, "print the report as JSON")
}

func bindPairFlags(cmd *cobra.Command, args []string) error {
	return bindFlags(cmd.Flags(), pairFlagKeys)
}

func runPair(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := runContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	runner := newRunner(cfg, newExecutor(cfg, logger, out, pairDryRun), logger)

	res := &batch.Result{RunID: uuid.NewString(), Started: time.Now()}
	pc := pair.Context{
		ID:     index.PairID{Clone: args[1], Pool: args[2]},
		Dir:    args[0],
		Record: index.PairRecord{Call: pairCall, Display: pairScore},
		RunID:  res.RunID,
	}

	res.Entries = []pair.Outcome{runner.Run(ctx, pc)}
	res.Finished = time.Now()

	if pairDryRun {
		return nil
	}
	if err := writeReport(out, res, pairJSON); err != nil {
		return err
	}
	if !res.OK() {
		return &ExitError{Code: ExitFailures}
	}
	return nil
}
