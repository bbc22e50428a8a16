package cmd

import (
	"fmt"
	"strings"

	appconfig "github.com/Iron-Ham/ssbatch/internal/config"
	"github.com/Iron-Ham/ssbatch/internal/logging"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View batch logs",
	Long: `View and filter the batch log written to logging.dir.

Examples:
  # Show the last 50 entries
  ssbatch logs

  # Show everything one run logged for a pair
  ssbatch logs --run 5f0c... --clone cloneA --pool P01 -n 0

  # Show only warnings and errors
  ssbatch logs --level warn`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsRun   string
	logsClone string
	logsPool  string
	logsTail  int
	logsLevel string
	logsGrep  string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsRun, "run", "", "only entries from this run ID")
	logsCmd.Flags().StringVar(&logsClone, "clone", "", "only entries for this clone")
	logsCmd.Flags().StringVar(&logsPool, "pool", "", "only entries for this pool")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "only entries whose message contains this text")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	if cfg.Logging.Dir == "" {
		return fmt.Errorf("logging.dir is not set; no log file to read")
	}
	if logsLevel != "" && !isValidLevel(logsLevel) {
		return fmt.Errorf("invalid level %q: valid levels are %s",
			logsLevel, strings.Join(logging.ValidLevels(), ", "))
	}

	entries, err := logging.ReadEntries(cfg.Logging.Dir)
	if err != nil {
		return err
	}
	entries = logging.FilterEntries(entries, logging.Filter{
		Level:           logsLevel,
		RunID:           logsRun,
		Clone:           logsClone,
		Pool:            logsPool,
		MessageContains: logsGrep,
	})
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		_, _ = fmt.Fprintln(out, logging.FormatEntry(e))
	}
	return nil
}

func isValidLevel(level string) bool {
	for _, l := range logging.ValidLevels() {
		if strings.EqualFold(l, level) {
			return true
		}
	}
	return false
}
