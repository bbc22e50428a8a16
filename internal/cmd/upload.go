package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	appconfig "github.com/Iron-Ham/ssbatch/internal/config"
	"github.com/Iron-Ham/ssbatch/internal/ice"
	"github.com/Iron-Ham/ssbatch/internal/logging"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload --entry <id> <file>...",
	Short: "Upload sequence files to an ICE entry",
	Long: `Upload sequence files or archives to the shotgun sequences of an ICE
registry entry.

The session is read from ice.session_id, usually supplied through the
SSBATCH_ICE_SESSION_ID environment variable. Every file is attempted; the
command exits 1 if any upload failed.

Example:
  ssbatch upload --entry 1234 run42/cloneA.ss.zip run42/cloneB.ss.zip`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: bindICEFlags,
	RunE:    runUpload,
}

var listCmd = &cobra.Command{
	Use:   "list --entry <id>",
	Short: "List the sequences attached to an ICE entry",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd.Flags(), map[string]string{"host": "ice.host"})
	},
	RunE: runList,
}

var (
	uploadEntry string
	listEntry   string
)

var iceFlagKeys = map[string]string{
	"host":     "ice.host",
	"parallel": "ice.parallel",
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(listCmd)

	uploadCmd.Flags().StringVarP(&uploadEntry, "entry", "e", "", "ICE entry (part) ID")
	uploadCmd.Flags().String("host", "", "ICE base URL")
	uploadCmd.Flags().IntP("parallel", "p", 4, "number of concurrent uploads")
	_ = uploadCmd.MarkFlagRequired("entry")

	listCmd.Flags().StringVarP(&listEntry, "entry", "e", "", "ICE entry (part) ID")
	listCmd.Flags().String("host", "", "ICE base URL")
	_ = listCmd.MarkFlagRequired("entry")
}

func bindICEFlags(cmd *cobra.Command, args []string) error {
	return bindFlags(cmd.Flags(), iceFlagKeys)
}

func newICEClient(cfg *appconfig.Config, logger *logging.Logger) (*ice.Client, error) {
	return ice.NewClient(cfg.ICE.Host, cfg.ICE.SessionID,
		ice.WithTimeout(cfg.ICE.Timeout),
		ice.WithInsecureSkipVerify(cfg.ICE.InsecureSkipVerify),
		ice.WithLogger(logger),
	)
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	client, err := newICEClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := runContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range client.UploadAll(ctx, uploadEntry, args, cfg.ICE.Parallel) {
		if r.Err != nil {
			failed++
			_, _ = fmt.Fprintf(out, "x %s: %v\n", r.Path, r.Err)
			continue
		}
		_, _ = fmt.Fprintf(out, "+ %s\n", r.Path)
	}
	_, _ = fmt.Fprintf(out, "%d uploaded, %d failed\n", len(args)-failed, failed)

	if failed > 0 {
		return &ExitError{Code: ExitFailures}
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	client, err := newICEClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := runContext(cmd)
	defer stop()

	body, err := client.List(ctx, listEntry)
	if err != nil {
		return err
	}

	// Pretty-print JSON responses; anything else is shown as received.
	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		body = pretty.Bytes()
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(bytes.TrimRight(body, "\n")))
	return nil
}
