package cmd

import (
	"fmt"

	appconfig "github.com/Iron-Ham/ssbatch/internal/config"
	"github.com/Iron-Ham/ssbatch/internal/mount"
	"github.com/spf13/cobra"
)

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount the remote sample share",
	Long: `Mount the remote sample share at the configured mount point.

The password is read from mount.password, usually supplied through the
SSBATCH_MOUNT_PASSWORD environment variable. It never appears in logs or
--dry-run output.`,
	Args:    cobra.NoArgs,
	PreRunE: bindMountFlags,
	RunE:    runMountCmd,
}

var mountDryRun bool

var mountFlagKeys = map[string]string{
	"share":    "mount.share",
	"dir":      "mount.dir",
	"fstype":   "mount.fstype",
	"username": "mount.username",
}

func init() {
	rootCmd.AddCommand(mountCmd)

	mountCmd.Flags().String("share", "", "remote share address")
	mountCmd.Flags().String("dir", "", "local mount point")
	mountCmd.Flags().String("fstype", mount.DefaultFSType, "filesystem type passed to mount -t")
	mountCmd.Flags().String("username", "", "share user name")
	mountCmd.Flags().BoolVar(&mountDryRun, "dry-run", false, "print the commands instead of running them")
}

func bindMountFlags(cmd *cobra.Command, args []string) error {
	return bindFlags(cmd.Flags(), mountFlagKeys)
}

func runMountCmd(cmd *cobra.Command, args []string) error {
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

	opts := mountOptions(cfg)
	if err := mount.Mount(ctx, newExecutor(cfg, logger, cmd.OutOrStdout(), mountDryRun), opts, logger); err != nil {
		return fatal(err)
	}
	if !mountDryRun {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Mounted %s at %s\n", opts.Share, opts.Dir)
	}
	return nil
}
