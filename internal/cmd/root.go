package cmd

import (
	"strings"

	"github.com/Iron-Ham/ssbatch/internal/cmd/config"
	appconfig "github.com/Iron-Ham/ssbatch/internal/config"
	"github.com/Iron-Ham/ssbatch/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// verbose sends logs to stderr when no log directory is configured.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ssbatch",
	Short: "Batch driver for shotgun sequencing validation",
	Long: `ssbatch walks a sample index of (clone, pool) pairs and, for each pair,
runs the variant-calling pipeline, records the call and score annotations,
and optionally bundles the results into {clone}.ss.zip.

Pairs are independent: a failure in one pair is reported and the batch
moves on, unless --halt-on-error is set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/ssbatch/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr when logging.dir is not set")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	config.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	appconfig.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appconfig.ConfigDir())
		viper.AddConfigPath("$HOME/.config/ssbatch")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SSBATCH")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SSBATCH_MOUNT_PASSWORD for mount.password
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newLogger builds the logger described by cfg. Without a log directory,
// logging is discarded unless --verbose is set.
func newLogger(cfg *appconfig.Config) (*logging.Logger, error) {
	if cfg.Logging.Dir == "" && !verbose {
		return logging.NopLogger(), nil
	}
	return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
}
