// Package config provides CLI commands for managing ssbatch configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	appconfig "github.com/Iron-Ham/ssbatch/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify ssbatch configuration",
	Long: `View or modify ssbatch configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  ssbatch config set batch.workers 4
  ssbatch config set batch.layout clone/pool
  ssbatch config set pipeline.timeout 2h

Secrets (mount.password, ice.session_id) cannot be set here; supply them
through SSBATCH_MOUNT_PASSWORD and SSBATCH_ICE_SESSION_ID.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/ssbatch/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// Register adds all config-related commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

// keyType describes how a settable key's value is parsed.
type keyType int

const (
	typeString keyType = iota
	typeBool
	typeInt
	typeDuration
)

var validKeys = map[string]keyType{
	"batch.root":                typeString,
	"batch.layout":              typeString,
	"batch.halt_on_error":       typeBool,
	"batch.archive":             typeBool,
	"batch.workers":             typeInt,
	"pipeline.program":          typeString,
	"pipeline.mode":             typeString,
	"pipeline.timeout":          typeDuration,
	"pipeline.max_output_bytes": typeInt,
	"mount.share":               typeString,
	"mount.dir":                 typeString,
	"mount.fstype":              typeString,
	"mount.username":            typeString,
	"ice.host":                  typeString,
	"ice.insecure_skip_verify":  typeBool,
	"ice.timeout":               typeDuration,
	"ice.parallel":              typeInt,
	"logging.level":             typeString,
	"logging.dir":               typeString,
	"logging.max_size_mb":       typeInt,
	"logging.max_backups":       typeInt,
	"logging.compress":          typeBool,
}

// ValidKeys returns the settable keys in sorted order.
func ValidKeys() []string {
	keys := make([]string, 0, len(validKeys))
	for k := range validKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseValue converts value according to the key's type.
func parseValue(key, value string) (any, error) {
	kt, ok := validKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nValid keys: %s", key, strings.Join(ValidKeys(), ", "))
	}

	switch kt {
	case typeBool:
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case typeInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return n, nil
	case typeDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected a duration such as 90s or 2h", key)
		}
		return d.String(), nil
	default:
		return value, nil
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		_, _ = fmt.Fprintf(out, "# Config file: %s\n", used)
	} else {
		_, _ = fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	typed, err := parseValue(key, value)
	if err != nil {
		return err
	}

	viper.Set(key, typed)
	if _, err := appconfig.Load(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	// Ensure config directory exists
	configFile := appconfig.ConfigFile()
	if used := viper.ConfigFileUsed(); used != "" {
		configFile = used
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := writeConfig(configFile); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Set %s = %v\n", key, typed)
	_, _ = fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

// writeConfig writes the effective configuration to path. Secrets are
// tagged out of the YAML form so they never land on disk.
func writeConfig(path string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

const configHeader = `# ssbatch configuration
#
# Every key can be overridden with an SSBATCH_* environment variable,
# e.g. SSBATCH_BATCH_WORKERS for batch.workers.
# Secrets are read from the environment only:
#   SSBATCH_MOUNT_PASSWORD, SSBATCH_ICE_SESSION_ID
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'ssbatch config set' to modify values", configFile)
	}

	if err := os.MkdirAll(appconfig.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(appconfig.Default())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	if err := os.WriteFile(configFile, append([]byte(configHeader+"\n"), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if used := viper.ConfigFileUsed(); used != "" {
		_, _ = fmt.Fprintf(out, "Active config: %s\n", used)
	} else {
		_, _ = fmt.Fprintf(out, "Default path: %s (not created)\n", appconfig.ConfigFile())
	}

	// Also show config search paths
	_, _ = fmt.Fprintln(out, "\nSearch paths:")
	_, _ = fmt.Fprintf(out, "  1. %s\n", appconfig.ConfigFile())
	_, _ = fmt.Fprintf(out, "  2. $HOME/.config/ssbatch/config.yaml\n")
	_, _ = fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	_, _ = fmt.Fprintln(out, "\nEnvironment variables: SSBATCH_* (e.g., SSBATCH_BATCH_WORKERS)")
	return nil
}
