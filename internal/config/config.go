package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete ssbatch configuration
type Config struct {
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Mount    MountConfig    `mapstructure:"mount" yaml:"mount"`
	ICE      ICEConfig      `mapstructure:"ice" yaml:"ice"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// BatchConfig controls how the orchestrator walks the sample index
type BatchConfig struct {
	// Root is the directory pair directories are resolved against (default: ".")
	Root string `mapstructure:"root" yaml:"root"`
	// Layout is the directory naming convention: "pool" or "clone/pool" (default: "pool")
	Layout string `mapstructure:"layout" yaml:"layout"`
	// HaltOnError stops starting new pairs after the first failure (default: false)
	HaltOnError bool `mapstructure:"halt_on_error" yaml:"halt_on_error"`
	// Archive bundles each successful pair into {clone}.ss.zip (default: false)
	Archive bool `mapstructure:"archive" yaml:"archive"`
	// Workers is the number of pairs processed concurrently (default: 1)
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// PipelineConfig describes how the external variant-calling tool is launched
type PipelineConfig struct {
	// Program is the executable to run (default: "python")
	Program string `mapstructure:"program" yaml:"program"`
	// Args are prepended before the five positional pipeline arguments
	// (default: ["../MiSeqValPipeline/svelt.py"])
	Args []string `mapstructure:"args" yaml:"args"`
	// Mode is the sequencing platform tag passed first: "MS" or "PB" (default: "MS")
	Mode string `mapstructure:"mode" yaml:"mode"`
	// Timeout bounds a single pipeline invocation; 0 means unbounded (default: 0)
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// MaxOutputBytes caps the captured stdout/stderr kept per step (default: 100000)
	MaxOutputBytes int `mapstructure:"max_output_bytes" yaml:"max_output_bytes"`
}

// MountConfig describes the remote sample volume
type MountConfig struct {
	// Share is the remote share address (default: "//smb.jbei.org/miseq")
	Share string `mapstructure:"share" yaml:"share"`
	// Dir is the local mount point
	Dir string `mapstructure:"dir" yaml:"dir"`
	// FSType is the filesystem type passed to mount -t (default: "cifs")
	FSType string `mapstructure:"fstype" yaml:"fstype"`
	// Username for the share; usually supplied via SSBATCH_MOUNT_USERNAME
	Username string `mapstructure:"username" yaml:"username"`
	// Password for the share; usually supplied via SSBATCH_MOUNT_PASSWORD
	Password string `mapstructure:"password" yaml:"-"`
}

// ICEConfig describes the results registry used for upload and query
type ICEConfig struct {
	// Host is the registry base URL, e.g. "https://ice.example.org"
	Host string `mapstructure:"host" yaml:"host"`
	// SessionID is sent as X-ICE-Authentication-SessionId
	SessionID string `mapstructure:"session_id" yaml:"-"`
	// InsecureSkipVerify disables TLS verification (default: true)
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	// Timeout bounds each HTTP request (default: 60s)
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Parallel is the number of concurrent uploads (default: 4)
	Parallel int `mapstructure:"parallel" yaml:"parallel"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is where ssbatch.log is written; empty logs to stderr
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Batch: BatchConfig{
			Root:        ".",
			Layout:      "pool",
			HaltOnError: false,
			Archive:     false,
			Workers:     1,
		},
		Pipeline: PipelineConfig{
			Program:        "python",
			Args:           []string{"../MiSeqValPipeline/svelt.py"},
			Mode:           "MS",
			Timeout:        0, // The pipeline's runtime is unbounded unless configured
			MaxOutputBytes: 100000,
		},
		Mount: MountConfig{
			Share:  "//smb.jbei.org/miseq",
			FSType: "cifs",
		},
		ICE: ICEConfig{
			InsecureSkipVerify: true,
			Timeout:            60 * time.Second,
			Parallel:           4,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Batch defaults
	viper.SetDefault("batch.root", defaults.Batch.Root)
	viper.SetDefault("batch.layout", defaults.Batch.Layout)
	viper.SetDefault("batch.halt_on_error", defaults.Batch.HaltOnError)
	viper.SetDefault("batch.archive", defaults.Batch.Archive)
	viper.SetDefault("batch.workers", defaults.Batch.Workers)

	// Pipeline defaults
	viper.SetDefault("pipeline.program", defaults.Pipeline.Program)
	viper.SetDefault("pipeline.args", defaults.Pipeline.Args)
	viper.SetDefault("pipeline.mode", defaults.Pipeline.Mode)
	viper.SetDefault("pipeline.timeout", defaults.Pipeline.Timeout)
	viper.SetDefault("pipeline.max_output_bytes", defaults.Pipeline.MaxOutputBytes)

	// Mount defaults
	viper.SetDefault("mount.share", defaults.Mount.Share)
	viper.SetDefault("mount.dir", defaults.Mount.Dir)
	viper.SetDefault("mount.fstype", defaults.Mount.FSType)
	viper.SetDefault("mount.username", "")
	viper.SetDefault("mount.password", "")

	// ICE defaults
	viper.SetDefault("ice.host", defaults.ICE.Host)
	viper.SetDefault("ice.session_id", "")
	viper.SetDefault("ice.insecure_skip_verify", defaults.ICE.InsecureSkipVerify)
	viper.SetDefault("ice.timeout", defaults.ICE.Timeout)
	viper.SetDefault("ice.parallel", defaults.ICE.Parallel)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ssbatch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ssbatch"
	}
	return filepath.Join(home, ".config", "ssbatch")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
