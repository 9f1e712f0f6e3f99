package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile    string
	logLevel   string
	logFormat  string
	batchSize  int
	workers    int
	skipVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "metasync",
	Short: "Unity Catalog metadata sync & governance reporting",
	Long: `A CLI tool that replicates data-catalog metadata (catalogs, schemas,
tables, columns, volumes) into a MySQL warehouse and reports on
documentation coverage and PII risk.

Features:
  - Incremental sync with per-catalog checkpointing and crash recovery
  - Idempotent multi-row upserts and delete reconciliation
  - Post-commit row count verification
  - Compliance scoring, high-risk and undocumented table reports
  - Metadata freshness classification`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "metasync.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Processing overrides
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override batch size (rows per warehouse statement)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0,
		"Override table-detail extraction workers per catalog")

	// Safety overrides
	rootCmd.PersistentFlags().BoolVar(&skipVerify, "skip-verify", false,
		"Skip post-commit row count verification")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel   string
	LogFormat  string
	BatchSize  int
	Workers    int
	SkipVerify bool
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		BatchSize:  batchSize,
		Workers:    workers,
		SkipVerify: skipVerify,
	}
}
