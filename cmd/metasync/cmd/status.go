package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/config"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/governance"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/report"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/syncer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checkpoint state and metadata freshness",
	Long: `Status reads the local checkpoint file and reports the last sync time,
its freshness classification, and per-entity counts from the most
recent run. No network or warehouse connection is made.

Example:
  metasync status --config metasync.yaml`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.BatchSize, overrides.Workers, overrides.SkipVerify)

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := syncer.NewStateStore(cfg.Checkpoint.Path, log)
	if err != nil {
		return fmt.Errorf("failed to create state store: %w", err)
	}

	cp, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	fmt.Printf("\n=== Sync Status ===\n")
	fmt.Printf("Checkpoint: %s\n", store.Path())

	if cp.LastSyncTime.IsZero() {
		fmt.Printf("Freshness: %s\n", report.FreshnessLabel(string(governance.StatusNeverSynced)))
		return nil
	}

	age := time.Since(cp.LastSyncTime)
	status := governance.ClassifyFreshness(age)
	fmt.Printf("Last sync: %s (%s ago)\n",
		cp.LastSyncTime.Format(time.RFC3339), age.Round(time.Second))
	fmt.Printf("Freshness: %s\n", report.FreshnessLabel(string(status)))
	fmt.Printf("Run complete: %v\n", cp.RunComplete)
	fmt.Printf("Catalogs committed: %d\n", len(cp.CatalogsSynced))

	if len(cp.EntityCounts) > 0 {
		table := report.NewTable("ENTITY", "COUNT")
		for _, kind := range []string{"catalogs", "schemas", "tables", "volumes", "columns"} {
			if n, ok := cp.EntityCounts[kind]; ok {
				table.AddRow(kind, fmt.Sprintf("%d", n))
			}
		}
		fmt.Printf("\n%s", table.Render())
	}
	return nil
}
