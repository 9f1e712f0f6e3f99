package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/catalog"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/config"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/report"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/retry"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/syncer"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Walk the source catalog without writing anything",
	Long: `Discover extracts the full catalog hierarchy from the source API and
prints per-catalog entity counts. Nothing is written to the warehouse,
so this is a safe way to preview what a sync would replicate and to
check API connectivity and credentials.

Example:
  metasync discover --config metasync.yaml`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
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

	client, err := catalog.NewClient(&cfg.Source, retry.FromConfig(&cfg.Retry), log)
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	extractor, err := syncer.NewExtractor(client, cfg.Source.AllowList(), cfg.Processing.Workers, log)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	ctx := context.Background()
	catalogs, err := extractor.Catalogs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list catalogs: %w", err)
	}

	fmt.Printf("\n=== Discovery ===\n")
	fmt.Printf("Catalogs visible: %d\n\n", len(catalogs))

	table := report.NewTable("CATALOG", "SCHEMAS", "TABLES", "COLUMNS", "VOLUMES", "SKIPPED")
	var totalSkipped int
	for _, cat := range catalogs {
		batch, err := extractor.Extract(ctx, cat)
		if err != nil {
			return fmt.Errorf("failed to extract catalog %s: %w", cat.Name, err)
		}
		totalSkipped += batch.SkippedTables
		table.AddRow(cat.Name,
			fmt.Sprintf("%d", len(batch.Schemas)),
			fmt.Sprintf("%d", len(batch.Tables)),
			fmt.Sprintf("%d", len(batch.Columns)),
			fmt.Sprintf("%d", len(batch.Volumes)),
			fmt.Sprintf("%d", batch.SkippedTables),
		)
	}
	fmt.Print(table.Render())

	if totalSkipped > 0 {
		fmt.Printf("\n%d table(s) could not be fetched; a sync would skip them too.\n", totalSkipped)
	}
	return nil
}
