package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/config"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/governance"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/report"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/syncer"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/warehouse"
)

var reportLimit int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Governance report: compliance score, PII risk, documentation",
	Long: `Report queries the replicated metadata warehouse and prints the
governance summary: the compliance score, high-risk tables from the
PII classification, undocumented tables, and per-schema documentation
coverage.

Example:
  metasync report --config metasync.yaml --limit 20`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportLimit, "limit", 10,
		"Maximum rows per report section (0 = unlimited)")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
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

	ctx := context.Background()

	whManager := warehouse.NewManager(&cfg.Warehouse, log)
	if err := whManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	defer whManager.Close()

	store, err := syncer.NewStateStore(cfg.Checkpoint.Path, log)
	if err != nil {
		return fmt.Errorf("failed to create state store: %w", err)
	}

	engine, err := governance.NewEngine(whManager.DB, store, log)
	if err != nil {
		return fmt.Errorf("failed to create governance engine: %w", err)
	}

	compliance, err := engine.ComplianceScore(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute compliance score: %w", err)
	}

	fmt.Printf("\n=== Compliance ===\n")
	fmt.Printf("Score: %s / 100\n", report.ScoreLabel(compliance.Score))
	fmt.Printf("Tables: %d (documented: %d, %.1f%%)\n",
		compliance.TotalTables, compliance.DocumentedTables, compliance.DocumentationPct)
	fmt.Printf("Tables with PII: %d\n", compliance.TablesWithPII)
	fmt.Printf("High-risk tables: %d\n", compliance.HighRiskTables)

	highRisk, err := engine.HighRiskTables(ctx, reportLimit)
	if err != nil {
		return fmt.Errorf("failed to list high-risk tables: %w", err)
	}
	fmt.Printf("\n=== High-Risk Tables (%s) ===\n", report.RiskLabel("HIGH"))
	if len(highRisk) == 0 {
		fmt.Println("None.")
	} else {
		table := report.NewTable("TABLE", "OWNER", "PII COLUMNS", "AVG SCORE")
		for _, t := range highRisk {
			table.AddRow(t.TableFullName, t.Owner,
				fmt.Sprintf("%d", t.PIIColumnCount),
				fmt.Sprintf("%.2f", t.AvgPIIScore),
			)
		}
		fmt.Print(table.Render())
	}

	undocumented, err := engine.UndocumentedTables(ctx, reportLimit)
	if err != nil {
		return fmt.Errorf("failed to list undocumented tables: %w", err)
	}
	fmt.Printf("\n=== Undocumented Tables ===\n")
	if len(undocumented) == 0 {
		fmt.Println("None.")
	} else {
		table := report.NewTable("TABLE", "OWNER")
		for _, t := range undocumented {
			table.AddRow(t.FullName, t.Owner)
		}
		fmt.Print(table.Render())
	}

	docRates, err := engine.DocRateBySchema(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute documentation rates: %w", err)
	}
	fmt.Printf("\n=== Documentation by Schema ===\n")
	if len(docRates) == 0 {
		fmt.Println("No tables in warehouse.")
	} else {
		table := report.NewTable("CATALOG", "SCHEMA", "TABLES", "DOCUMENTED", "RATE")
		for _, r := range docRates {
			table.AddRow(r.CatalogName, r.SchemaName,
				fmt.Sprintf("%d", r.TotalTables),
				fmt.Sprintf("%d", r.DocumentedTables),
				fmt.Sprintf("%.1f%%", r.DocumentationPct),
			)
		}
		fmt.Print(table.Render())
	}

	return nil
}
