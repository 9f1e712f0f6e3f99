package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/catalog"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/config"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/lock"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/report"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/retry"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/syncer"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/warehouse"
)

var (
	syncResume bool
	syncForce  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync catalog metadata into the warehouse",
	Long: `Sync walks the source catalog hierarchy and replicates it into the
MySQL warehouse.

The sync process follows these steps per catalog:
  1. Extract schemas, tables (with columns) and volumes from the API
  2. Upsert into the warehouse in dependency order (parents first)
  3. Reconcile deletions by diffing warehouse state against the extraction
  4. Verify row counts
  5. Persist the checkpoint

A catalog is the unit of recovery: interrupting a run never loses
committed catalogs, and --resume skips them on the next attempt.

Example:
  metasync sync --config metasync.yaml --resume`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncResume, "resume", false,
		"Skip catalogs already committed by a previous interrupted run")
	syncCmd.Flags().BoolVar(&syncForce, "force", false,
		"Force execution even if the run lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.BatchSize, overrides.Workers, overrides.SkipVerify)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infow("Starting sync",
		"config", configFile,
		"resume", syncResume,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	whManager := warehouse.NewManager(&cfg.Warehouse, log)
	if err := whManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	defer whManager.Close()

	if err := warehouse.InitializeSchema(ctx, whManager.DB, log); err != nil {
		return fmt.Errorf("failed to initialize warehouse schema: %w", err)
	}

	// Advisory lock prevents two instances from syncing the same warehouse.
	if !syncForce {
		runLock := lock.NewRunLock(whManager.DB, cfg.Warehouse.Database)
		if err := runLock.AcquireOrFail(ctx); err != nil {
			if errors.Is(err, lock.ErrLockTimeout) {
				return fmt.Errorf("another sync is already running against this warehouse (use --force to override)")
			}
			return fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer runLock.Release(context.Background())
		log.Infow("Acquired advisory run lock", "lock", runLock.Name())
	} else {
		log.Warn("Skipping advisory lock acquisition (--force flag used)")
	}

	retryPolicy := retry.FromConfig(&cfg.Retry)

	client, err := catalog.NewClient(&cfg.Source, retryPolicy, log)
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	extractor, err := syncer.NewExtractor(client, cfg.Source.AllowList(), cfg.Processing.Workers, log)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	writer, err := syncer.NewWriter(whManager.DB, cfg.Processing.BatchSize, retryPolicy, log)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}

	verifier, err := syncer.NewVerifier(whManager.DB, log)
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}

	store, err := syncer.NewStateStore(cfg.Checkpoint.Path, log)
	if err != nil {
		return fmt.Errorf("failed to create state store: %w", err)
	}

	opts := syncer.Options{
		Resume:               syncResume,
		Filtered:             len(cfg.Source.AllowList()) > 0,
		SkipVerify:           cfg.Verification.SkipVerification,
		SleepBetweenCatalogs: time.Duration(cfg.Processing.SleepSeconds * float64(time.Second)),
	}
	orch, err := syncer.NewOrchestrator(extractor, writer, verifier, store, opts, log)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Received shutdown signal - finishing current catalog...")
		cancel()
	}()

	result, runErr := orch.Run(ctx)
	printSyncSummary(result)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Warn("Sync cancelled by user")
			return nil
		}
		return fmt.Errorf("sync failed: %w", runErr)
	}
	return nil
}

func printSyncSummary(result *syncer.RunResult) {
	if result == nil {
		return
	}

	fmt.Printf("\n=== Sync %s ===\n", result.State)
	fmt.Printf("Duration: %s\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("Catalogs synced: %d\n", len(result.CatalogsSynced))
	if len(result.CatalogsSkipped) > 0 {
		fmt.Printf("Catalogs skipped (resume): %d\n", len(result.CatalogsSkipped))
	}
	if result.CatalogsRemoved > 0 {
		fmt.Printf("Catalogs removed: %d\n", result.CatalogsRemoved)
	}
	if result.SkippedTables > 0 {
		fmt.Printf("Tables skipped (detail fetch failed): %d\n", result.SkippedTables)
	}

	if len(result.Upserted) > 0 {
		table := report.NewTable("ENTITY", "UPSERTED", "DELETED")
		for _, kind := range []string{"catalogs", "schemas", "tables", "volumes", "columns"} {
			table.AddRow(kind,
				fmt.Sprintf("%d", result.Upserted[kind]),
				fmt.Sprintf("%d", result.Deleted[kind]),
			)
		}
		fmt.Printf("\n%s", table.Render())
	}

	if len(result.Mismatches) > 0 {
		fmt.Printf("\nCount mismatches:\n")
		for _, m := range result.Mismatches {
			fmt.Printf("  - %s\n", m)
		}
	}
}
