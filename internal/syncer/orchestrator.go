package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/catalog"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/model"
)

// RunState describes where a sync run is in its lifecycle.
type RunState string

const (
	StateIdle              RunState = "idle"
	StateLoadingCheckpoint RunState = "loading_checkpoint"
	StateSyncing           RunState = "syncing"
	StateCheckpointing     RunState = "checkpointing"
	StateComplete          RunState = "complete"
	StatePartialFailure    RunState = "partial_failure"
)

// Options control a single sync run.
type Options struct {
	// Resume skips catalogs already committed by a previous interrupted
	// run. Ignored when the previous run completed: a full pass then runs
	// as usual, since upserts are idempotent and cheap relative to
	// re-extracting nothing.
	Resume bool

	// Filtered marks the run as scoped by a catalog allow-list. Filtered
	// runs never reconcile the catalogs table: absence from a filtered
	// listing proves nothing.
	Filtered bool

	// SkipVerify disables post-commit count verification.
	SkipVerify bool

	// SleepBetweenCatalogs throttles the loop between catalogs.
	SleepBetweenCatalogs time.Duration
}

// RunResult summarizes one sync run.
type RunResult struct {
	State           RunState
	StartedAt       time.Time
	Duration        time.Duration
	CatalogsSynced  []string
	CatalogsSkipped []string
	Upserted        map[string]int64
	Deleted         map[string]int64
	CatalogsRemoved int64
	SkippedTables   int
	Mismatches      []CountMismatch
	LastSyncTime    time.Time
}

// Orchestrator drives sync runs: it walks catalogs in listing order and, for
// each, extracts, writes, reconciles, verifies, and checkpoints before moving
// on. A catalog is the unit of recovery; a failure inside one leaves every
// previously committed catalog's checkpoint intact.
type Orchestrator struct {
	extractor *Extractor
	writer    *Writer
	verifier  *Verifier
	store     *StateStore
	opts      Options
	logger    *logger.Logger
	now       func() time.Time
}

// NewOrchestrator wires the sync pipeline together.
func NewOrchestrator(extractor *Extractor, writer *Writer, verifier *Verifier, store *StateStore, opts Options, log *logger.Logger) (*Orchestrator, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor is nil")
	}
	if writer == nil {
		return nil, fmt.Errorf("writer is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("state store is nil")
	}
	if !opts.SkipVerify && verifier == nil {
		return nil, fmt.Errorf("verifier is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Orchestrator{
		extractor: extractor,
		writer:    writer,
		verifier:  verifier,
		store:     store,
		opts:      opts,
		logger:    log,
		now:       time.Now,
	}, nil
}

// Run executes one sync run. The returned result is populated even when err
// is non-nil, reflecting the catalogs that committed before the failure.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		State:     StateLoadingCheckpoint,
		StartedAt: o.now(),
		Upserted:  make(map[string]int64),
		Deleted:   make(map[string]int64),
	}
	defer func() {
		result.Duration = o.now().Sub(result.StartedAt)
	}()

	cp, err := o.store.Load()
	if err != nil {
		return result, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	result.LastSyncTime = cp.LastSyncTime

	catalogs, err := o.extractor.Catalogs(ctx)
	if err != nil {
		// Nothing written, nothing checkpointed.
		return result, err
	}
	if len(catalogs) == 0 {
		o.logger.Warn("No catalogs to sync")
	}

	resuming := o.opts.Resume && !cp.RunComplete && len(cp.CatalogsSynced) > 0
	if resuming {
		o.logger.Infow("Resuming interrupted run",
			"catalogs_already_synced", len(cp.CatalogsSynced),
		)
	} else {
		cp.BeginRun()
	}

	// All mutations in this run stamp the same sync time, taken once at
	// run start, so a catalog's rows never carry a time later than the
	// checkpoint that covers them.
	runStart := result.StartedAt.UTC()
	result.State = StateSyncing

	for i, cat := range catalogs {
		if err := ctx.Err(); err != nil {
			result.State = StatePartialFailure
			return result, err
		}

		if resuming && cp.HasCatalog(cat.Name) {
			o.logger.Infow("Skipping catalog, already committed in previous run", "catalog", cat.Name)
			result.CatalogsSkipped = append(result.CatalogsSkipped, cat.Name)
			continue
		}

		if err := o.syncCatalog(ctx, cp, cat, runStart, result); err != nil {
			result.State = StatePartialFailure
			return result, err
		}

		if o.opts.SleepBetweenCatalogs > 0 && i < len(catalogs)-1 {
			select {
			case <-time.After(o.opts.SleepBetweenCatalogs):
			case <-ctx.Done():
				result.State = StatePartialFailure
				return result, ctx.Err()
			}
		}
	}

	if !o.opts.Filtered {
		seen := make(map[string]struct{}, len(catalogs))
		for _, cat := range catalogs {
			seen[cat.Name] = struct{}{}
		}
		removed, err := o.writer.ReconcileCatalogs(ctx, seen)
		if err != nil {
			result.State = StatePartialFailure
			return result, fmt.Errorf("failed to reconcile catalogs: %w", err)
		}
		result.CatalogsRemoved = removed
	}

	result.State = StateCheckpointing
	cp.RunComplete = true
	cp.AdvanceSyncTime(runStart)
	if err := o.store.Save(cp); err != nil {
		result.State = StatePartialFailure
		return result, fmt.Errorf("failed to persist final checkpoint: %w", err)
	}

	result.State = StateComplete
	result.LastSyncTime = cp.LastSyncTime
	o.logger.Infow("Sync run complete",
		"catalogs", len(result.CatalogsSynced),
		"skipped", len(result.CatalogsSkipped),
		"upserted", result.Upserted,
		"deleted", result.Deleted,
		"duration", result.Duration.String(),
	)
	return result, nil
}

// syncCatalog runs one catalog through extract, write, reconcile, verify,
// and checkpoint. The checkpoint save is last: a crash at any earlier point
// re-syncs this catalog on the next run, which is safe because every write
// is idempotent.
func (o *Orchestrator) syncCatalog(ctx context.Context, cp *Checkpoint, cat model.Catalog, runStart time.Time, result *RunResult) error {
	log := o.logger.WithCatalog(cat.Name)
	log.Info("Syncing catalog")

	batch, err := o.extractor.Extract(ctx, cat)
	if err != nil {
		if catalog.IsUnauthorized(err) || errors.Is(err, context.Canceled) {
			return err
		}
		return &CatalogError{Catalog: cat.Name, Phase: PhaseExtract, Err: err}
	}
	result.SkippedTables += batch.SkippedTables

	stats, err := o.writer.WriteBatch(ctx, batch, runStart)
	if err != nil {
		return &CatalogError{Catalog: cat.Name, Phase: PhaseWrite, Err: err}
	}
	mergeCounts(result.Upserted, stats.Upserted)

	deleted, err := o.writer.Reconcile(ctx, batch)
	if err != nil {
		return &CatalogError{Catalog: cat.Name, Phase: PhaseReconcile, Err: err}
	}
	mergeCounts(result.Deleted, deleted)

	if !o.opts.SkipVerify {
		mismatches, err := o.verifier.VerifyCatalog(ctx, batch)
		if err != nil {
			return &CatalogError{Catalog: cat.Name, Phase: PhaseVerify, Err: err}
		}
		result.Mismatches = append(result.Mismatches, mismatches...)
	}

	cp.MarkCatalog(cat.Name)
	cp.AdvanceSyncTime(runStart)
	for kind, n := range batch.Counts() {
		cp.EntityCounts[kind] += n
	}
	if err := o.store.Save(cp); err != nil {
		// The warehouse holds this catalog's rows but the checkpoint does
		// not record them. That is recoverable (the next run re-upserts),
		// but persistence failing is fatal for the run.
		return &CatalogError{Catalog: cat.Name, Phase: PhaseCheckpoint, Err: err}
	}

	result.CatalogsSynced = append(result.CatalogsSynced, cat.Name)
	result.LastSyncTime = cp.LastSyncTime
	log.Infow("Catalog committed",
		"upserted", stats.TotalUpserted(),
		"deleted", sumCounts(deleted),
	)
	return nil
}

func mergeCounts(dst, src map[string]int64) {
	for k, v := range src {
		dst[k] += v
	}
}

func sumCounts(m map[string]int64) int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}
