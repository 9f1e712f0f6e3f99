// Package syncer implements the incremental metadata synchronization engine:
// extraction, warehouse writes, checkpointing, and run orchestration.
package syncer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
)

// CheckpointVersion is the current checkpoint document version. The shape is
// small and stable; version exists so fields can be added forward-compatibly.
const CheckpointVersion = 1

// Checkpoint is the persisted run-progress document. LastSyncTime is
// monotonically non-decreasing across runs; CatalogsSynced lists the
// catalogs committed in the current run, in commit order.
type Checkpoint struct {
	Version        int              `json:"version"`
	LastSyncTime   time.Time        `json:"last_sync_time"`
	CatalogsSynced []string         `json:"catalogs_synced"`
	RunComplete    bool             `json:"run_complete"`
	EntityCounts   map[string]int64 `json:"entity_counts,omitempty"`
}

// NewCheckpoint returns an empty checkpoint for a first run.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{
		Version:      CheckpointVersion,
		EntityCounts: make(map[string]int64),
	}
}

// MarkCatalog records a catalog as committed in this run.
func (c *Checkpoint) MarkCatalog(name string) {
	if c.HasCatalog(name) {
		return
	}
	c.CatalogsSynced = append(c.CatalogsSynced, name)
}

// HasCatalog reports whether a catalog was committed in the recorded run.
func (c *Checkpoint) HasCatalog(name string) bool {
	for _, n := range c.CatalogsSynced {
		if n == name {
			return true
		}
	}
	return false
}

// BeginRun resets per-run state while preserving the monotonic sync time.
func (c *Checkpoint) BeginRun() {
	c.CatalogsSynced = nil
	c.RunComplete = false
	c.EntityCounts = make(map[string]int64)
}

// AdvanceSyncTime moves LastSyncTime forward to t, never backward.
func (c *Checkpoint) AdvanceSyncTime(t time.Time) {
	if t.After(c.LastSyncTime) {
		c.LastSyncTime = t
	}
}

// StateStore persists the checkpoint document as a JSON file with
// atomic-replace semantics: a partial write can never corrupt the
// previous checkpoint.
type StateStore struct {
	path   string
	logger *logger.Logger
}

// NewStateStore creates a store for the given checkpoint file path.
func NewStateStore(path string, log *logger.Logger) (*StateStore, error) {
	if path == "" {
		return nil, fmt.Errorf("checkpoint path is empty")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &StateStore{
		path:   path,
		logger: log,
	}, nil
}

// Load reads the persisted checkpoint. A missing file is not an error: it
// returns an empty checkpoint, meaning a first run.
func (s *StateStore) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Infow("No checkpoint found, starting fresh", "path", s.path)
		return NewCheckpoint(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", s.path, err)
	}

	cp := NewCheckpoint()
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint %s: %w", s.path, err)
	}
	if cp.Version > CheckpointVersion {
		return nil, fmt.Errorf("checkpoint %s has version %d, newer than supported %d", s.path, cp.Version, CheckpointVersion)
	}
	if cp.EntityCounts == nil {
		cp.EntityCounts = make(map[string]int64)
	}
	return cp, nil
}

// Save atomically overwrites the checkpoint: write to a temp file in the
// same directory, fsync, then rename over the target.
func (s *StateStore) Save(cp *Checkpoint) error {
	if cp == nil {
		return fmt.Errorf("checkpoint is nil")
	}
	cp.Version = CheckpointVersion

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".metasync-checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint %s: %w", s.path, err)
	}

	s.logger.Debugw("Checkpoint persisted",
		"path", s.path,
		"catalogs_synced", len(cp.CatalogsSynced),
		"last_sync_time", cp.LastSyncTime,
	)
	return nil
}

// Path returns the checkpoint file path.
func (s *StateStore) Path() string {
	return s.path
}
