package syncer

import "fmt"

// Sync phases, used to locate a failure within a catalog's sync cycle.
const (
	PhaseExtract    = "extract"
	PhaseWrite      = "write"
	PhaseReconcile  = "reconcile"
	PhaseVerify     = "verify"
	PhaseCheckpoint = "checkpoint"
)

// CatalogError marks a failure scoped to a single catalog. Prior catalogs'
// checkpoints remain valid; the run ends in partial failure and reports
// which catalog failed, in which phase, and why.
type CatalogError struct {
	Catalog string
	Phase   string
	Err     error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog %q failed during %s: %v", e.Catalog, e.Phase, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}
