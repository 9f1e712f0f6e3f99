package syncer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/model"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/sqlutil"
)

// Verifier compares warehouse row counts against extracted batch counts
// after a catalog commits. Mismatches are diagnostic only: they are
// warn-logged and reported, never fatal, since concurrent dashboard writes
// or a prior partial run can legitimately skew counts.
type Verifier struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewVerifier creates a verifier bound to an open warehouse connection.
func NewVerifier(db *sql.DB, log *logger.Logger) (*Verifier, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Verifier{db: db, logger: log}, nil
}

// CountMismatch records one entity kind whose warehouse count diverged from
// the extracted count.
type CountMismatch struct {
	Kind      model.EntityKind
	Catalog   string
	Expected  int64
	Warehouse int64
}

func (m CountMismatch) String() string {
	return fmt.Sprintf("%s in catalog %s: expected %d, warehouse has %d",
		m.Kind, m.Catalog, m.Expected, m.Warehouse)
}

// VerifyCatalog checks per-kind warehouse counts for one committed catalog.
// When extraction skipped tables, the table and column counts are not
// comparable (reconciliation was skipped too) and those kinds are not
// checked.
func (v *Verifier) VerifyCatalog(ctx context.Context, batch *CatalogBatch) ([]CountMismatch, error) {
	if batch == nil {
		return nil, fmt.Errorf("batch is nil")
	}
	catalogName := batch.Catalog.Name

	checks := []struct {
		kind     model.EntityKind
		query    string
		arg      string
		expected int64
		skip     bool
	}{
		{
			kind:     model.KindCatalog,
			query:    "SELECT COUNT(*) FROM catalogs WHERE catalog_name = ?",
			arg:      catalogName,
			expected: 1,
		},
		{
			kind:     model.KindSchema,
			query:    "SELECT COUNT(*) FROM schemas WHERE catalog_name = ?",
			arg:      catalogName,
			expected: int64(len(batch.Schemas)),
		},
		{
			kind:     model.KindTable,
			query:    "SELECT COUNT(*) FROM tables WHERE catalog_name = ?",
			arg:      catalogName,
			expected: int64(len(batch.Tables)),
			skip:     batch.SkippedTables > 0,
		},
		{
			kind:     model.KindVolume,
			query:    "SELECT COUNT(*) FROM volumes WHERE catalog_name = ?",
			arg:      catalogName,
			expected: int64(len(batch.Volumes)),
		},
		{
			kind:     model.KindColumn,
			query:    "SELECT COUNT(*) FROM `columns` WHERE table_full_name LIKE ?",
			arg:      sqlutil.EscapeLikePattern(catalogName) + ".%",
			expected: int64(len(batch.Columns)),
			skip:     batch.SkippedTables > 0,
		},
	}

	var mismatches []CountMismatch
	for _, check := range checks {
		if check.skip {
			continue
		}

		var count int64
		if err := v.db.QueryRowContext(ctx, check.query, check.arg).Scan(&count); err != nil {
			return mismatches, fmt.Errorf("failed to count %s for catalog %s: %w", check.kind, catalogName, err)
		}
		if count != check.expected {
			m := CountMismatch{Kind: check.kind, Catalog: catalogName, Expected: check.expected, Warehouse: count}
			mismatches = append(mismatches, m)
			v.logger.Warnw("Post-commit count mismatch",
				"kind", string(check.kind),
				"catalog", catalogName,
				"expected", check.expected,
				"warehouse", count,
			)
		}
	}

	if len(mismatches) == 0 {
		v.logger.Debugw("Post-commit counts verified", "catalog", catalogName)
	}
	return mismatches, nil
}
