// Package governance computes compliance and PII-risk reporting over the
// replicated metadata warehouse. All queries are read-only; the sync engine
// and the external classification job own the underlying tables.
package governance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/model"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/syncer"
)

// Freshness classification bands, lower bound inclusive.
const (
	freshBound      = 20 * time.Minute
	acceptableBound = 60 * time.Minute
)

// FreshnessStatus classifies how stale the warehouse metadata is.
type FreshnessStatus string

const (
	StatusFresh       FreshnessStatus = "FRESH"
	StatusAcceptable  FreshnessStatus = "ACCEPTABLE"
	StatusStale       FreshnessStatus = "STALE"
	StatusNeverSynced FreshnessStatus = "NEVER_SYNCED"
)

// CheckpointLoader reads the sync engine's persisted checkpoint. Satisfied
// by *syncer.StateStore.
type CheckpointLoader interface {
	Load() (*syncer.Checkpoint, error)
}

// Engine answers governance queries against the warehouse.
type Engine struct {
	db     *sql.DB
	store  CheckpointLoader
	logger *logger.Logger
	now    func() time.Time
}

// NewEngine creates a governance engine. store may be nil when freshness
// reporting is not needed.
func NewEngine(db *sql.DB, store CheckpointLoader, log *logger.Logger) (*Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Engine{
		db:     db,
		store:  store,
		logger: log,
		now:    time.Now,
	}, nil
}

// ComplianceReport is the warehouse-wide compliance summary.
type ComplianceReport struct {
	TotalTables      int64
	DocumentedTables int64
	TablesWithPII    int64
	HighRiskTables   int64
	DocumentationPct float64
	Score            float64
}

// Score combines documentation coverage and PII exposure into a 0-100
// compliance score: documentation carries 40% of the weight, absence of
// high-risk tables 60%. An empty warehouse scores 0.
func Score(total, documented, highRisk int64) float64 {
	if total <= 0 {
		return 0
	}
	docPct := 100 * float64(documented) / float64(total)
	riskFree := 100 * (1 - float64(highRisk)/float64(total))
	return 0.4*docPct + 0.6*riskFree
}

// ComplianceScore computes the warehouse-wide compliance report.
func (e *Engine) ComplianceScore(ctx context.Context) (*ComplianceReport, error) {
	report := &ComplianceReport{}

	err := e.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN comment IS NOT NULL AND comment != '' THEN 1 ELSE 0 END), 0) FROM tables",
	).Scan(&report.TotalTables, &report.DocumentedTables)
	if err != nil {
		return nil, fmt.Errorf("failed to count tables: %w", err)
	}

	err = e.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pii_summary_by_table WHERE pii_columns_count > 0",
	).Scan(&report.TablesWithPII)
	if err != nil {
		return nil, fmt.Errorf("failed to count tables with PII: %w", err)
	}

	err = e.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pii_summary_by_table WHERE risk_level = ?", string(model.RiskHigh),
	).Scan(&report.HighRiskTables)
	if err != nil {
		return nil, fmt.Errorf("failed to count high-risk tables: %w", err)
	}

	if report.TotalTables > 0 {
		report.DocumentationPct = 100 * float64(report.DocumentedTables) / float64(report.TotalTables)
	}
	report.Score = Score(report.TotalTables, report.DocumentedTables, report.HighRiskTables)
	return report, nil
}

// HighRiskTable is one row of the high-risk report, joined with ownership
// metadata when the table is present in the warehouse.
type HighRiskTable struct {
	TableFullName  string
	Owner          string
	PIIColumnCount int
	PIIColumns     string
	AvgPIIScore    float64
}

// HighRiskTables lists HIGH-risk tables, most PII columns first, table name
// as tiebreaker. limit <= 0 returns all rows.
func (e *Engine) HighRiskTables(ctx context.Context, limit int) ([]HighRiskTable, error) {
	query := `
		SELECT p.table_full_name, COALESCE(t.owner, ''), p.pii_columns_count, COALESCE(p.pii_columns, ''), COALESCE(p.avg_pii_score, 0)
		FROM pii_summary_by_table p
		LEFT JOIN tables t ON t.full_name = p.table_full_name
		WHERE p.risk_level = ?
		ORDER BY p.pii_columns_count DESC, p.table_full_name ASC`
	args := []interface{}{string(model.RiskHigh)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query high-risk tables: %w", err)
	}
	defer rows.Close()

	var out []HighRiskTable
	for rows.Next() {
		var t HighRiskTable
		if err := rows.Scan(&t.TableFullName, &t.Owner, &t.PIIColumnCount, &t.PIIColumns, &t.AvgPIIScore); err != nil {
			return nil, fmt.Errorf("failed to scan high-risk table row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate high-risk table rows: %w", err)
	}
	return out, nil
}

// UndocumentedTable is one table without a comment.
type UndocumentedTable struct {
	FullName string
	Owner    string
}

// UndocumentedTables lists tables with no comment, ordered by full name.
// limit <= 0 returns all rows.
func (e *Engine) UndocumentedTables(ctx context.Context, limit int) ([]UndocumentedTable, error) {
	query := `
		SELECT full_name, COALESCE(owner, '')
		FROM tables
		WHERE comment IS NULL OR comment = ''
		ORDER BY full_name ASC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query undocumented tables: %w", err)
	}
	defer rows.Close()

	var out []UndocumentedTable
	for rows.Next() {
		var t UndocumentedTable
		if err := rows.Scan(&t.FullName, &t.Owner); err != nil {
			return nil, fmt.Errorf("failed to scan undocumented table row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate undocumented table rows: %w", err)
	}
	return out, nil
}

// SchemaDocRate is documentation coverage for one schema.
type SchemaDocRate struct {
	CatalogName      string
	SchemaName       string
	TotalTables      int64
	DocumentedTables int64
	DocumentationPct float64
}

// DocRateBySchema reports per-schema documentation coverage, worst first.
func (e *Engine) DocRateBySchema(ctx context.Context) ([]SchemaDocRate, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT catalog_name, schema_name, COUNT(*),
			COALESCE(SUM(CASE WHEN comment IS NOT NULL AND comment != '' THEN 1 ELSE 0 END), 0)
		FROM tables
		GROUP BY catalog_name, schema_name
		ORDER BY catalog_name ASC, schema_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documentation rates: %w", err)
	}
	defer rows.Close()

	var out []SchemaDocRate
	for rows.Next() {
		var r SchemaDocRate
		if err := rows.Scan(&r.CatalogName, &r.SchemaName, &r.TotalTables, &r.DocumentedTables); err != nil {
			return nil, fmt.Errorf("failed to scan documentation rate row: %w", err)
		}
		if r.TotalTables > 0 {
			r.DocumentationPct = 100 * float64(r.DocumentedTables) / float64(r.TotalTables)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documentation rate rows: %w", err)
	}
	return out, nil
}

// TableExists reports whether a table is present in the warehouse.
func (e *Engine) TableExists(ctx context.Context, fullName string) (bool, error) {
	var count int64
	err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tables WHERE full_name = ?", fullName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", fullName, err)
	}
	return count > 0, nil
}

// Freshness reports how old the last successful sync is.
type Freshness struct {
	LastSyncTime time.Time
	Age          time.Duration
	Status       FreshnessStatus
}

// ClassifyFreshness maps a metadata age to its status band. Bounds are lower
// inclusive: exactly 20 minutes is ACCEPTABLE, exactly 60 minutes is STALE.
func ClassifyFreshness(age time.Duration) FreshnessStatus {
	switch {
	case age < freshBound:
		return StatusFresh
	case age < acceptableBound:
		return StatusAcceptable
	default:
		return StatusStale
	}
}

// MetadataFreshness reads the sync checkpoint and classifies its age.
func (e *Engine) MetadataFreshness() (*Freshness, error) {
	if e.store == nil {
		return nil, fmt.Errorf("no checkpoint store configured")
	}

	cp, err := e.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if cp.LastSyncTime.IsZero() {
		return &Freshness{Status: StatusNeverSynced}, nil
	}

	age := e.now().Sub(cp.LastSyncTime)
	return &Freshness{
		LastSyncTime: cp.LastSyncTime,
		Age:          age,
		Status:       ClassifyFreshness(age),
	}, nil
}
