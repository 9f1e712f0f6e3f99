package governance

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/syncer"
)

type fakeLoader struct {
	cp  *syncer.Checkpoint
	err error
}

func (f *fakeLoader) Load() (*syncer.Checkpoint, error) {
	return f.cp, f.err
}

func newTestEngine(t *testing.T, loader CheckpointLoader) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e, err := NewEngine(db, loader, nil)
	require.NoError(t, err)
	return e, mock
}

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		documented int64
		highRisk   int64
		want       float64
	}{
		{"empty warehouse", 0, 0, 0, 0},
		{"fully documented no risk", 10, 10, 0, 100},
		{"undocumented no risk", 10, 0, 0, 60},
		{"documented all high risk", 10, 10, 10, 40},
		{"typical mix", 10, 7, 2, 0.4*70 + 0.6*80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.total, tt.documented, tt.highRisk), 1e-9)
		})
	}
}

func TestScore_MonotonicInRisk(t *testing.T) {
	// More high-risk tables never raises the score.
	prev := Score(10, 7, 0)
	for highRisk := int64(1); highRisk <= 10; highRisk++ {
		s := Score(10, 7, highRisk)
		assert.Less(t, s, prev, "score must strictly decrease as risk grows")
		prev = s
	}
}

func TestComplianceScore(t *testing.T) {
	e, mock := newTestEngine(t, nil)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(SUM").
		WillReturnRows(sqlmock.NewRows([]string{"total", "documented"}).AddRow(10, 7))
	mock.ExpectQuery("FROM pii_summary_by_table WHERE pii_columns_count > 0").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery("FROM pii_summary_by_table WHERE risk_level").
		WithArgs("HIGH").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	report, err := e.ComplianceScore(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(10), report.TotalTables)
	assert.Equal(t, int64(7), report.DocumentedTables)
	assert.Equal(t, int64(4), report.TablesWithPII)
	assert.Equal(t, int64(2), report.HighRiskTables)
	assert.InDelta(t, 70.0, report.DocumentationPct, 1e-9)
	assert.InDelta(t, 0.4*70+0.6*80, report.Score, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplianceScore_EmptyWarehouse(t *testing.T) {
	e, mock := newTestEngine(t, nil)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(SUM").
		WillReturnRows(sqlmock.NewRows([]string{"total", "documented"}).AddRow(0, 0))
	mock.ExpectQuery("FROM pii_summary_by_table WHERE pii_columns_count > 0").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("FROM pii_summary_by_table WHERE risk_level").
		WithArgs("HIGH").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	report, err := e.ComplianceScore(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.TablesWithPII)
	assert.Zero(t, report.Score)
	assert.Zero(t, report.DocumentationPct)
}

func TestHighRiskTables_OrderAndLimit(t *testing.T) {
	e, mock := newTestEngine(t, nil)

	mock.ExpectQuery("FROM pii_summary_by_table p").
		WithArgs("HIGH", 5).
		WillReturnRows(sqlmock.NewRows([]string{
			"table_full_name", "owner", "pii_columns_count", "pii_columns", "avg_pii_score",
		}).
			AddRow("main.sales.customers", "alice", 6, "email,phone,ssn", 0.91).
			AddRow("main.hr.employees", "bob", 6, "email,address", 0.88).
			AddRow("main.sales.orders", "alice", 2, "email", 0.75))

	tables, err := e.HighRiskTables(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.Equal(t, "main.sales.customers", tables[0].TableFullName)
	assert.Equal(t, 6, tables[0].PIIColumnCount)
	assert.Equal(t, "alice", tables[0].Owner)
	assert.InDelta(t, 0.91, tables[0].AvgPIIScore, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUndocumentedTables(t *testing.T) {
	e, mock := newTestEngine(t, nil)

	mock.ExpectQuery("WHERE comment IS NULL OR comment = ''").
		WillReturnRows(sqlmock.NewRows([]string{"full_name", "owner"}).
			AddRow("main.sales.orders", "alice").
			AddRow("main.sales.refunds", ""))

	tables, err := e.UndocumentedTables(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "main.sales.orders", tables[0].FullName)
	assert.Empty(t, tables[1].Owner)
}

func TestDocRateBySchema(t *testing.T) {
	e, mock := newTestEngine(t, nil)

	mock.ExpectQuery("GROUP BY catalog_name, schema_name").
		WillReturnRows(sqlmock.NewRows([]string{"catalog_name", "schema_name", "total", "documented"}).
			AddRow("main", "hr", 4, 4).
			AddRow("main", "sales", 8, 2))

	rates, err := e.DocRateBySchema(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.InDelta(t, 100.0, rates[0].DocumentationPct, 1e-9)
	assert.InDelta(t, 25.0, rates[1].DocumentationPct, 1e-9)
}

func TestTableExists(t *testing.T) {
	e, mock := newTestEngine(t, nil)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM tables WHERE full_name").
		WithArgs("main.sales.orders").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM tables WHERE full_name").
		WithArgs("main.sales.missing").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := e.TableExists(context.Background(), "main.sales.orders")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = e.TableExists(context.Background(), "main.sales.missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClassifyFreshness_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want FreshnessStatus
	}{
		{"zero age", 0, StatusFresh},
		{"just fresh", 19*time.Minute + 59*time.Second, StatusFresh},
		{"exactly 20m", 20 * time.Minute, StatusAcceptable},
		{"mid acceptable", 45 * time.Minute, StatusAcceptable},
		{"exactly 60m", 60 * time.Minute, StatusStale},
		{"very stale", 48 * time.Hour, StatusStale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFreshness(tt.age))
		})
	}
}

func TestMetadataFreshness(t *testing.T) {
	lastSync := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cp := syncer.NewCheckpoint()
	cp.AdvanceSyncTime(lastSync)

	e, _ := newTestEngine(t, &fakeLoader{cp: cp})
	e.now = func() time.Time { return lastSync.Add(25 * time.Minute) }

	fr, err := e.MetadataFreshness()
	require.NoError(t, err)
	assert.Equal(t, StatusAcceptable, fr.Status)
	assert.Equal(t, 25*time.Minute, fr.Age)
	assert.True(t, fr.LastSyncTime.Equal(lastSync))
}

func TestMetadataFreshness_NeverSynced(t *testing.T) {
	e, _ := newTestEngine(t, &fakeLoader{cp: syncer.NewCheckpoint()})

	fr, err := e.MetadataFreshness()
	require.NoError(t, err)
	assert.Equal(t, StatusNeverSynced, fr.Status)
}

func TestMetadataFreshness_NoStore(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	_, err := e.MetadataFreshness()
	assert.Error(t, err)
}

func TestMetadataFreshness_LoadError(t *testing.T) {
	e, _ := newTestEngine(t, &fakeLoader{err: assert.AnError})

	_, err := e.MetadataFreshness()
	assert.Error(t, err)
}
