package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/model"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/retry"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/sqlutil"
)

// Writer commits extracted batches to the warehouse with multi-row upserts
// and reconciles deletions by diffing warehouse state against the extracted
// batch. Every statement is idempotent, so batches are retried on transient
// database failures without risk of duplication.
type Writer struct {
	db        *sql.DB
	batchSize int
	retry     retry.Config
	logger    *logger.Logger
}

// NewWriter creates a writer bound to an open warehouse connection.
func NewWriter(db *sql.DB, batchSize int, retryCfg retry.Config, log *logger.Logger) (*Writer, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Writer{
		db:        db,
		batchSize: batchSize,
		retry:     retryCfg,
		logger:    log,
	}, nil
}

// WriteStats accumulates per-kind upsert and delete counts across a catalog.
type WriteStats struct {
	Upserted map[string]int64
	Deleted  map[string]int64
}

// NewWriteStats returns zeroed stats.
func NewWriteStats() *WriteStats {
	return &WriteStats{
		Upserted: make(map[string]int64),
		Deleted:  make(map[string]int64),
	}
}

// TotalUpserted sums upsert counts across entity kinds.
func (s *WriteStats) TotalUpserted() int64 {
	var total int64
	for _, n := range s.Upserted {
		total += n
	}
	return total
}

// TotalDeleted sums delete counts across entity kinds.
func (s *WriteStats) TotalDeleted() int64 {
	var total int64
	for _, n := range s.Deleted {
		total += n
	}
	return total
}

// WriteBatch upserts a catalog batch in commit order: catalog, schemas,
// tables, volumes, then columns. Parents always land before children so the
// warehouse never exposes a child row without its parent.
func (w *Writer) WriteBatch(ctx context.Context, batch *CatalogBatch, syncedAt time.Time) (*WriteStats, error) {
	if batch == nil {
		return nil, fmt.Errorf("batch is nil")
	}
	stats := NewWriteStats()

	n, err := w.UpsertCatalogs(ctx, []model.Catalog{batch.Catalog}, syncedAt)
	if err != nil {
		return stats, err
	}
	stats.Upserted[string(model.KindCatalog)] = n

	if n, err = w.UpsertSchemas(ctx, batch.Schemas, syncedAt); err != nil {
		return stats, err
	}
	stats.Upserted[string(model.KindSchema)] = n

	if n, err = w.UpsertTables(ctx, batch.Tables, syncedAt); err != nil {
		return stats, err
	}
	stats.Upserted[string(model.KindTable)] = n

	if n, err = w.UpsertVolumes(ctx, batch.Volumes, syncedAt); err != nil {
		return stats, err
	}
	stats.Upserted[string(model.KindVolume)] = n

	if n, err = w.UpsertColumns(ctx, batch.Columns, syncedAt); err != nil {
		return stats, err
	}
	stats.Upserted[string(model.KindColumn)] = n

	return stats, nil
}

// UpsertCatalogs writes catalog rows.
func (w *Writer) UpsertCatalogs(ctx context.Context, catalogs []model.Catalog, syncedAt time.Time) (int64, error) {
	rows := make([][]interface{}, 0, len(catalogs))
	for _, c := range catalogs {
		rows = append(rows, []interface{}{
			c.Name, c.CatalogType, c.Comment, c.Owner,
			nullTime(c.CreatedAt), c.CreatedBy, nullTime(c.UpdatedAt), c.UpdatedBy,
			c.MetastoreID, syncedAt,
		})
	}
	return w.upsertRows(ctx, "catalogs", []string{
		"catalog_name", "catalog_type", "comment", "owner",
		"created_at", "created_by", "updated_at", "updated_by",
		"metastore_id", "_synced_at",
	}, rows)
}

// UpsertSchemas writes schema rows.
func (w *Writer) UpsertSchemas(ctx context.Context, schemas []model.Schema, syncedAt time.Time) (int64, error) {
	rows := make([][]interface{}, 0, len(schemas))
	for _, s := range schemas {
		rows = append(rows, []interface{}{
			s.FullName, s.CatalogName, s.SchemaName, s.Comment, s.Owner,
			nullTime(s.CreatedAt), s.CreatedBy, nullTime(s.UpdatedAt), s.UpdatedBy,
			syncedAt,
		})
	}
	return w.upsertRows(ctx, "schemas", []string{
		"full_name", "catalog_name", "schema_name", "comment", "owner",
		"created_at", "created_by", "updated_at", "updated_by",
		"_synced_at",
	}, rows)
}

// UpsertTables writes table rows.
func (w *Writer) UpsertTables(ctx context.Context, tables []model.Table, syncedAt time.Time) (int64, error) {
	rows := make([][]interface{}, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, []interface{}{
			t.FullName, t.CatalogName, t.SchemaName, t.TableName,
			t.TableType, t.DataSourceFormat, t.StorageLocation,
			t.Comment, t.Owner,
			nullTime(t.CreatedAt), t.CreatedBy, nullTime(t.UpdatedAt), t.UpdatedBy,
			syncedAt,
		})
	}
	return w.upsertRows(ctx, "tables", []string{
		"full_name", "catalog_name", "schema_name", "table_name",
		"table_type", "data_source_format", "storage_location",
		"comment", "owner",
		"created_at", "created_by", "updated_at", "updated_by",
		"_synced_at",
	}, rows)
}

// UpsertVolumes writes volume rows.
func (w *Writer) UpsertVolumes(ctx context.Context, volumes []model.Volume, syncedAt time.Time) (int64, error) {
	rows := make([][]interface{}, 0, len(volumes))
	for _, v := range volumes {
		rows = append(rows, []interface{}{
			v.FullName, v.CatalogName, v.SchemaName, v.VolumeName,
			v.VolumeType, v.StorageLocation, v.Comment, v.Owner,
			nullTime(v.CreatedAt), v.CreatedBy, nullTime(v.UpdatedAt), v.UpdatedBy,
			syncedAt,
		})
	}
	return w.upsertRows(ctx, "volumes", []string{
		"full_name", "catalog_name", "schema_name", "volume_name",
		"volume_type", "storage_location", "comment", "owner",
		"created_at", "created_by", "updated_at", "updated_by",
		"_synced_at",
	}, rows)
}

// UpsertColumns writes column rows.
func (w *Writer) UpsertColumns(ctx context.Context, columns []model.Column, syncedAt time.Time) (int64, error) {
	rows := make([][]interface{}, 0, len(columns))
	for _, c := range columns {
		rows = append(rows, []interface{}{
			c.TableFullName, c.Name, c.Position, c.DataType,
			c.Nullable, c.Comment, c.PartitionIndex, syncedAt,
		})
	}
	return w.upsertRows(ctx, "columns", []string{
		"table_full_name", "column_name", "position", "data_type",
		"nullable", "comment", "partition_index", "_synced_at",
	}, rows)
}

// upsertRows executes batched multi-row INSERT ... ON DUPLICATE KEY UPDATE
// statements. Non-key columns are refreshed from the incoming row, so
// re-running a batch converges on the same warehouse state.
func (w *Writer) upsertRows(ctx context.Context, table string, columns []string, rows [][]interface{}) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	updates := make([]string, 0, len(columns))
	for _, col := range columns {
		quoted := sqlutil.QuoteIdentifier(col)
		updates = append(updates, fmt.Sprintf("%s=VALUES(%s)", quoted, quoted))
	}
	quotedCols := make([]string, 0, len(columns))
	for _, col := range columns {
		quotedCols = append(quotedCols, sqlutil.QuoteIdentifier(col))
	}

	var total int64
	for start := 0; start < len(rows); start += w.batchSize {
		end := start + w.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		query := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES %s ON DUPLICATE KEY UPDATE %s",
			sqlutil.QuoteIdentifier(table),
			strings.Join(quotedCols, ", "),
			strings.TrimSuffix(strings.Repeat(placeholder+",", len(chunk)), ","),
			strings.Join(updates, ", "),
		)

		args := make([]interface{}, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			args = append(args, row...)
		}

		err := retry.Do(ctx, w.retry, w.logger, "upsert "+table, func(ctx context.Context) error {
			_, execErr := w.db.ExecContext(ctx, query, args...)
			return execErr
		}, nil)
		if err != nil {
			return total, fmt.Errorf("failed to upsert into %s: %w", table, err)
		}
		total += int64(len(chunk))
	}

	w.logger.Debugw("Upserted rows", "table", table, "rows", total)
	return total, nil
}

// Reconcile removes warehouse rows within the batch's catalog scope that no
// longer exist at the source. Deletes run children-first (columns, tables,
// volumes, schemas) so a parent never outlives its children mid-reconcile.
func (w *Writer) Reconcile(ctx context.Context, batch *CatalogBatch) (map[string]int64, error) {
	if batch == nil {
		return nil, fmt.Errorf("batch is nil")
	}
	deleted := make(map[string]int64)

	// A table whose detail fetch failed is absent from the batch but still
	// exists at the source. Deleting it here would be wrong, so table and
	// column reconciliation is skipped for this catalog until a clean run.
	if batch.SkippedTables > 0 {
		w.logger.Warnw("Skipping table and column reconciliation, extraction was incomplete",
			"catalog", batch.Catalog.Name,
			"skipped_tables", batch.SkippedTables,
		)
	} else {
		n, err := w.reconcileColumns(ctx, batch)
		if err != nil {
			return deleted, err
		}
		deleted[string(model.KindColumn)] = n

		if n, err = w.reconcileByCatalog(ctx, "tables", batch.Catalog.Name, tableNames(batch)); err != nil {
			return deleted, err
		}
		deleted[string(model.KindTable)] = n
	}

	n, err := w.reconcileByCatalog(ctx, "volumes", batch.Catalog.Name, volumeNames(batch))
	if err != nil {
		return deleted, err
	}
	deleted[string(model.KindVolume)] = n

	if n, err = w.reconcileByCatalog(ctx, "schemas", batch.Catalog.Name, schemaNames(batch)); err != nil {
		return deleted, err
	}
	deleted[string(model.KindSchema)] = n

	return deleted, nil
}

// reconcileByCatalog deletes rows of one entity table within a catalog whose
// full_name was not seen in this run's extraction.
func (w *Writer) reconcileByCatalog(ctx context.Context, table, catalogName string, seen map[string]struct{}) (int64, error) {
	query := fmt.Sprintf("SELECT full_name FROM %s WHERE catalog_name = ?", sqlutil.QuoteIdentifier(table))
	rows, err := w.db.QueryContext(ctx, query, catalogName)
	if err != nil {
		return 0, fmt.Errorf("failed to list existing %s for catalog %s: %w", table, catalogName, err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var fullName string
		if err := rows.Scan(&fullName); err != nil {
			return 0, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		if _, ok := seen[fullName]; !ok {
			stale = append(stale, fullName)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate %s rows: %w", table, err)
	}

	return w.deleteByFullName(ctx, table, stale)
}

func (w *Writer) deleteByFullName(ctx context.Context, table string, fullNames []string) (int64, error) {
	var total int64
	for start := 0; start < len(fullNames); start += w.batchSize {
		end := start + w.batchSize
		if end > len(fullNames) {
			end = len(fullNames)
		}
		chunk := fullNames[start:end]

		query := fmt.Sprintf(
			"DELETE FROM %s WHERE full_name IN (%s)",
			sqlutil.QuoteIdentifier(table),
			strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ","),
		)
		args := make([]interface{}, len(chunk))
		for i, name := range chunk {
			args[i] = name
		}

		err := retry.Do(ctx, w.retry, w.logger, "delete from "+table, func(ctx context.Context) error {
			_, execErr := w.db.ExecContext(ctx, query, args...)
			return execErr
		}, nil)
		if err != nil {
			return total, fmt.Errorf("failed to delete stale %s rows: %w", table, err)
		}
		total += int64(len(chunk))
	}

	if total > 0 {
		w.logger.Infow("Removed stale rows", "table", table, "rows", total)
	}
	return total, nil
}

// reconcileColumns scopes the columns table to the catalog through a LIKE
// prefix on table_full_name (the columns table carries no catalog_name) and
// deletes by the (table_full_name, column_name) composite key.
func (w *Writer) reconcileColumns(ctx context.Context, batch *CatalogBatch) (int64, error) {
	pattern := sqlutil.EscapeLikePattern(batch.Catalog.Name) + ".%"
	rows, err := w.db.QueryContext(ctx,
		"SELECT table_full_name, column_name FROM `columns` WHERE table_full_name LIKE ?", pattern)
	if err != nil {
		return 0, fmt.Errorf("failed to list existing columns for catalog %s: %w", batch.Catalog.Name, err)
	}
	defer rows.Close()

	seen := make(map[string]struct{}, len(batch.Columns))
	for _, c := range batch.Columns {
		seen[c.Key()] = struct{}{}
	}

	type columnKey struct {
		tableFullName string
		columnName    string
	}
	var stale []columnKey
	for rows.Next() {
		var key columnKey
		if err := rows.Scan(&key.tableFullName, &key.columnName); err != nil {
			return 0, fmt.Errorf("failed to scan columns row: %w", err)
		}
		if _, ok := seen[key.tableFullName+"."+key.columnName]; !ok {
			stale = append(stale, key)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate columns rows: %w", err)
	}

	var total int64
	for start := 0; start < len(stale); start += w.batchSize {
		end := start + w.batchSize
		if end > len(stale) {
			end = len(stale)
		}
		chunk := stale[start:end]

		query := fmt.Sprintf(
			"DELETE FROM `columns` WHERE (table_full_name, column_name) IN (%s)",
			strings.TrimSuffix(strings.Repeat("(?,?),", len(chunk)), ","),
		)
		args := make([]interface{}, 0, len(chunk)*2)
		for _, key := range chunk {
			args = append(args, key.tableFullName, key.columnName)
		}

		err := retry.Do(ctx, w.retry, w.logger, "delete from columns", func(ctx context.Context) error {
			_, execErr := w.db.ExecContext(ctx, query, args...)
			return execErr
		}, nil)
		if err != nil {
			return total, fmt.Errorf("failed to delete stale columns rows: %w", err)
		}
		total += int64(len(chunk))
	}

	if total > 0 {
		w.logger.Infow("Removed stale rows", "table", "columns", "rows", total)
	}
	return total, nil
}

// ReconcileCatalogs removes catalogs that vanished from the source, together
// with all their descendant rows. Only safe after an unfiltered run that
// extracted every catalog, so the orchestrator gates the call on that.
func (w *Writer) ReconcileCatalogs(ctx context.Context, seen map[string]struct{}) (int64, error) {
	rows, err := w.db.QueryContext(ctx, "SELECT catalog_name FROM catalogs")
	if err != nil {
		return 0, fmt.Errorf("failed to list existing catalogs: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return 0, fmt.Errorf("failed to scan catalogs row: %w", err)
		}
		if _, ok := seen[name]; !ok {
			stale = append(stale, name)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate catalogs rows: %w", err)
	}

	for _, name := range stale {
		if err := w.deleteCatalogTree(ctx, name); err != nil {
			return 0, err
		}
		w.logger.Infow("Removed vanished catalog", "catalog", name)
	}
	return int64(len(stale)), nil
}

// deleteCatalogTree removes one catalog and its descendants, children first.
func (w *Writer) deleteCatalogTree(ctx context.Context, catalogName string) error {
	pattern := sqlutil.EscapeLikePattern(catalogName) + ".%"

	statements := []struct {
		query string
		arg   interface{}
	}{
		{"DELETE FROM `columns` WHERE table_full_name LIKE ?", pattern},
		{"DELETE FROM volumes WHERE catalog_name = ?", catalogName},
		{"DELETE FROM tables WHERE catalog_name = ?", catalogName},
		{"DELETE FROM schemas WHERE catalog_name = ?", catalogName},
		{"DELETE FROM catalogs WHERE catalog_name = ?", catalogName},
	}
	for _, stmt := range statements {
		err := retry.Do(ctx, w.retry, w.logger, "delete catalog tree", func(ctx context.Context) error {
			_, execErr := w.db.ExecContext(ctx, stmt.query, stmt.arg)
			return execErr
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to delete catalog %s: %w", catalogName, err)
		}
	}
	return nil
}

func schemaNames(batch *CatalogBatch) map[string]struct{} {
	out := make(map[string]struct{}, len(batch.Schemas))
	for _, s := range batch.Schemas {
		out[s.FullName] = struct{}{}
	}
	return out
}

func tableNames(batch *CatalogBatch) map[string]struct{} {
	out := make(map[string]struct{}, len(batch.Tables))
	for _, t := range batch.Tables {
		out[t.FullName] = struct{}{}
	}
	return out
}

func volumeNames(batch *CatalogBatch) map[string]struct{} {
	out := make(map[string]struct{}, len(batch.Volumes))
	for _, v := range batch.Volumes {
		out[v.FullName] = struct{}{}
	}
	return out
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
