package syncer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/catalog"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/model"
)

// CatalogAPI is the subset of the catalog client the extractor depends on.
// Accepting the interface lets tests substitute a fake without network I/O.
type CatalogAPI interface {
	ListCatalogs(ctx context.Context) ([]catalog.CatalogInfo, error)
	ListSchemas(ctx context.Context, catalogName string) ([]catalog.SchemaInfo, error)
	ListTables(ctx context.Context, catalogName, schemaName string) ([]catalog.TableInfo, error)
	GetTable(ctx context.Context, fullName string) (*catalog.TableInfo, error)
	ListVolumes(ctx context.Context, catalogName, schemaName string) ([]catalog.VolumeInfo, error)
}

// Extractor walks the catalog hierarchy in dependency order and normalizes
// raw API payloads into canonical entities. Extraction is restartable per
// catalog: each Extract call is independent, so catalogs committed before a
// failure are never re-extracted on resume.
type Extractor struct {
	api     CatalogAPI
	allow   map[string]struct{} // nil = sync all catalogs
	workers int
	logger  *logger.Logger
}

// NewExtractor creates an extractor. allowList empty means every catalog is
// synced; workers bounds the per-catalog table-detail fan-out.
func NewExtractor(api CatalogAPI, allowList []string, workers int, log *logger.Logger) (*Extractor, error) {
	if api == nil {
		return nil, fmt.Errorf("catalog API is nil")
	}
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = logger.NewDefault()
	}

	var allow map[string]struct{}
	if len(allowList) > 0 {
		allow = make(map[string]struct{}, len(allowList))
		for _, name := range allowList {
			allow[name] = struct{}{}
		}
	}

	return &Extractor{
		api:     api,
		allow:   allow,
		workers: workers,
		logger:  log,
	}, nil
}

// CatalogBatch holds every entity extracted from one catalog, already
// normalized and ordered for commit (schemas before tables/volumes before
// columns).
type CatalogBatch struct {
	Catalog model.Catalog
	Schemas []model.Schema
	Tables  []model.Table
	Volumes []model.Volume
	Columns []model.Column

	// SkippedTables counts tables whose detail fetch failed and were
	// dropped from this run; they are retried naturally on the next run.
	SkippedTables int
}

// Counts returns per-kind entity counts for checkpoint bookkeeping.
func (b *CatalogBatch) Counts() map[string]int64 {
	return map[string]int64{
		string(model.KindCatalog): 1,
		string(model.KindSchema):  int64(len(b.Schemas)),
		string(model.KindTable):   int64(len(b.Tables)),
		string(model.KindVolume):  int64(len(b.Volumes)),
		string(model.KindColumn):  int64(len(b.Columns)),
	}
}

// Catalogs lists all catalogs visible to the credential, filtered by the
// allow-list, in API order.
func (e *Extractor) Catalogs(ctx context.Context) ([]model.Catalog, error) {
	infos, err := e.api.ListCatalogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogs: %w", err)
	}

	var out []model.Catalog
	for _, info := range infos {
		if e.allow != nil {
			if _, ok := e.allow[info.Name]; !ok {
				e.logger.Debugw("Skipping catalog (not in allow-list)", "catalog", info.Name)
				continue
			}
		}
		out = append(out, normalizeCatalog(info))
	}
	return out, nil
}

// Extract walks one catalog: schemas, then tables and volumes per schema
// (volumes concurrently with tables, neither depends on the other), then
// table details and columns through the bounded worker pool.
func (e *Extractor) Extract(ctx context.Context, cat model.Catalog) (*CatalogBatch, error) {
	log := e.logger.WithCatalog(cat.Name)
	batch := &CatalogBatch{Catalog: cat}

	schemas, err := e.api.ListSchemas(ctx, cat.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas for catalog %s: %w", cat.Name, err)
	}

	var summaries []catalog.TableInfo
	for _, si := range schemas {
		batch.Schemas = append(batch.Schemas, normalizeSchema(si, cat.Name))

		tables, volumes, err := e.listSchemaChildren(ctx, cat.Name, si.Name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, tables...)
		for _, vi := range volumes {
			batch.Volumes = append(batch.Volumes, normalizeVolume(vi, cat.Name, si.Name))
		}
	}

	tables, columns, skipped, err := e.fetchTableDetails(ctx, log, summaries)
	if err != nil {
		return nil, err
	}
	batch.Tables = tables
	batch.Columns = columns
	batch.SkippedTables = skipped

	// Deterministic commit order regardless of worker completion order.
	sort.Slice(batch.Tables, func(i, j int) bool { return batch.Tables[i].FullName < batch.Tables[j].FullName })
	sort.Slice(batch.Columns, func(i, j int) bool {
		if batch.Columns[i].TableFullName != batch.Columns[j].TableFullName {
			return batch.Columns[i].TableFullName < batch.Columns[j].TableFullName
		}
		return batch.Columns[i].Position < batch.Columns[j].Position
	})

	log.Infow("Catalog extracted",
		"schemas", len(batch.Schemas),
		"tables", len(batch.Tables),
		"columns", len(batch.Columns),
		"volumes", len(batch.Volumes),
		"skipped_tables", batch.SkippedTables,
	)
	return batch, nil
}

// listSchemaChildren fetches a schema's tables and volumes concurrently.
func (e *Extractor) listSchemaChildren(ctx context.Context, catalogName, schemaName string) ([]catalog.TableInfo, []catalog.VolumeInfo, error) {
	var (
		tables  []catalog.TableInfo
		volumes []catalog.VolumeInfo
		tErr    error
		vErr    error
		wg      sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		tables, tErr = e.api.ListTables(ctx, catalogName, schemaName)
	}()
	go func() {
		defer wg.Done()
		volumes, vErr = e.api.ListVolumes(ctx, catalogName, schemaName)
	}()
	wg.Wait()

	if tErr != nil {
		return nil, nil, fmt.Errorf("failed to list tables for %s: %w", model.FullName(catalogName, schemaName), tErr)
	}
	if vErr != nil {
		return nil, nil, fmt.Errorf("failed to list volumes for %s: %w", model.FullName(catalogName, schemaName), vErr)
	}
	return tables, volumes, nil
}

type detailResult struct {
	summary catalog.TableInfo
	detail  *catalog.TableInfo
	err     error
}

// fetchTableDetails fans table-detail requests out over the worker pool and
// fans back in before returning. A failed detail fetch drops that table from
// the run (warn-logged) unless the failure is a credential error, which
// aborts the catalog.
func (e *Extractor) fetchTableDetails(ctx context.Context, log *logger.Logger, summaries []catalog.TableInfo) ([]model.Table, []model.Column, int, error) {
	if len(summaries) == 0 {
		return nil, nil, 0, nil
	}

	// Every return path must unblock the feeder and any worker parked on
	// the results channel, so derive a context cancelled on exit.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan catalog.TableInfo)
	results := make(chan detailResult)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for summary := range jobs {
				detail, err := e.api.GetTable(ctx, tableFullName(summary))
				select {
				case results <- detailResult{summary: summary, detail: detail, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, s := range summaries {
			select {
			case jobs <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		tables  []model.Table
		columns []model.Column
		skipped int
	)
	for r := range results {
		fullName := tableFullName(r.summary)
		if r.err != nil {
			if catalog.IsUnauthorized(r.err) {
				return nil, nil, 0, r.err
			}
			log.Warnw("Failed to fetch table details, skipping table",
				"table", fullName,
				"error", r.err,
			)
			skipped++
			continue
		}

		tables = append(tables, normalizeTable(*r.detail, r.summary))
		columns = append(columns, e.normalizeColumns(log, fullName, r.detail.Columns)...)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, 0, err
	}
	return tables, columns, skipped, nil
}

// normalizeColumns converts raw column payloads, deduplicating ordinal
// positions. Positions must be unique per table; when the source violates
// that, the last-seen column per position wins (extraction order) and the
// conflict is warn-logged, never fatal.
func (e *Extractor) normalizeColumns(log *logger.Logger, tableFullName string, infos []catalog.ColumnInfo) []model.Column {
	byPosition := orderedmap.NewOrderedMap[int, model.Column]()
	for idx, ci := range infos {
		position := idx
		if ci.Position != nil {
			position = *ci.Position
		}
		if _, exists := byPosition.Get(position); exists {
			log.Warnw("Duplicate column ordinal position, last-seen column wins",
				"table", tableFullName,
				"position", position,
				"column", ci.Name,
			)
		}

		nullable := true
		if ci.Nullable != nil {
			nullable = *ci.Nullable
		}
		dataType := ci.TypeText
		if dataType == "" {
			dataType = ci.TypeName
		}

		byPosition.Set(position, model.Column{
			TableFullName:  tableFullName,
			Name:           ci.Name,
			Position:       position,
			DataType:       dataType,
			Nullable:       nullable,
			Comment:        ci.Comment,
			PartitionIndex: ci.PartitionIndex,
		})
	}

	out := make([]model.Column, 0, byPosition.Len())
	for el := byPosition.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

func tableFullName(t catalog.TableInfo) string {
	if t.FullName != "" {
		return t.FullName
	}
	return model.FullName(t.CatalogName, t.SchemaName, t.Name)
}

func normalizeCatalog(ci catalog.CatalogInfo) model.Catalog {
	catalogType := ci.CatalogType
	if catalogType == "" {
		catalogType = "MANAGED_CATALOG"
	}
	return model.Catalog{
		Name:        ci.Name,
		CatalogType: catalogType,
		Comment:     ci.Comment,
		Owner:       ci.Owner,
		CreatedAt:   millisToTime(ci.CreatedAt),
		CreatedBy:   ci.CreatedBy,
		UpdatedAt:   millisToTime(ci.UpdatedAt),
		UpdatedBy:   ci.UpdatedBy,
		MetastoreID: ci.MetastoreID,
	}
}

func normalizeSchema(si catalog.SchemaInfo, catalogName string) model.Schema {
	fullName := si.FullName
	if fullName == "" {
		fullName = model.FullName(catalogName, si.Name)
	}
	return model.Schema{
		FullName:    fullName,
		CatalogName: catalogName,
		SchemaName:  si.Name,
		Comment:     si.Comment,
		Owner:       si.Owner,
		CreatedAt:   millisToTime(si.CreatedAt),
		CreatedBy:   si.CreatedBy,
		UpdatedAt:   millisToTime(si.UpdatedAt),
		UpdatedBy:   si.UpdatedBy,
	}
}

func normalizeTable(detail catalog.TableInfo, summary catalog.TableInfo) model.Table {
	catalogName := detail.CatalogName
	if catalogName == "" {
		catalogName = summary.CatalogName
	}
	schemaName := detail.SchemaName
	if schemaName == "" {
		schemaName = summary.SchemaName
	}
	name := detail.Name
	if name == "" {
		name = summary.Name
	}
	return model.Table{
		FullName:         model.FullName(catalogName, schemaName, name),
		CatalogName:      catalogName,
		SchemaName:       schemaName,
		TableName:        name,
		TableType:        detail.TableType,
		DataSourceFormat: detail.DataSourceFormat,
		StorageLocation:  detail.StorageLocation,
		Comment:          detail.Comment,
		Owner:            detail.Owner,
		CreatedAt:        millisToTime(detail.CreatedAt),
		CreatedBy:        detail.CreatedBy,
		UpdatedAt:        millisToTime(detail.UpdatedAt),
		UpdatedBy:        detail.UpdatedBy,
	}
}

func normalizeVolume(vi catalog.VolumeInfo, catalogName, schemaName string) model.Volume {
	fullName := vi.FullName
	if fullName == "" {
		fullName = model.FullName(catalogName, schemaName, vi.Name)
	}
	return model.Volume{
		FullName:        fullName,
		CatalogName:     catalogName,
		SchemaName:      schemaName,
		VolumeName:      vi.Name,
		VolumeType:      vi.VolumeType,
		StorageLocation: vi.StorageLocation,
		Comment:         vi.Comment,
		Owner:           vi.Owner,
		CreatedAt:       millisToTime(vi.CreatedAt),
		CreatedBy:       vi.CreatedBy,
		UpdatedAt:       millisToTime(vi.UpdatedAt),
		UpdatedBy:       vi.UpdatedBy,
	}
}

// millisToTime converts an epoch-millisecond timestamp to UTC, preserving
// zero as the zero time (stored as NULL downstream).
func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
