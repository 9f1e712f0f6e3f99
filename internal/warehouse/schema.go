package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
)

// Destination table DDL. Column contracts are consumed bit-exact by the
// governance layer and the external dashboard; every row carries _synced_at
// set to the run's commit time. No foreign keys: referential integrity is
// enforced by commit ordering.

const createCatalogsTableSQL = `
CREATE TABLE IF NOT EXISTS catalogs (
	catalog_name VARCHAR(255) PRIMARY KEY,
	catalog_type VARCHAR(64),
	comment TEXT,
	owner VARCHAR(255),
	created_at TIMESTAMP NULL,
	created_by VARCHAR(255),
	updated_at TIMESTAMP NULL,
	updated_by VARCHAR(255),
	metastore_id VARCHAR(255),
	_synced_at TIMESTAMP NULL
) ENGINE=InnoDB;
`

const createSchemasTableSQL = `
CREATE TABLE IF NOT EXISTS schemas (
	full_name VARCHAR(512) PRIMARY KEY,
	catalog_name VARCHAR(255) NOT NULL,
	schema_name VARCHAR(255) NOT NULL,
	comment TEXT,
	owner VARCHAR(255),
	created_at TIMESTAMP NULL,
	created_by VARCHAR(255),
	updated_at TIMESTAMP NULL,
	updated_by VARCHAR(255),
	_synced_at TIMESTAMP NULL,
	INDEX idx_schemas_catalog (catalog_name)
) ENGINE=InnoDB;
`

const createTablesTableSQL = `
CREATE TABLE IF NOT EXISTS tables (
	full_name VARCHAR(512) PRIMARY KEY,
	catalog_name VARCHAR(255) NOT NULL,
	schema_name VARCHAR(255) NOT NULL,
	table_name VARCHAR(255) NOT NULL,
	table_type VARCHAR(64),
	data_source_format VARCHAR(64),
	storage_location TEXT,
	comment TEXT,
	owner VARCHAR(255),
	created_at TIMESTAMP NULL,
	created_by VARCHAR(255),
	updated_at TIMESTAMP NULL,
	updated_by VARCHAR(255),
	_synced_at TIMESTAMP NULL,
	INDEX idx_tables_catalog (catalog_name),
	INDEX idx_tables_schema (catalog_name, schema_name)
) ENGINE=InnoDB;
`

const createColumnsTableSQL = `
CREATE TABLE IF NOT EXISTS columns (
	table_full_name VARCHAR(512) NOT NULL,
	column_name VARCHAR(255) NOT NULL,
	position INT,
	data_type TEXT,
	nullable TINYINT(1),
	comment TEXT,
	partition_index INT NULL,
	_synced_at TIMESTAMP NULL,
	PRIMARY KEY (table_full_name, column_name)
) ENGINE=InnoDB;
`

const createVolumesTableSQL = `
CREATE TABLE IF NOT EXISTS volumes (
	full_name VARCHAR(512) PRIMARY KEY,
	catalog_name VARCHAR(255) NOT NULL,
	schema_name VARCHAR(255) NOT NULL,
	volume_name VARCHAR(255) NOT NULL,
	volume_type VARCHAR(64),
	storage_location TEXT,
	comment TEXT,
	owner VARCHAR(255),
	created_at TIMESTAMP NULL,
	created_by VARCHAR(255),
	updated_at TIMESTAMP NULL,
	updated_by VARCHAR(255),
	_synced_at TIMESTAMP NULL,
	INDEX idx_volumes_catalog (catalog_name)
) ENGINE=InnoDB;
`

// pii_summary_by_table is produced by the external classification job; the
// definition here only bootstraps an empty table so governance queries work
// before the first classification run.
const createPIISummaryTableSQL = `
CREATE TABLE IF NOT EXISTS pii_summary_by_table (
	table_full_name VARCHAR(512) PRIMARY KEY,
	risk_level VARCHAR(16),
	pii_columns_count INT,
	pii_columns TEXT,
	avg_pii_score DOUBLE
) ENGINE=InnoDB;
`

// InitializeSchema creates destination tables if they don't exist.
// Idempotent and safe to call on every startup.
func InitializeSchema(ctx context.Context, db *sql.DB, log *logger.Logger) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	statements := []struct {
		table string
		ddl   string
	}{
		{"catalogs", createCatalogsTableSQL},
		{"schemas", createSchemasTableSQL},
		{"tables", createTablesTableSQL},
		{"columns", createColumnsTableSQL},
		{"volumes", createVolumesTableSQL},
		{"pii_summary_by_table", createPIISummaryTableSQL},
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.table, err)
		}
	}

	log.Info("Destination schema initialized")
	return nil
}
