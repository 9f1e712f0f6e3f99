// Package model defines the canonical metadata entities replicated from the
// source catalog into the warehouse.
package model

import (
	"fmt"
	"strings"
	"time"
)

// EntityKind identifies one of the five replicated metadata entity kinds.
type EntityKind string

const (
	KindCatalog EntityKind = "catalogs"
	KindSchema  EntityKind = "schemas"
	KindTable   EntityKind = "tables"
	KindColumn  EntityKind = "columns"
	KindVolume  EntityKind = "volumes"
)

// Kinds lists all entity kinds in commit order (parents before children).
// The orchestrator upserts in this order so referential integrity holds by
// ordering alone; the destination carries no foreign keys.
func Kinds() []EntityKind {
	return []EntityKind{KindCatalog, KindSchema, KindTable, KindVolume, KindColumn}
}

// Catalog is the root of the metadata hierarchy.
type Catalog struct {
	Name        string
	CatalogType string
	Comment     string
	Owner       string
	CreatedAt   time.Time
	CreatedBy   string
	UpdatedAt   time.Time
	UpdatedBy   string
	MetastoreID string
}

// Schema belongs to exactly one catalog. FullName is "catalog.schema".
type Schema struct {
	FullName    string
	CatalogName string
	SchemaName  string
	Comment     string
	Owner       string
	CreatedAt   time.Time
	CreatedBy   string
	UpdatedAt   time.Time
	UpdatedBy   string
}

// Table belongs to exactly one schema. FullName is "catalog.schema.table".
type Table struct {
	FullName         string
	CatalogName      string
	SchemaName       string
	TableName        string
	TableType        string
	DataSourceFormat string
	StorageLocation  string
	Comment          string
	Owner            string
	CreatedAt        time.Time
	CreatedBy        string
	UpdatedAt        time.Time
	UpdatedBy        string
}

// Column is keyed by (TableFullName, Name). Position is the ordinal position
// within the table; strictly increasing but not necessarily contiguous.
// PartitionIndex is nil for non-partitioning columns.
type Column struct {
	TableFullName  string
	Name           string
	Position       int
	DataType       string
	Nullable       bool
	Comment        string
	PartitionIndex *int
}

// Key returns the composite identity of the column.
func (c Column) Key() string {
	return c.TableFullName + "." + c.Name
}

// Volume belongs to exactly one schema. Optional entity kind: installations
// without a volumes API yield zero volumes, never an error.
type Volume struct {
	FullName        string
	CatalogName     string
	SchemaName      string
	VolumeName      string
	VolumeType      string
	StorageLocation string
	Comment         string
	Owner           string
	CreatedAt       time.Time
	CreatedBy       string
	UpdatedAt       time.Time
	UpdatedBy       string
}

// RiskLevel classifies a table's PII exposure as produced by the external
// classification job.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
	RiskNone   RiskLevel = "NONE"
)

// PIIRiskRecord is a read-only row of the externally produced PII
// classification side table.
type PIIRiskRecord struct {
	TableFullName  string
	RiskLevel      RiskLevel
	PIIColumnCount int
	PIIColumns     string
	AvgPIIScore    float64
}

// FullName joins hierarchy parts with dots. Parts are compared byte-for-byte
// everywhere, so differently-cased names are distinct entities.
func FullName(parts ...string) string {
	return strings.Join(parts, ".")
}

// SplitTableFullName splits "catalog.schema.table" into its three parts.
func SplitTableFullName(fullName string) (catalog, schema, table string, err error) {
	parts := strings.Split(fullName, ".")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("invalid table full name %q: expected catalog.schema.table", fullName)
	}
	return parts[0], parts[1], parts[2], nil
}
