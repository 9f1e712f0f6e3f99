package catalog

// Raw API payloads as returned by the source catalog's REST surface.
// Timestamps are epoch milliseconds; normalization into canonical entities
// happens in the extractor, not here.

// CatalogInfo is one element of the catalogs list response.
type CatalogInfo struct {
	Name        string `json:"name"`
	CatalogType string `json:"catalog_type"`
	Comment     string `json:"comment"`
	Owner       string `json:"owner"`
	CreatedAt   int64  `json:"created_at"`
	CreatedBy   string `json:"created_by"`
	UpdatedAt   int64  `json:"updated_at"`
	UpdatedBy   string `json:"updated_by"`
	MetastoreID string `json:"metastore_id"`
}

// SchemaInfo is one element of the schemas list response.
type SchemaInfo struct {
	Name        string `json:"name"`
	CatalogName string `json:"catalog_name"`
	FullName    string `json:"full_name"`
	Comment     string `json:"comment"`
	Owner       string `json:"owner"`
	CreatedAt   int64  `json:"created_at"`
	CreatedBy   string `json:"created_by"`
	UpdatedAt   int64  `json:"updated_at"`
	UpdatedBy   string `json:"updated_by"`
}

// TableInfo is one element of the tables list response. The list endpoint
// returns summaries; GetTable fills in the detail fields and Columns.
type TableInfo struct {
	Name             string       `json:"name"`
	CatalogName      string       `json:"catalog_name"`
	SchemaName       string       `json:"schema_name"`
	FullName         string       `json:"full_name"`
	TableType        string       `json:"table_type"`
	DataSourceFormat string       `json:"data_source_format"`
	StorageLocation  string       `json:"storage_location"`
	Comment          string       `json:"comment"`
	Owner            string       `json:"owner"`
	CreatedAt        int64        `json:"created_at"`
	CreatedBy        string       `json:"created_by"`
	UpdatedAt        int64        `json:"updated_at"`
	UpdatedBy        string       `json:"updated_by"`
	Columns          []ColumnInfo `json:"columns"`
}

// ColumnInfo is one element of a table detail's column array.
type ColumnInfo struct {
	Name           string `json:"name"`
	Position       *int   `json:"position"`
	TypeText       string `json:"type_text"`
	TypeName       string `json:"type_name"`
	Nullable       *bool  `json:"nullable"`
	Comment        string `json:"comment"`
	PartitionIndex *int   `json:"partition_index"`
}

// VolumeInfo is one element of the volumes list response.
type VolumeInfo struct {
	Name            string `json:"name"`
	CatalogName     string `json:"catalog_name"`
	SchemaName      string `json:"schema_name"`
	FullName        string `json:"full_name"`
	VolumeType      string `json:"volume_type"`
	StorageLocation string `json:"storage_location"`
	Comment         string `json:"comment"`
	Owner           string `json:"owner"`
	CreatedAt       int64  `json:"created_at"`
	CreatedBy       string `json:"created_by"`
	UpdatedAt       int64  `json:"updated_at"`
	UpdatedBy       string `json:"updated_by"`
}
