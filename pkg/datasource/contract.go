package datasource

import (
	"context"

	"github.com/jordigilh/investigator/pkg/domain"
)

// Config carries the connection details for a single configured data
// source instance, as loaded from internal/config.DataSourceConfig plus
// any type-specific fields an adapter needs from its options map.
type Config struct {
	TenantID string
	Type     SourceType
	Endpoint string
	Options  map[string]interface{}
}

// Adapter is the contract every data source implementation satisfies.
// Shape-specific adapters (sql, document, api, file) add their own
// richer accessors but must still implement this common surface so the
// orchestrator and context engine can treat any configured source
// uniformly for connection lifecycle, schema discovery, and sampling.
type Adapter interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	TestConnection(ctx context.Context) error

	GetSchema(ctx context.Context) (domain.SchemaResponse, error)
	Preview(ctx context.Context, table string, limit int) (domain.QueryResult, error)
	Sample(ctx context.Context, table string, size int) (domain.QueryResult, error)
	CountRows(ctx context.Context, table string) (int64, error)

	Capabilities() domain.AdapterCapabilities
}

// SQLAdapter is implemented by adapters over a shape that accepts
// arbitrary read-only SQL probes.
type SQLAdapter interface {
	Adapter
	ExecuteQuery(ctx context.Context, sql string) (domain.QueryResult, error)
	GetColumnStats(ctx context.Context, table, column string) (ColumnStats, error)
}

// DocumentAdapter is implemented by adapters over a document store.
type DocumentAdapter interface {
	Adapter
	ScanCollection(ctx context.Context, collection string, filter map[string]interface{}, limit int) (domain.QueryResult, error)
	CountDocuments(ctx context.Context, collection string, filter map[string]interface{}) (int64, error)
	Aggregate(ctx context.Context, collection string, pipeline []map[string]interface{}) (domain.QueryResult, error)
	InferSchema(ctx context.Context, collection string, sampleSize int) (domain.Table, error)
}

// APIAdapter is implemented by adapters over a generic object-oriented
// REST API (e.g. a CRM).
type APIAdapter interface {
	Adapter
	ListObjects(ctx context.Context) ([]string, error)
	DescribeObject(ctx context.Context, object string) (domain.Table, error)
	QueryObject(ctx context.Context, object string, filter map[string]interface{}, limit int) (domain.QueryResult, error)
}

// FileAdapter is implemented by adapters over a file-based source
// (object storage paths, local directories).
type FileAdapter interface {
	Adapter
	ListFiles(ctx context.Context, prefix string) ([]string, error)
	ReadFile(ctx context.Context, path string, limit int) (domain.QueryResult, error)
	InferSchema(ctx context.Context, path string) (domain.Table, error)
}

// ColumnStats summarizes a single column for correlation and pattern
// probes without requiring a full SELECT.
type ColumnStats struct {
	Column      string
	NullCount   int64
	DistinctCount int64
	Min         interface{}
	Max         interface{}
	Mean        *float64
}
