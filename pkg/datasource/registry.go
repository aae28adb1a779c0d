package datasource

import (
	"fmt"
	"sync"
)

// SourceType is the closed set of data source kinds the registry knows
// how to construct an adapter for.
type SourceType string

const (
	SourcePostgreSQL SourceType = "postgresql"
	SourceMySQL      SourceType = "mysql"
	SourceSnowflake  SourceType = "snowflake"
	SourceBigQuery   SourceType = "bigquery"
	SourceSQLite     SourceType = "sqlite"
	SourceMongoDB    SourceType = "mongodb"
	SourceSalesforce SourceType = "salesforce"
	SourceRESTAPI    SourceType = "rest_api"
	SourceFile       SourceType = "file"
)

// Category groups SourceType values by the shape of adapter interface
// they satisfy; the context engine and orchestrator branch on this to
// decide which typed interface to assert an Adapter to.
type Category string

const (
	CategorySQL      Category = "sql"
	CategoryDocument Category = "document"
	CategoryAPI      Category = "api"
	CategoryFile     Category = "file"
)

// Definition describes a registered SourceType for discovery and
// validation purposes (e.g. surfacing supported types in config errors).
type Definition struct {
	Type         SourceType
	DisplayName  string
	Category     Category
	Description  string
	Capabilities func() interface{}
}

// Factory constructs an Adapter for a given Config. Returned adapters
// are not yet connected — callers must call Connect before use.
type Factory func(cfg Config) (Adapter, error)

// registry is the process-wide, write-once SourceType -> Factory map.
// Adapters register themselves from an init() in their package; lookups
// happen only after all adapter packages have been imported by main, so
// no locking is needed for reads, but Register itself is guarded to
// catch accidental double-registration during development.
type registry struct {
	mu          sync.Mutex
	factories   map[SourceType]Factory
	definitions map[SourceType]Definition
}

var global = &registry{
	factories:   make(map[SourceType]Factory),
	definitions: make(map[SourceType]Definition),
}

// Register binds sourceType to factory and def. It panics on a
// duplicate registration — a programming error, not a runtime
// condition — matching the teacher's controller-registration pattern of
// failing fast at startup rather than silently overwriting.
func Register(sourceType SourceType, def Definition, factory Factory) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if _, exists := global.factories[sourceType]; exists {
		panic(fmt.Sprintf("datasource: source type %q already registered", sourceType))
	}
	def.Type = sourceType
	global.factories[sourceType] = factory
	global.definitions[sourceType] = def
}

// New constructs an Adapter for cfg.Type, or an *AdapterError with code
// INVALID_CONFIG if no adapter is registered for that type.
func New(cfg Config) (Adapter, error) {
	global.mu.Lock()
	factory, ok := global.factories[cfg.Type]
	global.mu.Unlock()
	if !ok {
		return nil, NewAdapterError(CodeInvalidConfig, fmt.Sprintf("unsupported source type %q", cfg.Type), nil)
	}
	return factory(cfg)
}

// Definitions returns all registered source type definitions, for
// surfacing supported types (e.g. in a config validation error or a
// discovery endpoint).
func Definitions() []Definition {
	global.mu.Lock()
	defer global.mu.Unlock()
	defs := make([]Definition, 0, len(global.definitions))
	for _, d := range global.definitions {
		defs = append(defs, d)
	}
	return defs
}

// IsRegistered reports whether sourceType has a registered adapter.
func IsRegistered(sourceType SourceType) bool {
	global.mu.Lock()
	defer global.mu.Unlock()
	_, ok := global.factories[sourceType]
	return ok
}
