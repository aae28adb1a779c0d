package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jordigilh/investigator/pkg/datasource"
	"github.com/jordigilh/investigator/pkg/domain"
)

func init() {
	datasource.Register(
		datasource.SourceSQLite,
		datasource.Definition{
			DisplayName: "SQLite",
			Category:    datasource.CategorySQL,
			Description: "embedded SQLite databases and analyst-exported snapshots",
		},
		newSQLiteAdapter,
	)
}

// SQLiteAdapter probes a SQLite file through sqlx over the pure-Go
// modernc.org/sqlite driver, registered under the database/sql name
// "sqlite". Used for local snapshot datasets; pkg/orchestrator/store
// opens the same driver directly for its event store rather than going
// through this adapter.
type SQLiteAdapter struct {
	cfg datasource.Config
	db  *sqlx.DB
}

func newSQLiteAdapter(cfg datasource.Config) (datasource.Adapter, error) {
	if cfg.Endpoint == "" {
		return nil, datasource.NewAdapterError(datasource.CodeMissingRequiredField, "sqlite adapter requires endpoint (file path)", nil)
	}
	return &SQLiteAdapter{cfg: cfg}, nil
}

func (a *SQLiteAdapter) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, "sqlite", a.cfg.Endpoint)
	if err != nil {
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "failed to open sqlite database", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; keep reads serialized too for simplicity.
	a.db = db
	return nil
}

func (a *SQLiteAdapter) Disconnect(ctx context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *SQLiteAdapter) TestConnection(ctx context.Context) error {
	if a.db == nil {
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "adapter not connected", nil)
	}
	if err := a.db.PingContext(ctx); err != nil {
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "sqlite ping failed", err)
	}
	return nil
}

func (a *SQLiteAdapter) ExecuteQuery(ctx context.Context, query string) (domain.QueryResult, error) {
	start := time.Now()
	rows, err := a.db.QueryxContext(ctx, query)
	if err != nil {
		return domain.QueryResult{}, classifyQueryErr(err)
	}
	defer rows.Close()
	return scanRows(rows, start)
}

func (a *SQLiteAdapter) GetSchema(ctx context.Context) (domain.SchemaResponse, error) {
	var names []string
	if err := a.db.SelectContext(ctx, &names,
		"SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name NOT LIKE 'sqlite_%'"); err != nil {
		return domain.SchemaResponse{}, datasource.NewAdapterError(datasource.CodeSchemaFetchFailed, "failed to list tables", err)
	}

	var tables []domain.Table
	for _, name := range names {
		ident, err := sanitizeTable(name)
		if err != nil {
			continue
		}
		cols, err := a.columnsFor(ctx, ident)
		if err != nil {
			return domain.SchemaResponse{}, err
		}
		tables = append(tables, domain.Table{Name: name, NativePath: name, TableType: domain.TableKindTable, Columns: cols})
	}

	return domain.SchemaResponse{Catalogs: []domain.Catalog{{Name: "main", Schemas: []domain.Schema{{Name: "main", Tables: tables}}}}}, nil
}

type sqlitePragmaColumn struct {
	Name     string `db:"name"`
	Type     string `db:"type"`
	NotNull  int    `db:"notnull"`
}

func (a *SQLiteAdapter) columnsFor(ctx context.Context, table string) ([]domain.Column, error) {
	var pragmaCols []sqlitePragmaColumn
	if err := a.db.SelectContext(ctx, &pragmaCols, fmt.Sprintf("PRAGMA table_info(%s)", table)); err != nil {
		return nil, datasource.NewAdapterError(datasource.CodeSchemaFetchFailed, "failed to read table_info", err)
	}
	cols := make([]domain.Column, len(pragmaCols))
	for i, c := range pragmaCols {
		cols[i] = domain.Column{
			Name:       c.Name,
			NativeType: c.Type,
			DataType:   datasource.NormalizeType("postgresql", c.Type), // SQLite's type affinities overlap postgres's common names closely enough to reuse the table.
			Nullable:   c.NotNull == 0,
		}
	}
	return cols, nil
}

func (a *SQLiteAdapter) Preview(ctx context.Context, table string, limit int) (domain.QueryResult, error) {
	ident, err := sanitizeTable(table)
	if err != nil {
		return domain.QueryResult{}, err
	}
	if limit <= 0 {
		limit = 50
	}
	return a.ExecuteQuery(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", ident, limit))
}

func (a *SQLiteAdapter) Sample(ctx context.Context, table string, size int) (domain.QueryResult, error) {
	ident, err := sanitizeTable(table)
	if err != nil {
		return domain.QueryResult{}, err
	}
	if size <= 0 {
		size = 100
	}
	return a.ExecuteQuery(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY RANDOM() LIMIT %d", ident, size))
}

func (a *SQLiteAdapter) CountRows(ctx context.Context, table string) (int64, error) {
	ident, err := sanitizeTable(table)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := a.db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", ident)); err != nil {
		return 0, classifyQueryErr(err)
	}
	return count, nil
}

func (a *SQLiteAdapter) GetColumnStats(ctx context.Context, table, column string) (datasource.ColumnStats, error) {
	tableIdent, err := sanitizeTable(table)
	if err != nil {
		return datasource.ColumnStats{}, err
	}
	colIdent, err := sanitizeTable(column)
	if err != nil {
		return datasource.ColumnStats{}, err
	}

	query := fmt.Sprintf(
		`SELECT
		   SUM(CASE WHEN %[2]s IS NULL THEN 1 ELSE 0 END) AS null_count,
		   COUNT(DISTINCT %[2]s) AS distinct_count,
		   MIN(%[2]s) AS min_value,
		   MAX(%[2]s) AS max_value
		 FROM %[1]s`, tableIdent, colIdent)

	var row struct {
		NullCount     int64   `db:"null_count"`
		DistinctCount int64   `db:"distinct_count"`
		MinValue      *string `db:"min_value"`
		MaxValue      *string `db:"max_value"`
	}
	if err := a.db.GetContext(ctx, &row, query); err != nil {
		return datasource.ColumnStats{}, classifyQueryErr(err)
	}

	stats := datasource.ColumnStats{Column: column, NullCount: row.NullCount, DistinctCount: row.DistinctCount}
	if row.MinValue != nil {
		stats.Min = *row.MinValue
	}
	if row.MaxValue != nil {
		stats.Max = *row.MaxValue
	}
	return stats, nil
}

func (a *SQLiteAdapter) Capabilities() domain.AdapterCapabilities {
	return domain.AdapterCapabilities{ColumnStats: true, Sampling: true, RowCount: true, Preview: true, Freshness: false, Write: false}
}
