// Package sql implements datasource.SQLAdapter over relational engines
// that accept arbitrary read-only SELECT text: PostgreSQL (via pgx's
// database/sql driver wrapped in sqlx) and SQLite (via modernc.org/sqlite).
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the "pgx" database/sql driver name used by sqlx.Connect.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/jordigilh/investigator/pkg/datasource"
	"github.com/jordigilh/investigator/pkg/domain"
)

func init() {
	datasource.Register(
		datasource.SourcePostgreSQL,
		datasource.Definition{
			DisplayName: "PostgreSQL",
			Category:    datasource.CategorySQL,
			Description: "PostgreSQL and Postgres-compatible relational databases",
		},
		newPostgresAdapter,
	)
}

// PostgresAdapter probes a PostgreSQL database through sqlx over pgx's
// database/sql driver.
type PostgresAdapter struct {
	cfg       datasource.Config
	db        *sqlx.DB
	driverDSN string
}

func newPostgresAdapter(cfg datasource.Config) (datasource.Adapter, error) {
	if cfg.Endpoint == "" {
		return nil, datasource.NewAdapterError(datasource.CodeMissingRequiredField, "postgresql adapter requires endpoint (connection string)", nil)
	}
	return &PostgresAdapter{cfg: cfg, driverDSN: cfg.Endpoint}, nil
}

// Connect opens a pooled connection via sqlx.Connect. pgx's database/sql
// driver defaults to statement caching keyed by query text; because probe
// SQL is generated fresh per hypothesis, an unbounded cache would grow for
// the life of a long-running orchestrator process, so the pool is capped
// tightly and idle connections are recycled aggressively instead of
// relying on statement-level caching to amortize cost.
func (a *PostgresAdapter) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, "pgx", a.driverDSN)
	if err != nil {
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "failed to connect to postgres", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "postgres ping failed", err)
	}

	a.db = db
	return nil
}

func (a *PostgresAdapter) Disconnect(ctx context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *PostgresAdapter) TestConnection(ctx context.Context) error {
	if a.db == nil {
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "adapter not connected", nil)
	}
	if err := a.db.PingContext(ctx); err != nil {
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "postgres ping failed", err)
	}
	return nil
}

func (a *PostgresAdapter) ExecuteQuery(ctx context.Context, query string) (domain.QueryResult, error) {
	start := time.Now()
	rows, err := a.db.QueryxContext(ctx, query)
	if err != nil {
		return domain.QueryResult{}, classifyQueryErr(err)
	}
	defer rows.Close()
	return scanRows(rows, start)
}

func scanRows(rows *sqlx.Rows, start time.Time) (domain.QueryResult, error) {
	colNames, err := rows.Columns()
	if err != nil {
		return domain.QueryResult{}, datasource.NewAdapterError(datasource.CodeInternalError, "failed to read columns", err)
	}
	colTypes, _ := rows.ColumnTypes()

	cols := make([]domain.ResultColumn, len(colNames))
	for i, name := range colNames {
		dbType := ""
		if colTypes != nil && i < len(colTypes) {
			dbType = colTypes[i].DatabaseTypeName()
		}
		cols[i] = domain.ResultColumn{Name: name, DataType: datasource.NormalizeType("postgresql", dbType)}
	}

	var resultRows []map[string]interface{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return domain.QueryResult{}, datasource.NewAdapterError(datasource.CodeInternalError, "failed to scan row", err)
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return domain.QueryResult{}, datasource.NewAdapterError(datasource.CodeInternalError, "row iteration failed", err)
	}

	return domain.QueryResult{
		Columns:         cols,
		Rows:            resultRows,
		RowCount:        len(resultRows),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (a *PostgresAdapter) GetSchema(ctx context.Context) (domain.SchemaResponse, error) {
	const tablesQuery = `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')`

	type tableRow struct {
		Schema string `db:"table_schema"`
		Name   string `db:"table_name"`
		Kind   string `db:"table_type"`
	}
	var tableRows []tableRow
	if err := a.db.SelectContext(ctx, &tableRows, tablesQuery); err != nil {
		return domain.SchemaResponse{}, datasource.NewAdapterError(datasource.CodeSchemaFetchFailed, "failed to list tables", err)
	}

	bySchema := map[string][]domain.Table{}
	for _, t := range tableRows {
		cols, err := a.columnsFor(ctx, t.Schema, t.Name)
		if err != nil {
			return domain.SchemaResponse{}, err
		}
		tt := domain.TableKindTable
		if t.Kind == "VIEW" {
			tt = domain.TableKindView
		}
		bySchema[t.Schema] = append(bySchema[t.Schema], domain.Table{
			Name:       t.Name,
			NativePath: fmt.Sprintf("%s.%s", t.Schema, t.Name),
			TableType:  tt,
			Columns:    cols,
		})
	}

	var schemas []domain.Schema
	for name, tables := range bySchema {
		schemas = append(schemas, domain.Schema{Name: name, Tables: tables})
	}
	return domain.SchemaResponse{Catalogs: []domain.Catalog{{Name: "default", Schemas: schemas}}}, nil
}

func (a *PostgresAdapter) columnsFor(ctx context.Context, schema, table string) ([]domain.Column, error) {
	const columnsQuery = `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	type columnRow struct {
		Name       string `db:"column_name"`
		NativeType string `db:"data_type"`
		Nullable   string `db:"is_nullable"`
	}
	var rows []columnRow
	if err := a.db.SelectContext(ctx, &rows, columnsQuery, schema, table); err != nil {
		return nil, datasource.NewAdapterError(datasource.CodeSchemaFetchFailed, "failed to list columns", err)
	}

	cols := make([]domain.Column, len(rows))
	for i, r := range rows {
		cols[i] = domain.Column{
			Name:       r.Name,
			NativeType: r.NativeType,
			DataType:   datasource.NormalizeType("postgresql", r.NativeType),
			Nullable:   r.Nullable == "YES",
		}
	}
	return cols, nil
}

func (a *PostgresAdapter) Preview(ctx context.Context, table string, limit int) (domain.QueryResult, error) {
	ident, err := sanitizeTable(table)
	if err != nil {
		return domain.QueryResult{}, err
	}
	if limit <= 0 {
		limit = 50
	}
	return a.ExecuteQuery(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", ident, limit))
}

func (a *PostgresAdapter) Sample(ctx context.Context, table string, size int) (domain.QueryResult, error) {
	ident, err := sanitizeTable(table)
	if err != nil {
		return domain.QueryResult{}, err
	}
	if size <= 0 {
		size = 100
	}
	return a.ExecuteQuery(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY random() LIMIT %d", ident, size))
}

func (a *PostgresAdapter) CountRows(ctx context.Context, table string) (int64, error) {
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

func (a *PostgresAdapter) GetColumnStats(ctx context.Context, table, column string) (datasource.ColumnStats, error) {
	tableIdent, err := sanitizeTable(table)
	if err != nil {
		return datasource.ColumnStats{}, err
	}
	colIdent, err := sanitizeTable(column)
	if err != nil {
		return datasource.ColumnStats{}, err
	}

	query := fmt.Sprintf(
		`SELECT count(*) FILTER (WHERE %[2]s IS NULL) AS null_count,
		        count(DISTINCT %[2]s) AS distinct_count,
		        min(%[2]s)::text AS min_value,
		        max(%[2]s)::text AS max_value
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

func (a *PostgresAdapter) Capabilities() domain.AdapterCapabilities {
	return domain.AdapterCapabilities{ColumnStats: true, Sampling: true, RowCount: true, Preview: true, Freshness: false, Write: false}
}

func classifyQueryErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return datasource.NewAdapterError(datasource.CodeTableNotFound, "no rows returned", err)
	}
	return datasource.NewAdapterError(datasource.CodeQuerySyntaxError, "query failed", err)
}
