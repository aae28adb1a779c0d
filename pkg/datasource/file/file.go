// Package file implements datasource.FileAdapter over file-based sources:
// local directories and object-storage prefixes holding CSV, JSON, and
// JSON-lines snapshots. Parquet was evaluated against the retrieved
// example corpus; no parquet library appeared in any example repo's
// dependency graph, so it is left unimplemented here rather than adding
// an ungrounded dependency (see DESIGN.md).
package file

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jordigilh/investigator/pkg/datasource"
	"github.com/jordigilh/investigator/pkg/domain"
)

func init() {
	datasource.Register(
		datasource.SourceFile,
		datasource.Definition{
			DisplayName: "File",
			Category:    datasource.CategoryFile,
			Description: "CSV, JSON, and JSON-lines snapshots on local disk or a mounted object-storage path",
		},
		newFileAdapter,
	)
}

// FileAdapter reads tabular snapshots rooted at cfg.Endpoint (a
// directory path). Each file is treated as one logical table named
// after its base filename without extension.
type FileAdapter struct {
	root string
}

func newFileAdapter(cfg datasource.Config) (datasource.Adapter, error) {
	if cfg.Endpoint == "" {
		return nil, datasource.NewAdapterError(datasource.CodeMissingRequiredField, "file adapter requires endpoint (root directory)", nil)
	}
	return &FileAdapter{root: cfg.Endpoint}, nil
}

func (a *FileAdapter) Connect(ctx context.Context) error {
	info, err := os.Stat(a.root)
	if err != nil {
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "file root not accessible", err)
	}
	if !info.IsDir() {
		return datasource.NewAdapterError(datasource.CodeInvalidConfig, "file adapter endpoint must be a directory", nil)
	}
	return nil
}

func (a *FileAdapter) Disconnect(ctx context.Context) error { return nil }

func (a *FileAdapter) TestConnection(ctx context.Context) error {
	return a.Connect(ctx)
}

func (a *FileAdapter) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	entries, err := os.ReadDir(filepath.Join(a.root, prefix))
	if err != nil {
		return nil, datasource.NewAdapterError(datasource.CodeSchemaFetchFailed, "failed to list files", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isSupportedExt(e.Name()) {
			names = append(names, filepath.Join(prefix, e.Name()))
		}
	}
	sort.Strings(names)
	return names, nil
}

func isSupportedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv" || ext == ".json" || ext == ".jsonl" || ext == ".ndjson"
}

// ReadFile reads up to limit rows from path, dispatching on extension.
func (a *FileAdapter) ReadFile(ctx context.Context, path string, limit int) (domain.QueryResult, error) {
	if limit <= 0 {
		limit = 100
	}
	full := filepath.Join(a.root, path)
	f, err := os.Open(full)
	if err != nil {
		return domain.QueryResult{}, datasource.NewAdapterError(datasource.CodeTableNotFound, "file not found: "+path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(f, limit)
	case ".json":
		return readJSONArray(f, limit)
	case ".jsonl", ".ndjson":
		return readJSONLines(f, limit)
	default:
		return domain.QueryResult{}, datasource.NewAdapterError(datasource.CodeInvalidConfig, "unsupported file extension: "+path, nil)
	}
}

func readCSV(f io.Reader, limit int) (domain.QueryResult, error) {
	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return domain.QueryResult{}, nil
		}
		return domain.QueryResult{}, datasource.NewAdapterError(datasource.CodeInternalError, "failed to read CSV header", err)
	}

	cols := make([]domain.ResultColumn, len(header))
	for i, name := range header {
		cols[i] = domain.ResultColumn{Name: name, DataType: domain.TypeString}
	}

	var rows []map[string]interface{}
	truncated := false
	for len(rows) < limit {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.QueryResult{}, datasource.NewAdapterError(datasource.CodeInternalError, "failed to read CSV row", err)
		}
		row := make(map[string]interface{}, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	if _, err := r.Read(); err == nil {
		truncated = true
	}

	return domain.QueryResult{Columns: cols, Rows: rows, RowCount: len(rows), Truncated: truncated}, nil
}

func readJSONArray(f io.Reader, limit int) (domain.QueryResult, error) {
	var all []map[string]interface{}
	if err := json.NewDecoder(f).Decode(&all); err != nil {
		return domain.QueryResult{}, datasource.NewAdapterError(datasource.CodeInternalError, "failed to parse JSON array", err)
	}
	return rowsResult(all, limit), nil
}

func readJSONLines(f io.Reader, limit int) (domain.QueryResult, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var all []map[string]interface{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row map[string]interface{}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return domain.QueryResult{}, datasource.NewAdapterError(datasource.CodeInternalError, "failed to parse JSON line", err)
		}
		all = append(all, row)
	}
	if err := scanner.Err(); err != nil {
		return domain.QueryResult{}, datasource.NewAdapterError(datasource.CodeInternalError, "failed to scan JSON lines", err)
	}
	return rowsResult(all, limit), nil
}

func rowsResult(all []map[string]interface{}, limit int) domain.QueryResult {
	fieldSeen := map[string]bool{}
	var cols []domain.ResultColumn
	for _, row := range all {
		for k := range row {
			if !fieldSeen[k] {
				fieldSeen[k] = true
				cols = append(cols, domain.ResultColumn{Name: k, DataType: domain.TypeUnknown})
			}
		}
	}

	truncated := len(all) > limit
	if truncated {
		all = all[:limit]
	}
	return domain.QueryResult{Columns: cols, Rows: all, RowCount: len(all), Truncated: truncated}
}

func (a *FileAdapter) InferSchema(ctx context.Context, path string) (domain.Table, error) {
	result, err := a.ReadFile(ctx, path, 50)
	if err != nil {
		return domain.Table{}, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	cols := make([]domain.Column, len(result.Columns))
	for i, c := range result.Columns {
		cols[i] = domain.Column{Name: c.Name, NativeType: string(c.DataType), DataType: c.DataType, Nullable: true}
	}
	return domain.Table{Name: name, NativePath: path, TableType: domain.TableKindFile, Columns: cols}, nil
}

func (a *FileAdapter) GetSchema(ctx context.Context) (domain.SchemaResponse, error) {
	files, err := a.ListFiles(ctx, "")
	if err != nil {
		return domain.SchemaResponse{}, err
	}
	var tables []domain.Table
	for _, path := range files {
		table, err := a.InferSchema(ctx, path)
		if err != nil {
			return domain.SchemaResponse{}, err
		}
		tables = append(tables, table)
	}
	return domain.SchemaResponse{Catalogs: []domain.Catalog{{Name: "files", Schemas: []domain.Schema{{Name: "default", Tables: tables}}}}}, nil
}

func (a *FileAdapter) pathForTable(table string) (string, error) {
	files, err := a.ListFiles(context.Background(), "")
	if err != nil {
		return "", err
	}
	for _, path := range files {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if base == table {
			return path, nil
		}
	}
	return "", datasource.NewAdapterError(datasource.CodeTableNotFound, "no file found for table "+table, nil)
}

func (a *FileAdapter) Preview(ctx context.Context, table string, limit int) (domain.QueryResult, error) {
	path, err := a.pathForTable(table)
	if err != nil {
		return domain.QueryResult{}, err
	}
	return a.ReadFile(ctx, path, limit)
}

func (a *FileAdapter) Sample(ctx context.Context, table string, size int) (domain.QueryResult, error) {
	return a.Preview(ctx, table, size)
}

func (a *FileAdapter) CountRows(ctx context.Context, table string) (int64, error) {
	result, err := a.Preview(ctx, table, 1<<30)
	if err != nil {
		return 0, err
	}
	return int64(result.RowCount), nil
}

func (a *FileAdapter) Capabilities() domain.AdapterCapabilities {
	return domain.AdapterCapabilities{ColumnStats: false, Sampling: false, RowCount: true, Preview: true, Freshness: false, Write: false}
}
