package domain

import (
	"strconv"
	"strings"
)

// Column describes one column of a Table in the normalized schema model.
type Column struct {
	Name       string         `json:"name"`
	NativeType string         `json:"native_type"`
	DataType   NormalizedType `json:"data_type"`
	Nullable   bool           `json:"nullable"`
}

// Table describes one table, view, or object of a Schema.
type Table struct {
	Name       string    `json:"name"`
	NativePath string    `json:"native_path"`
	TableType  TableType `json:"table_type"`
	Columns    []Column  `json:"columns"`
}

// ColumnNames returns the names of every column in the table, in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by case-insensitive name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Schema is a named grouping of Tables within a Catalog.
type Schema struct {
	Name   string  `json:"name"`
	Tables []Table `json:"tables"`
}

// Catalog is the top level of the three-level schema hierarchy.
type Catalog struct {
	Name    string   `json:"name"`
	Schemas []Schema `json:"schemas"`
}

// SchemaResponse is the frozen result of an adapter's get_schema call.
type SchemaResponse struct {
	Catalogs []Catalog `json:"catalogs"`
}

// TableNames returns the names (Table.Name, not the native path) of every table across every
// catalog and schema, for quick lookups.
func (s SchemaResponse) TableNames() []string {
	var names []string
	for _, cat := range s.Catalogs {
		for _, sch := range cat.Schemas {
			for _, t := range sch.Tables {
				names = append(names, t.Name)
			}
		}
	}
	return names
}

// FindTable locates the first table whose native_path or name matches
// name case-insensitively.
func (s SchemaResponse) FindTable(name string) (Table, bool) {
	for _, cat := range s.Catalogs {
		for _, sch := range cat.Schemas {
			for _, t := range sch.Tables {
				if strings.EqualFold(t.Name, name) || strings.EqualFold(t.NativePath, name) {
					return t, true
				}
			}
		}
	}
	return Table{}, false
}

// AllTables returns every table across every catalog and schema.
func (s SchemaResponse) AllTables() []Table {
	var tables []Table
	for _, cat := range s.Catalogs {
		for _, sch := range cat.Schemas {
			tables = append(tables, sch.Tables...)
		}
	}
	return tables
}

// PromptString renders a compact textual description of the schema for
// embedding in an LLM prompt, capped at maxTables tables and maxColumns
// columns per table.
func (s SchemaResponse) PromptString(maxTables, maxColumns int) string {
	var b strings.Builder
	tables := s.AllTables()
	for i, t := range tables {
		if i >= maxTables {
			b.WriteString("... (")
			b.WriteString(strconv.Itoa(len(tables) - maxTables))
			b.WriteString(" more tables omitted)\n")
			break
		}
		b.WriteString(t.Name)
		b.WriteString(" (")
		b.WriteString(string(t.TableType))
		b.WriteString("): ")
		cols := t.Columns
		for j, c := range cols {
			if j >= maxColumns {
				b.WriteString("...")
				break
			}
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			b.WriteString(":")
			b.WriteString(string(c.DataType))
		}
		b.WriteString("\n")
	}
	return b.String()
}
