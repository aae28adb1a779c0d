// Package sqlparser extracts lineage edges from SQL transformation text
// (CREATE TABLE AS SELECT, CREATE VIEW, INSERT INTO ... SELECT, and
// MERGE INTO ... USING ...) when no lineage metadata service has been
// configured for a tenant. It is the last-resort lineage source: a
// repository of executed SQL (a query log, a dbt manifest, a migration
// directory) is the only input, and every edge it reports is an
// inference, not an authoritative record.
package sqlparser

import (
	"regexp"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/jordigilh/investigator/pkg/domain"
)

// Statement is one piece of SQL transformation text to extract lineage
// from, with the output table it is already known to produce (e.g. the
// migration file name, or a query log's target table column).
type Statement struct {
	Output string
	SQL    string
}

// Extractor derives LineageEdges from a corpus of SQL statements using a
// real parse of the SELECT/INSERT forms the bundled parser understands,
// falling back to RegexParser for DDL forms it doesn't (CREATE VIEW,
// MERGE INTO — both postdate this parser's vitess-fork grammar).
type Extractor struct {
	Platform string
	fallback *RegexParser
}

// NewExtractor returns an Extractor labelling every produced DatasetID
// with platform.
func NewExtractor(platform string) *Extractor {
	return &Extractor{Platform: platform, fallback: &RegexParser{Platform: platform}}
}

// Extract derives the lineage edge(s) implied by stmt. A statement may
// produce zero edges (e.g. a SELECT with no target) or, for a MERGE,
// more than one (one edge per source consulted).
func (e *Extractor) Extract(stmt Statement) []domain.LineageEdge {
	trimmed := strings.TrimSpace(stmt.SQL)
	upper := strings.ToUpper(trimmed)

	switch {
	case strings.HasPrefix(upper, "CREATE VIEW"), strings.HasPrefix(upper, "CREATE OR REPLACE VIEW"):
		return e.fallback.Extract(stmt)
	case strings.HasPrefix(upper, "MERGE INTO"), strings.HasPrefix(upper, "MERGE "):
		return e.fallback.Extract(stmt)
	case strings.HasPrefix(upper, "CREATE TABLE") && strings.Contains(upper, " AS SELECT"):
		return e.extractCTAS(stmt)
	case strings.HasPrefix(upper, "INSERT INTO"):
		return e.extractInsert(stmt)
	default:
		return e.fallback.Extract(stmt)
	}
}

func (e *Extractor) extractCTAS(stmt Statement) []domain.LineageEdge {
	idx := strings.Index(strings.ToUpper(stmt.SQL), " AS SELECT")
	if idx == -1 {
		return e.fallback.Extract(stmt)
	}
	selectPart := strings.TrimSpace(stmt.SQL[idx+len(" AS "):])
	return e.edgesFromSelect(stmt.Output, selectPart, stmt)
}

func (e *Extractor) extractInsert(stmt Statement) []domain.LineageEdge {
	parsed, err := sqlparser.Parse(stmt.SQL)
	if err != nil {
		return e.fallback.Extract(stmt)
	}
	insert, ok := parsed.(*sqlparser.Insert)
	if !ok {
		return e.fallback.Extract(stmt)
	}

	output := stmt.Output
	if output == "" {
		output = insert.Table.Name.String()
	}

	selectStmt, ok := insert.Rows.(*sqlparser.Select)
	if !ok {
		return nil
	}
	return e.edgesFromSelectAST(output, selectStmt)
}

func (e *Extractor) edgesFromSelect(output, selectSQL string, stmt Statement) []domain.LineageEdge {
	parsed, err := sqlparser.Parse(selectSQL)
	if err != nil {
		return e.fallback.Extract(stmt)
	}
	selectStmt, ok := parsed.(*sqlparser.Select)
	if !ok {
		return e.fallback.Extract(stmt)
	}
	return e.edgesFromSelectAST(output, selectStmt)
}

func (e *Extractor) edgesFromSelectAST(output string, selectStmt *sqlparser.Select) []domain.LineageEdge {
	tables := collectTables(selectStmt.From)
	target := domain.DatasetID{Platform: e.Platform, Name: output}

	var edges []domain.LineageEdge
	seen := map[string]bool{}
	for _, t := range tables {
		if t == output || seen[t] {
			continue
		}
		seen[t] = true
		edges = append(edges, domain.LineageEdge{
			Source: domain.DatasetID{Platform: e.Platform, Name: t},
			Target: target,
		})
	}
	return edges
}

// collectTables walks a FROM clause (including JOINs) and returns every
// base table name referenced, in appearance order.
func collectTables(from sqlparser.TableExprs) []string {
	var names []string
	var walk func(sqlparser.TableExpr)
	walk = func(expr sqlparser.TableExpr) {
		switch t := expr.(type) {
		case *sqlparser.AliasedTableExpr:
			if tableName, ok := t.Expr.(sqlparser.TableName); ok {
				names = append(names, tableName.Name.String())
			}
		case *sqlparser.JoinTableExpr:
			walk(t.LeftExpr)
			walk(t.RightExpr)
		case *sqlparser.ParenTableExpr:
			for _, e := range t.Exprs {
				walk(e)
			}
		}
	}
	for _, expr := range from {
		walk(expr)
	}
	return names
}

// RegexParser is the best-effort fallback lineage extractor for SQL
// forms the bundled AST parser cannot handle (CREATE VIEW, MERGE INTO).
// It never claims certainty: every edge it returns should be treated as
// a low-confidence hint, not an authoritative lineage fact.
type RegexParser struct {
	Platform string
}

var (
	fromPattern = regexp.MustCompile(`(?i)\bFROM\s+([A-Za-z_][\w.]*)`)
	joinPattern = regexp.MustCompile(`(?i)\bJOIN\s+([A-Za-z_][\w.]*)`)
	usingPattern = regexp.MustCompile(`(?i)\bUSING\s+([A-Za-z_][\w.]*)`)
)

// Extract regex-scans stmt.SQL for FROM/JOIN/USING table references and
// reports one edge per distinct source found into stmt.Output.
func (r *RegexParser) Extract(stmt Statement) []domain.LineageEdge {
	if stmt.Output == "" {
		return nil
	}
	target := domain.DatasetID{Platform: r.Platform, Name: stmt.Output}

	seen := map[string]bool{}
	var edges []domain.LineageEdge
	addAll := func(matches [][]string) {
		for _, m := range matches {
			name := m[1]
			if name == stmt.Output || seen[name] {
				continue
			}
			seen[name] = true
			edges = append(edges, domain.LineageEdge{
				Source: domain.DatasetID{Platform: r.Platform, Name: name},
				Target: target,
			})
		}
	}

	addAll(fromPattern.FindAllStringSubmatch(stmt.SQL, -1))
	addAll(joinPattern.FindAllStringSubmatch(stmt.SQL, -1))
	addAll(usingPattern.FindAllStringSubmatch(stmt.SQL, -1))
	return edges
}
