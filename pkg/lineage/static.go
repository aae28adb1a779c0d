package lineage

import (
	"context"
	"strings"

	"github.com/jordigilh/investigator/pkg/domain"
	"github.com/jordigilh/investigator/pkg/lineage/sqlparser"
)

// StaticProvider answers lineage queries from a graph built once, at
// construction time, by running sqlparser.Extractor over a corpus of SQL
// transformation text (a query log, a dbt manifest, a migration
// directory). It is the last-resort provider for a tenant with no
// metadata service configured: every edge it reports was inferred from
// SQL text, not read from an authoritative catalog.
type StaticProvider struct {
	platform string
	graph    *domain.LineageGraph
	rootID   domain.DatasetID
}

// NewStaticProvider extracts lineage edges from every statement using
// extractor and assembles them into a graph rooted at root.
func NewStaticProvider(extractor *sqlparser.Extractor, platform string, root domain.DatasetID, statements []sqlparser.Statement) *StaticProvider {
	graph := domain.NewLineageGraph(root)
	for _, stmt := range statements {
		for _, edge := range extractor.Extract(stmt) {
			graph.Edges = append(graph.Edges, edge)
			for _, id := range [2]domain.DatasetID{edge.Source, edge.Target} {
				if _, ok := graph.Datasets[id.String()]; !ok {
					graph.Datasets[id.String()] = domain.Dataset{ID: id, Platform: id.Platform, QualifiedName: id.String()}
				}
			}
		}
	}
	return &StaticProvider{platform: platform, graph: graph, rootID: root}
}

func (p *StaticProvider) Name() string { return "static_sql" }

func (p *StaticProvider) Capabilities() domain.LineageCapabilities {
	return domain.LineageCapabilities{ColumnLineage: true, JobRuns: false, Search: true, ListDatasets: true}
}

func (p *StaticProvider) GetDataset(ctx context.Context, id domain.DatasetID) (*domain.Dataset, error) {
	if ds, ok := p.graph.Datasets[id.String()]; ok {
		return &ds, nil
	}
	return nil, nil
}

func (p *StaticProvider) GetUpstream(ctx context.Context, id domain.DatasetID, depth int) ([]domain.DatasetID, error) {
	return p.graph.GetUpstream(id, depth), nil
}

func (p *StaticProvider) GetDownstream(ctx context.Context, id domain.DatasetID, depth int) ([]domain.DatasetID, error) {
	return p.graph.GetDownstream(id, depth), nil
}

// GetProducingJob and GetConsumingJobs are unsupported: static SQL-text
// extraction has no job scheduler metadata, only table-to-table edges.
func (p *StaticProvider) GetProducingJob(ctx context.Context, id domain.DatasetID) (*domain.Job, error) {
	return nil, nil
}

func (p *StaticProvider) GetConsumingJobs(ctx context.Context, id domain.DatasetID) ([]domain.Job, error) {
	return nil, nil
}

// GetRecentRuns is unsupported for the same reason.
func (p *StaticProvider) GetRecentRuns(ctx context.Context, jobID string, limit int) ([]domain.JobRun, error) {
	return nil, nil
}

func (p *StaticProvider) GetColumnLineage(ctx context.Context, id domain.DatasetID) ([]domain.ColumnLineage, error) {
	var out []domain.ColumnLineage
	for _, edge := range p.graph.Edges {
		if edge.Target == id {
			out = append(out, edge.ColumnLineage...)
		}
	}
	return out, nil
}

func (p *StaticProvider) ListDatasets(ctx context.Context, platform string) ([]domain.DatasetID, error) {
	var out []domain.DatasetID
	for _, ds := range p.graph.Datasets {
		if ds.ID.Platform == platform {
			out = append(out, ds.ID)
		}
	}
	return out, nil
}

func (p *StaticProvider) SearchDatasets(ctx context.Context, query string) ([]domain.DatasetID, error) {
	var out []domain.DatasetID
	for _, ds := range p.graph.Datasets {
		if strings.Contains(strings.ToLower(ds.ID.Name), strings.ToLower(query)) {
			out = append(out, ds.ID)
		}
	}
	return out, nil
}

func (p *StaticProvider) GetLineageGraph(ctx context.Context, root domain.DatasetID, depth int) (*domain.LineageGraph, error) {
	graph := domain.NewLineageGraph(root)
	for _, id := range append([]domain.DatasetID{root}, p.graph.GetUpstream(root, depth)...) {
		if ds, ok := p.graph.Datasets[id.String()]; ok {
			graph.Datasets[id.String()] = ds
		}
	}
	for _, edge := range p.graph.Edges {
		graph.Edges = append(graph.Edges, edge)
	}
	return graph, nil
}
