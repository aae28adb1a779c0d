package lineage

import (
	"context"

	"github.com/jordigilh/investigator/pkg/domain"
	"github.com/jordigilh/investigator/pkg/shared/logging"
	"github.com/sirupsen/logrus"
)

// Composite merges several Providers, queried in the priority order they
// were configured (index 0 = highest priority). Each operation uses the
// merge strategy the spec assigns it:
//
//   - singular lookups (GetDataset, GetProducingJob), GetRecentRuns and
//     GetColumnLineage: first provider to return a non-empty result wins;
//     later providers are not consulted once one has answered.
//   - list lookups (GetUpstream, GetDownstream, ListDatasets,
//     SearchDatasets, GetConsumingJobs): every provider is
//     queried and results are unioned, de-duplicated by identity, with
//     entries from a higher-priority provider overwriting a lower-priority
//     provider's copy of the same id.
//   - GetLineageGraph: every provider's subgraph is unioned in full.
//
// A provider that errors is logged and skipped — never aborts the call.
type Composite struct {
	providers []Provider
	log       *logrus.Logger
}

// NewComposite returns a Composite over providers in priority order.
func NewComposite(log *logrus.Logger, providers ...Provider) *Composite {
	return &Composite{providers: providers, log: log}
}

func (c *Composite) Name() string { return "composite" }

func (c *Composite) Capabilities() domain.LineageCapabilities {
	var caps domain.LineageCapabilities
	for _, p := range c.providers {
		pc := p.Capabilities()
		caps.ColumnLineage = caps.ColumnLineage || pc.ColumnLineage
		caps.JobRuns = caps.JobRuns || pc.JobRuns
		caps.Search = caps.Search || pc.Search
		caps.ListDatasets = caps.ListDatasets || pc.ListDatasets
	}
	return caps
}

func (c *Composite) warn(provider string, op string, err error) {
	if c.log == nil {
		return
	}
	c.log.WithFields(logging.NewFields().Component("lineage.composite").Custom("provider", provider).Custom("operation", op).Error(err).ToLogrus()).
		Warn("lineage provider failed; continuing with remaining providers")
}

func (c *Composite) GetDataset(ctx context.Context, id domain.DatasetID) (*domain.Dataset, error) {
	for _, p := range c.providers {
		ds, err := p.GetDataset(ctx, id)
		if err != nil {
			c.warn(p.Name(), "get_dataset", err)
			continue
		}
		if ds != nil {
			return ds, nil
		}
	}
	return nil, nil
}

func (c *Composite) GetProducingJob(ctx context.Context, id domain.DatasetID) (*domain.Job, error) {
	for _, p := range c.providers {
		job, err := p.GetProducingJob(ctx, id)
		if err != nil {
			c.warn(p.Name(), "get_producing_job", err)
			continue
		}
		if job != nil {
			return job, nil
		}
	}
	return nil, nil
}

func (c *Composite) GetRecentRuns(ctx context.Context, jobID string, limit int) ([]domain.JobRun, error) {
	for _, p := range c.providers {
		if !p.Capabilities().JobRuns {
			continue
		}
		runs, err := p.GetRecentRuns(ctx, jobID, limit)
		if err != nil {
			c.warn(p.Name(), "get_recent_runs", err)
			continue
		}
		if len(runs) > 0 {
			return runs, nil
		}
	}
	return nil, nil
}

func (c *Composite) GetColumnLineage(ctx context.Context, id domain.DatasetID) ([]domain.ColumnLineage, error) {
	for _, p := range c.providers {
		if !p.Capabilities().ColumnLineage {
			continue
		}
		cl, err := p.GetColumnLineage(ctx, id)
		if err != nil {
			c.warn(p.Name(), "get_column_lineage", err)
			continue
		}
		if len(cl) > 0 {
			return cl, nil
		}
	}
	return nil, nil
}

func (c *Composite) GetUpstream(ctx context.Context, id domain.DatasetID, depth int) ([]domain.DatasetID, error) {
	return c.mergeDatasetLists(ctx, func(p Provider) ([]domain.DatasetID, error) { return p.GetUpstream(ctx, id, depth) })
}

func (c *Composite) GetDownstream(ctx context.Context, id domain.DatasetID, depth int) ([]domain.DatasetID, error) {
	return c.mergeDatasetLists(ctx, func(p Provider) ([]domain.DatasetID, error) { return p.GetDownstream(ctx, id, depth) })
}

func (c *Composite) ListDatasets(ctx context.Context, platform string) ([]domain.DatasetID, error) {
	return c.mergeDatasetLists(ctx, func(p Provider) ([]domain.DatasetID, error) {
		if !p.Capabilities().ListDatasets {
			return nil, nil
		}
		return p.ListDatasets(ctx, platform)
	})
}

func (c *Composite) SearchDatasets(ctx context.Context, query string) ([]domain.DatasetID, error) {
	return c.mergeDatasetLists(ctx, func(p Provider) ([]domain.DatasetID, error) {
		if !p.Capabilities().Search {
			return nil, nil
		}
		return p.SearchDatasets(ctx, query)
	})
}

// mergeDatasetLists queries every provider, in priority order, and
// de-duplicates by DatasetID — the first (highest-priority) provider to
// report a given id wins, but lower-priority providers can still
// contribute ids the higher-priority ones never saw.
func (c *Composite) mergeDatasetLists(ctx context.Context, call func(Provider) ([]domain.DatasetID, error)) ([]domain.DatasetID, error) {
	seen := map[domain.DatasetID]bool{}
	var merged []domain.DatasetID
	for _, p := range c.providers {
		ids, err := call(p)
		if err != nil {
			c.warn(p.Name(), "list", err)
			continue
		}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, id)
		}
	}
	return merged, nil
}

func (c *Composite) GetConsumingJobs(ctx context.Context, id domain.DatasetID) ([]domain.Job, error) {
	seen := map[string]bool{}
	var merged []domain.Job
	for _, p := range c.providers {
		jobs, err := p.GetConsumingJobs(ctx, id)
		if err != nil {
			c.warn(p.Name(), "get_consuming_jobs", err)
			continue
		}
		for _, j := range jobs {
			if seen[j.ID] {
				continue
			}
			seen[j.ID] = true
			merged = append(merged, j)
		}
	}
	return merged, nil
}

// GetLineageGraph unions every provider's subgraph for root into one
// graph: datasets and jobs merge by id (first provider to report a given
// id wins its detail), edges are deduplicated by (source, target, job).
func (c *Composite) GetLineageGraph(ctx context.Context, root domain.DatasetID, depth int) (*domain.LineageGraph, error) {
	graph := domain.NewLineageGraph(root)
	type edgeKey struct {
		source, target domain.DatasetID
		jobID          string
	}
	seenEdges := map[edgeKey]bool{}

	for _, p := range c.providers {
		sub, err := p.GetLineageGraph(ctx, root, depth)
		if err != nil {
			c.warn(p.Name(), "get_lineage_graph", err)
			continue
		}
		if sub == nil {
			continue
		}
		for key, ds := range sub.Datasets {
			if _, exists := graph.Datasets[key]; !exists {
				graph.Datasets[key] = ds
			}
		}
		for key, job := range sub.Jobs {
			if _, exists := graph.Jobs[key]; !exists {
				graph.Jobs[key] = job
			}
		}
		for _, edge := range sub.Edges {
			key := edgeKey{edge.Source, edge.Target, edge.JobID}
			if seenEdges[key] {
				continue
			}
			seenEdges[key] = true
			graph.Edges = append(graph.Edges, edge)
		}
	}

	return graph, nil
}
