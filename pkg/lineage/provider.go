// Package lineage defines the lineage provider contract, a priority-
// merging composite adapter over multiple configured providers, and a
// SQL-text-based lineage extractor used when no lineage metadata
// service is configured for a tenant.
package lineage

import (
	"context"

	"github.com/jordigilh/investigator/pkg/domain"
)

// Provider is the contract every lineage backend implements: an
// OpenLineage-compatible metadata service, or the best-effort SQL-text
// extractor. Every method must fail in isolation — a single provider
// error must never abort a Composite call spanning several providers.
type Provider interface {
	Name() string
	Capabilities() domain.LineageCapabilities

	GetDataset(ctx context.Context, id domain.DatasetID) (*domain.Dataset, error)
	GetUpstream(ctx context.Context, id domain.DatasetID, depth int) ([]domain.DatasetID, error)
	GetDownstream(ctx context.Context, id domain.DatasetID, depth int) ([]domain.DatasetID, error)
	GetProducingJob(ctx context.Context, id domain.DatasetID) (*domain.Job, error)
	GetConsumingJobs(ctx context.Context, id domain.DatasetID) ([]domain.Job, error)
	GetRecentRuns(ctx context.Context, jobID string, limit int) ([]domain.JobRun, error)
	GetColumnLineage(ctx context.Context, id domain.DatasetID) ([]domain.ColumnLineage, error)
	ListDatasets(ctx context.Context, platform string) ([]domain.DatasetID, error)
	SearchDatasets(ctx context.Context, query string) ([]domain.DatasetID, error)
	GetLineageGraph(ctx context.Context, root domain.DatasetID, depth int) (*domain.LineageGraph, error)
}
