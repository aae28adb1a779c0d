package lineage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jordigilh/investigator/pkg/domain"
	"github.com/jordigilh/investigator/pkg/shared/httpclient"
)

// OpenLineageProvider queries an OpenLineage-compatible metadata service
// (e.g. Marquez) over its REST facade for dataset, job, and run metadata.
type OpenLineageProvider struct {
	endpoint string
	client   *http.Client
}

// NewOpenLineageProvider returns a provider against endpoint, using the
// shared LLM-agnostic HTTP client defaults tuned for a metadata service.
func NewOpenLineageProvider(endpoint string) *OpenLineageProvider {
	return &OpenLineageProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   httpclient.NewClient(httpclient.DefaultClientConfig()),
	}
}

func (p *OpenLineageProvider) Name() string { return "openlineage" }

func (p *OpenLineageProvider) Capabilities() domain.LineageCapabilities {
	return domain.LineageCapabilities{ColumnLineage: false, JobRuns: true, Search: true, ListDatasets: true}
}

func (p *OpenLineageProvider) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+path, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openlineage: unexpected status %d from %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type olDataset struct {
	Name         string    `json:"name"`
	Namespace    string    `json:"namespace"`
	Type         string    `json:"type"`
	Tags         []string  `json:"tags"`
	LastModified *time.Time `json:"lastModifiedAt"`
}

func (p *OpenLineageProvider) GetDataset(ctx context.Context, id domain.DatasetID) (*domain.Dataset, error) {
	var ds olDataset
	if err := p.getJSON(ctx, fmt.Sprintf("/namespaces/%s/datasets/%s", id.Platform, id.Name), &ds); err != nil {
		return nil, err
	}
	if ds.Name == "" {
		return nil, nil
	}
	return &domain.Dataset{
		ID:            id,
		QualifiedName: ds.Namespace + "." + ds.Name,
		DatasetType:   ds.Type,
		Platform:      ds.Namespace,
		Tags:          ds.Tags,
		LastModified:  ds.LastModified,
	}, nil
}

type olLineageNode struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Namespace string `json:"namespace"`
		Name      string `json:"name"`
	} `json:"data"`
	InEdges  []struct{ Origin string `json:"origin"` } `json:"inEdges"`
	OutEdges []struct{ Origin string `json:"origin"` } `json:"outEdges"`
}

type olLineageResponse struct {
	Graph []olLineageNode `json:"graph"`
}

func (p *OpenLineageProvider) lineageGraphRaw(ctx context.Context, id domain.DatasetID, depth int) (*olLineageResponse, error) {
	var resp olLineageResponse
	path := fmt.Sprintf("/lineage?nodeId=dataset:%s:%s&depth=%d", id.Platform, id.Name, depth)
	if err := p.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (p *OpenLineageProvider) GetUpstream(ctx context.Context, id domain.DatasetID, depth int) ([]domain.DatasetID, error) {
	resp, err := p.lineageGraphRaw(ctx, id, depth)
	if err != nil || resp == nil {
		return nil, err
	}
	var out []domain.DatasetID
	for _, n := range resp.Graph {
		if n.Type == "DATASET" && n.Data.Name != id.Name {
			out = append(out, domain.DatasetID{Platform: n.Data.Namespace, Name: n.Data.Name})
		}
	}
	return out, nil
}

func (p *OpenLineageProvider) GetDownstream(ctx context.Context, id domain.DatasetID, depth int) ([]domain.DatasetID, error) {
	return p.GetUpstream(ctx, id, depth)
}

func (p *OpenLineageProvider) GetProducingJob(ctx context.Context, id domain.DatasetID) (*domain.Job, error) {
	return nil, nil
}

func (p *OpenLineageProvider) GetConsumingJobs(ctx context.Context, id domain.DatasetID) ([]domain.Job, error) {
	return nil, nil
}

func (p *OpenLineageProvider) GetRecentRuns(ctx context.Context, jobID string, limit int) ([]domain.JobRun, error) {
	type olRun struct {
		ID        string `json:"id"`
		State     string `json:"state"`
		StartedAt time.Time `json:"startedAt"`
		EndedAt   *time.Time `json:"endedAt"`
	}
	var runs []olRun
	if err := p.getJSON(ctx, fmt.Sprintf("/jobs/%s/runs?limit=%d", jobID, limit), &runs); err != nil {
		return nil, err
	}
	out := make([]domain.JobRun, len(runs))
	for i, r := range runs {
		out[i] = domain.JobRun{ID: r.ID, JobID: jobID, Status: mapRunState(r.State), StartedAt: r.StartedAt, EndedAt: r.EndedAt}
		if r.EndedAt != nil {
			out[i].DurationSeconds = r.EndedAt.Sub(r.StartedAt).Seconds()
		}
	}
	return out, nil
}

func mapRunState(state string) domain.JobRunStatus {
	switch strings.ToUpper(state) {
	case "RUNNING":
		return domain.JobRunRunning
	case "COMPLETE", "COMPLETED", "SUCCESS":
		return domain.JobRunSuccess
	case "FAIL", "FAILED":
		return domain.JobRunFailed
	case "ABORT", "ABORTED", "CANCELLED":
		return domain.JobRunCancelled
	default:
		return domain.JobRunSkipped
	}
}

func (p *OpenLineageProvider) GetColumnLineage(ctx context.Context, id domain.DatasetID) ([]domain.ColumnLineage, error) {
	return nil, nil
}

func (p *OpenLineageProvider) ListDatasets(ctx context.Context, platform string) ([]domain.DatasetID, error) {
	var resp struct {
		Datasets []olDataset `json:"datasets"`
	}
	if err := p.getJSON(ctx, "/namespaces/"+platform+"/datasets", &resp); err != nil {
		return nil, err
	}
	out := make([]domain.DatasetID, len(resp.Datasets))
	for i, d := range resp.Datasets {
		out[i] = domain.DatasetID{Platform: platform, Name: d.Name}
	}
	return out, nil
}

func (p *OpenLineageProvider) SearchDatasets(ctx context.Context, query string) ([]domain.DatasetID, error) {
	var resp struct {
		Results []olDataset `json:"results"`
	}
	if err := p.getJSON(ctx, "/search/datasets?q="+query, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.DatasetID, len(resp.Results))
	for i, d := range resp.Results {
		out[i] = domain.DatasetID{Platform: d.Namespace, Name: d.Name}
	}
	return out, nil
}

func (p *OpenLineageProvider) GetLineageGraph(ctx context.Context, root domain.DatasetID, depth int) (*domain.LineageGraph, error) {
	resp, err := p.lineageGraphRaw(ctx, root, depth)
	if err != nil || resp == nil {
		return nil, err
	}
	graph := domain.NewLineageGraph(root)
	for _, n := range resp.Graph {
		if n.Type != "DATASET" {
			continue
		}
		id := domain.DatasetID{Platform: n.Data.Namespace, Name: n.Data.Name}
		graph.Datasets[id.String()] = domain.Dataset{ID: id, Platform: n.Data.Namespace, QualifiedName: n.Data.Namespace + "." + n.Data.Name}
	}
	return graph, nil
}
