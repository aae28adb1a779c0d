package lineage

import (
	"context"
	"errors"
	"testing"

	"github.com/jordigilh/investigator/pkg/domain"
)

type fakeProvider struct {
	name     string
	caps     domain.LineageCapabilities
	datasets map[string]*domain.Dataset
	upstream map[string][]domain.DatasetID
	failOn   map[string]bool
}

func newFake(name string) *fakeProvider {
	return &fakeProvider{name: name, datasets: map[string]*domain.Dataset{}, upstream: map[string][]domain.DatasetID{}, failOn: map[string]bool{}}
}

func (f *fakeProvider) Name() string                             { return f.name }
func (f *fakeProvider) Capabilities() domain.LineageCapabilities { return f.caps }
func (f *fakeProvider) GetDataset(ctx context.Context, id domain.DatasetID) (*domain.Dataset, error) {
	if f.failOn["get_dataset"] {
		return nil, errors.New("boom")
	}
	return f.datasets[id.String()], nil
}
func (f *fakeProvider) GetUpstream(ctx context.Context, id domain.DatasetID, depth int) ([]domain.DatasetID, error) {
	if f.failOn["get_upstream"] {
		return nil, errors.New("boom")
	}
	return f.upstream[id.String()], nil
}
func (f *fakeProvider) GetDownstream(ctx context.Context, id domain.DatasetID, depth int) ([]domain.DatasetID, error) {
	return nil, nil
}
func (f *fakeProvider) GetProducingJob(ctx context.Context, id domain.DatasetID) (*domain.Job, error) {
	return nil, nil
}
func (f *fakeProvider) GetConsumingJobs(ctx context.Context, id domain.DatasetID) ([]domain.Job, error) {
	return nil, nil
}
func (f *fakeProvider) GetRecentRuns(ctx context.Context, jobID string, limit int) ([]domain.JobRun, error) {
	return nil, nil
}
func (f *fakeProvider) GetColumnLineage(ctx context.Context, id domain.DatasetID) ([]domain.ColumnLineage, error) {
	return nil, nil
}
func (f *fakeProvider) ListDatasets(ctx context.Context, platform string) ([]domain.DatasetID, error) {
	return nil, nil
}
func (f *fakeProvider) SearchDatasets(ctx context.Context, query string) ([]domain.DatasetID, error) {
	return nil, nil
}
func (f *fakeProvider) GetLineageGraph(ctx context.Context, root domain.DatasetID, depth int) (*domain.LineageGraph, error) {
	return nil, nil
}

func TestComposite_GetDataset_FirstNonEmptyWins(t *testing.T) {
	target := domain.DatasetID{Platform: "snowflake", Name: "orders"}

	high := newFake("high")
	low := newFake("low")
	low.datasets[target.String()] = &domain.Dataset{ID: target, Platform: "snowflake"}

	composite := NewComposite(nil, high, low)
	ds, err := composite.GetDataset(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds == nil {
		t.Fatal("expected low-priority provider's dataset to be returned when high-priority has none")
	}
}

func TestComposite_GetDataset_HigherPriorityWinsWhenBothHaveIt(t *testing.T) {
	target := domain.DatasetID{Platform: "snowflake", Name: "orders"}

	high := newFake("high")
	high.datasets[target.String()] = &domain.Dataset{ID: target, Platform: "snowflake", QualifiedName: "from-high"}
	low := newFake("low")
	low.datasets[target.String()] = &domain.Dataset{ID: target, Platform: "snowflake", QualifiedName: "from-low"}

	composite := NewComposite(nil, high, low)
	ds, err := composite.GetDataset(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.QualifiedName != "from-high" {
		t.Errorf("expected higher-priority provider to win, got %q", ds.QualifiedName)
	}
}

func TestComposite_GetDataset_SkipsFailingProvider(t *testing.T) {
	target := domain.DatasetID{Platform: "snowflake", Name: "orders"}

	failing := newFake("failing")
	failing.failOn["get_dataset"] = true
	fallback := newFake("fallback")
	fallback.datasets[target.String()] = &domain.Dataset{ID: target}

	composite := NewComposite(nil, failing, fallback)
	ds, err := composite.GetDataset(context.Background(), target)
	if err != nil {
		t.Fatalf("composite must not surface a single provider's failure: %v", err)
	}
	if ds == nil {
		t.Fatal("expected fallback provider's result despite the first provider failing")
	}
}

// TestComposite_S6_CompositeLineagePrecedence is the literal S6 scenario:
// provider A (higher priority) reports upstream=[X,Y], provider B (lower
// priority) reports upstream=[Y,Z]; the composite returns the
// deduplicated union [X,Y,Z], and for the overlapping Y, A's dataset
// representation wins over B's.
func TestComposite_S6_CompositeLineagePrecedence(t *testing.T) {
	target := domain.DatasetID{Platform: "postgres", Name: "target"}
	x := domain.DatasetID{Platform: "postgres", Name: "X"}
	y := domain.DatasetID{Platform: "postgres", Name: "Y"}
	z := domain.DatasetID{Platform: "postgres", Name: "Z"}

	a := newFake("a")
	a.upstream[target.String()] = []domain.DatasetID{x, y}
	a.datasets[y.String()] = &domain.Dataset{ID: y, QualifiedName: "from-a"}
	b := newFake("b")
	b.upstream[target.String()] = []domain.DatasetID{y, z}
	b.datasets[y.String()] = &domain.Dataset{ID: y, QualifiedName: "from-b"}

	composite := NewComposite(nil, a, b)

	upstream, err := composite.GetUpstream(context.Background(), target, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := map[string]bool{}
	for _, id := range upstream {
		names[id.Name] = true
	}
	if !names["X"] || !names["Y"] || !names["Z"] || len(upstream) != 3 {
		t.Errorf("expected the deduplicated union [X, Y, Z], got %v", upstream)
	}

	ds, err := composite.GetDataset(context.Background(), y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds == nil || ds.QualifiedName != "from-a" {
		t.Errorf("expected Y's representation to come from the higher-priority provider A, got %+v", ds)
	}
}

func TestComposite_GetUpstream_UnionsAndDeduplicates(t *testing.T) {
	target := domain.DatasetID{Platform: "snowflake", Name: "orders"}
	shared := domain.DatasetID{Platform: "snowflake", Name: "raw_orders"}
	onlyA := domain.DatasetID{Platform: "snowflake", Name: "staging_orders"}
	onlyB := domain.DatasetID{Platform: "s3", Name: "orders.csv"}

	a := newFake("a")
	a.upstream[target.String()] = []domain.DatasetID{shared, onlyA}
	b := newFake("b")
	b.upstream[target.String()] = []domain.DatasetID{shared, onlyB}

	composite := NewComposite(nil, a, b)
	got, err := composite.GetUpstream(context.Background(), target, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 deduplicated datasets, got %d: %v", len(got), got)
	}
}
