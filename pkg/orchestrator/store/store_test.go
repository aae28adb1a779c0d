package store

import (
	"context"
	"testing"
	"time"

	"github.com/jordigilh/investigator/pkg/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RoundTripsEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alert := domain.AnomalyAlert{DatasetID: "postgres://orders", AnomalyType: "row_count_drop"}

	if err := s.CreateInvestigation(ctx, "inv-1", "tenant-a", alert); err != nil {
		t.Fatalf("create investigation: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.AppendEvent(ctx, "inv-1", domain.NewEvent(0, domain.EventInvestigationStarted, now, nil)); err != nil {
		t.Fatalf("append event: %v", err)
	}
	if err := s.AppendEvent(ctx, "inv-1", domain.NewEvent(1, domain.EventHypothesisGenerated, now.Add(time.Second), map[string]interface{}{"hypothesis_id": "h1"})); err != nil {
		t.Fatalf("append event: %v", err)
	}

	state, err := s.LoadState(ctx, "inv-1")
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.TenantID != "tenant-a" {
		t.Errorf("expected tenant-a, got %s", state.TenantID)
	}
	if len(state.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(state.Events))
	}
	if state.Events[1].HypothesisID() != "h1" {
		t.Errorf("expected hypothesis_id h1, got %q", state.Events[1].HypothesisID())
	}
	if state.Status() != domain.StatusInProgress {
		t.Errorf("expected in_progress status, got %s", state.Status())
	}
}

func TestSQLiteStore_StalePendingFindsUnfinished(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alert := domain.AnomalyAlert{DatasetID: "postgres://orders"}

	if err := s.CreateInvestigation(ctx, "inv-stale", "tenant-a", alert); err != nil {
		t.Fatalf("create investigation: %v", err)
	}
	old := time.Now().UTC().Add(-2 * time.Hour)
	if err := s.AppendEvent(ctx, "inv-stale", domain.NewEvent(0, domain.EventInvestigationStarted, old, nil)); err != nil {
		t.Fatalf("append event: %v", err)
	}

	ids, err := s.StalePending(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("stale pending: %v", err)
	}
	if len(ids) != 1 || ids[0] != "inv-stale" {
		t.Errorf("expected [inv-stale], got %v", ids)
	}
}

func TestSQLiteStore_SaveFindingExcludesFromStalePending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alert := domain.AnomalyAlert{DatasetID: "postgres://orders"}

	if err := s.CreateInvestigation(ctx, "inv-done", "tenant-a", alert); err != nil {
		t.Fatalf("create investigation: %v", err)
	}
	old := time.Now().UTC().Add(-2 * time.Hour)
	if err := s.AppendEvent(ctx, "inv-done", domain.NewEvent(0, domain.EventInvestigationStarted, old, nil)); err != nil {
		t.Fatalf("append event: %v", err)
	}
	rootCause := "upstream outage"
	if err := s.SaveFinding(ctx, "inv-done", domain.Finding{InvestigationID: "inv-done", Status: domain.FindingCompleted, RootCause: &rootCause}); err != nil {
		t.Fatalf("save finding: %v", err)
	}

	ids, err := s.StalePending(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("stale pending: %v", err)
	}
	for _, id := range ids {
		if id == "inv-done" {
			t.Errorf("expected inv-done to be excluded once a finding is saved")
		}
	}
}
