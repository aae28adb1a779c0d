package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jordigilh/investigator/pkg/datasource"
	"github.com/jordigilh/investigator/pkg/domain"
	"github.com/jordigilh/investigator/pkg/lineage"
	"github.com/jordigilh/investigator/pkg/orchestrator/store"
)

// pollInterval is how often StreamEvents polls the store for new events.
// There is no pub/sub layer in scope, so a subscriber simply re-reads the
// durable log at this cadence; acceptable given investigations run on the
// order of minutes, not milliseconds.
const pollInterval = 500 * time.Millisecond

// Service is the orchestrator's entry point for the rest of the system:
// it starts investigations in the background and lets callers observe
// their state and event stream without blocking on Engine.Run directly.
type Service struct {
	engine           *Engine
	store            store.Store
	adapters         map[string]datasource.SQLAdapter
	lineageProviders map[string]lineage.Provider
	log              *logrus.Logger
}

// NewService builds a Service. adapters and lineageProviders are keyed by
// tenant id; lineageProviders may omit a tenant entirely if no lineage
// provider is configured for it.
func NewService(engine *Engine, st store.Store, adapters map[string]datasource.SQLAdapter, lineageProviders map[string]lineage.Provider, log *logrus.Logger) *Service {
	return &Service{
		engine:           engine,
		store:            st,
		adapters:         adapters,
		lineageProviders: lineageProviders,
		log:              loggerOrDefault(log),
	}
}

// StartInvestigation registers a new investigation for tenantID against
// alert, records its investigation_started event, and runs the
// investigation algorithm in the background. It returns the new
// investigation's id immediately; callers observe progress via GetState
// or StreamEvents.
func (s *Service) StartInvestigation(ctx context.Context, tenantID string, alert domain.AnomalyAlert) (string, error) {
	if !alert.Valid() {
		return "", fmt.Errorf("invalid alert: deviation_pct must be non-negative")
	}
	adapter, ok := s.adapters[tenantID]
	if !ok {
		return "", fmt.Errorf("no data source adapter configured for tenant %q", tenantID)
	}

	id := uuid.NewString()
	if err := s.store.CreateInvestigation(ctx, id, tenantID, alert); err != nil {
		return "", fmt.Errorf("create investigation: %w", err)
	}

	state := domain.NewInvestigationState(id, tenantID, alert)
	startedEvent := domain.NewEvent(0, domain.EventInvestigationStarted, time.Now(), nil)
	state = state.AppendEvent(startedEvent)
	if err := s.store.AppendEvent(ctx, id, startedEvent); err != nil {
		return "", fmt.Errorf("record investigation_started: %w", err)
	}

	lineageProvider := s.lineageProviders[tenantID]

	go func() {
		runCtx := context.Background()
		if _, err := s.engine.Run(runCtx, state, adapter, lineageProvider); err != nil {
			s.log.WithError(err).WithField("investigation_id", id).Error("investigation terminated with an error")
		}
	}()

	return id, nil
}

// GetState returns investigationID's current durable state.
func (s *Service) GetState(ctx context.Context, investigationID string) (domain.InvestigationState, error) {
	return s.store.LoadState(ctx, investigationID)
}

// StalePending returns the ids of investigations still pending (no
// finding saved) that have no events or whose most recent event predates
// olderThan —
// candidates for a caller-driven rescan after a process restart.
func (s *Service) StalePending(ctx context.Context, olderThan time.Time) ([]string, error) {
	return s.store.StalePending(ctx, olderThan)
}

// StreamEvents polls investigationID's durable log starting after
// fromIndex events and delivers each newly observed event on the
// returned channel until the investigation reaches a terminal status or
// ctx is cancelled, at which point the channel is closed.
func (s *Service) StreamEvents(ctx context.Context, investigationID string, fromIndex int) (<-chan domain.Event, error) {
	if _, err := s.store.LoadState(ctx, investigationID); err != nil {
		return nil, fmt.Errorf("stream events for %s: %w", investigationID, err)
	}

	ch := make(chan domain.Event)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		sent := fromIndex
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				state, err := s.store.LoadState(ctx, investigationID)
				if err != nil {
					s.log.WithError(err).WithField("investigation_id", investigationID).Warn("failed to poll investigation state")
					return
				}
				for sent < len(state.Events) {
					select {
					case ch <- state.Events[sent]:
						sent++
					case <-ctx.Done():
						return
					}
				}
				if isTerminal(state.Status()) {
					return
				}
			}
		}
	}()
	return ch, nil
}

func isTerminal(status domain.InvestigationStatus) bool {
	switch status {
	case domain.StatusCompleted, domain.StatusInconclusive, domain.StatusFailed:
		return true
	default:
		return false
	}
}
