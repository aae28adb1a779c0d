// Package store persists investigation state durably: the append-only
// event log and terminal findings, keyed by investigation id, so an
// investigation survives a process restart and GetState/StreamEvents can
// be served without holding every investigation in memory.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jmoiron/sqlx"

	"github.com/jordigilh/investigator/pkg/domain"
)

// Store is the durable persistence contract the orchestrator drives.
type Store interface {
	// CreateInvestigation registers a new investigation row for id/tenant/alert.
	CreateInvestigation(ctx context.Context, id, tenantID string, alert domain.AnomalyAlert) error
	// AppendEvent durably records event as the next entry in id's log.
	AppendEvent(ctx context.Context, id string, event domain.Event) error
	// LoadState reconstructs id's full InvestigationState from the durable log.
	LoadState(ctx context.Context, id string) (domain.InvestigationState, error)
	// SaveFinding persists investigation id's terminal finding.
	SaveFinding(ctx context.Context, id string, finding domain.Finding) error
	// StalePending returns the ids of investigations with no events at all,
	// or whose last event is older than olderThan — candidates for a
	// periodic re-scan to re-queue work a crashed process dropped.
	StalePending(ctx context.Context, olderThan time.Time) ([]string, error)
}

// SQLiteStore implements Store on a local sqlite database, reusing the
// same modernc.org/sqlite driver wired for pkg/datasource/sql's
// SQLiteAdapter, dedicated here to the orchestrator's own durability
// concern rather than treated as an investigation target.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (creating if necessary) the sqlite database at
// path and ensures its schema exists.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open investigation store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS investigations (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			alert_json TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			investigation_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			type TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			data_json TEXT,
			PRIMARY KEY (investigation_id, sequence)
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			investigation_id TEXT PRIMARY KEY,
			finding_json TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate investigation store: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) CreateInvestigation(ctx context.Context, id, tenantID string, alert domain.AnomalyAlert) error {
	alertJSON, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO investigations (id, tenant_id, alert_json, created_at) VALUES (?, ?, ?, ?)`,
		id, tenantID, string(alertJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("create investigation %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, id string, event domain.Event) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (investigation_id, sequence, type, timestamp, data_json) VALUES (?, ?, ?, ?, ?)`,
		id, event.Sequence, string(event.Type), event.Timestamp.UTC(), string(dataJSON))
	if err != nil {
		return fmt.Errorf("append event for %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) LoadState(ctx context.Context, id string) (domain.InvestigationState, error) {
	var row struct {
		TenantID  string `db:"tenant_id"`
		AlertJSON string `db:"alert_json"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT tenant_id, alert_json FROM investigations WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return domain.InvestigationState{}, fmt.Errorf("investigation %s not found", id)
	}
	if err != nil {
		return domain.InvestigationState{}, fmt.Errorf("load investigation %s: %w", id, err)
	}

	var alert domain.AnomalyAlert
	if err := json.Unmarshal([]byte(row.AlertJSON), &alert); err != nil {
		return domain.InvestigationState{}, fmt.Errorf("unmarshal alert for %s: %w", id, err)
	}

	state := domain.NewInvestigationState(id, row.TenantID, alert)

	type eventRow struct {
		Sequence  int       `db:"sequence"`
		Type      string    `db:"type"`
		Timestamp time.Time `db:"timestamp"`
		DataJSON  string    `db:"data_json"`
	}
	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT sequence, type, timestamp, data_json FROM events WHERE investigation_id = ? ORDER BY sequence ASC`, id); err != nil {
		return domain.InvestigationState{}, fmt.Errorf("load events for %s: %w", id, err)
	}

	for _, r := range rows {
		var data map[string]interface{}
		if r.DataJSON != "" {
			if err := json.Unmarshal([]byte(r.DataJSON), &data); err != nil {
				return domain.InvestigationState{}, fmt.Errorf("unmarshal event data for %s: %w", id, err)
			}
		}
		state = state.AppendEvent(domain.NewEvent(r.Sequence, domain.EventType(r.Type), r.Timestamp, data))
	}

	return state, nil
}

func (s *SQLiteStore) SaveFinding(ctx context.Context, id string, finding domain.Finding) error {
	findingJSON, err := json.Marshal(finding)
	if err != nil {
		return fmt.Errorf("marshal finding: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO findings (investigation_id, finding_json, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(investigation_id) DO UPDATE SET finding_json = excluded.finding_json`,
		id, string(findingJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save finding for %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) StalePending(ctx context.Context, olderThan time.Time) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT i.id FROM investigations i
		LEFT JOIN (
			SELECT investigation_id, MAX(timestamp) AS last_ts FROM events GROUP BY investigation_id
		) e ON e.investigation_id = i.id
		LEFT JOIN findings f ON f.investigation_id = i.id
		WHERE f.investigation_id IS NULL AND (e.last_ts IS NULL OR e.last_ts < ?)`,
		olderThan.UTC())
	if err != nil {
		return nil, fmt.Errorf("query stale investigations: %w", err)
	}
	return ids, nil
}
