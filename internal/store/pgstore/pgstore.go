// Package pgstore persists completed simulation runs to Postgres via
// jackc/pgx/v5's pgxpool, grounded on the parameterized-INSERT/scan idiom this
// codebase's ride repositories use for their own domain rows.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunRecord is one completed simulation run: its configuration, policy, and
// the metrics totals spec.md §8 defines as the reportable outputs.
type RunRecord struct {
	ID              uuid.UUID
	Policy          string
	NodeCount       int
	DriverCount     int
	PassengerCount  int
	D1Minutes       float64
	D2Minutes       float64
	RidesCompleted  int64
	Duration        time.Duration
	ConfigJSON       map[string]any
	CreatedAt       time.Time
}

// RunStore handles run persistence. Pool lifetime (max conns, idle timeout) is
// the caller's concern — see cmd/dispatchsim for the pgxpool.Config this
// codebase's server entry points use.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore wraps an already-connected pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// CreateRunsTable creates the runs table if absent; analogous to this
// codebase's repository CreateRidesTable helper. Both cmd/dispatchsim and
// cmd/dispatchboard call it at startup.
func (s *RunStore) CreateRunsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS dispatch_runs (
			id UUID PRIMARY KEY,
			policy VARCHAR(64) NOT NULL,
			node_count INTEGER NOT NULL,
			driver_count INTEGER NOT NULL,
			passenger_count INTEGER NOT NULL,
			d1_minutes DOUBLE PRECISION NOT NULL,
			d2_minutes DOUBLE PRECISION NOT NULL,
			rides_completed BIGINT NOT NULL,
			duration_ms BIGINT NOT NULL,
			config JSONB DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_dispatch_runs_policy ON dispatch_runs(policy);
		CREATE INDEX IF NOT EXISTS idx_dispatch_runs_created_at ON dispatch_runs(created_at);
	`
	_, err := s.pool.Exec(ctx, query)
	return err
}

// Create inserts a completed run.
func (s *RunStore) Create(ctx context.Context, r *RunRecord) error {
	configJSON, err := json.Marshal(r.ConfigJSON)
	if err != nil {
		return fmt.Errorf("pgstore: marshal config: %w", err)
	}

	query := `
		INSERT INTO dispatch_runs (
			id, policy, node_count, driver_count, passenger_count,
			d1_minutes, d2_minutes, rides_completed, duration_ms,
			config, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11
		)`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Policy, r.NodeCount, r.DriverCount, r.PassengerCount,
		r.D1Minutes, r.D2Minutes, r.RidesCompleted, r.Duration.Milliseconds(),
		configJSON, r.CreatedAt,
	)
	return err
}

// GetByID retrieves one run by id.
func (s *RunStore) GetByID(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query := `
		SELECT
			id, policy, node_count, driver_count, passenger_count,
			d1_minutes, d2_minutes, rides_completed, duration_ms,
			config, created_at
		FROM dispatch_runs WHERE id = $1`

	return scanRun(s.pool.QueryRow(ctx, query, id))
}

// ListRecent returns the most recently created runs, most recent first.
func (s *RunStore) ListRecent(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := `
		SELECT
			id, policy, node_count, driver_count, passenger_count,
			d1_minutes, d2_minutes, rides_completed, duration_ms,
			config, created_at
		FROM dispatch_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		r, err := scanRunFromRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*RunRecord, error) {
	var r RunRecord
	var durationMs int64
	var configJSON []byte
	err := row.Scan(
		&r.ID, &r.Policy, &r.NodeCount, &r.DriverCount, &r.PassengerCount,
		&r.D1Minutes, &r.D2Minutes, &r.RidesCompleted, &durationMs,
		&configJSON, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	r.Duration = time.Duration(durationMs) * time.Millisecond
	if len(configJSON) > 0 {
		r.ConfigJSON = make(map[string]any)
		_ = json.Unmarshal(configJSON, &r.ConfigJSON)
	}
	return &r, nil
}

func scanRunFromRows(rows pgx.Rows) (*RunRecord, error) {
	var r RunRecord
	var durationMs int64
	var configJSON []byte
	err := rows.Scan(
		&r.ID, &r.Policy, &r.NodeCount, &r.DriverCount, &r.PassengerCount,
		&r.D1Minutes, &r.D2Minutes, &r.RidesCompleted, &durationMs,
		&configJSON, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Duration = time.Duration(durationMs) * time.Millisecond
	if len(configJSON) > 0 {
		r.ConfigJSON = make(map[string]any)
		_ = json.Unmarshal(configJSON, &r.ConfigJSON)
	}
	return &r, nil
}

// ErrRunNotFound is returned by GetByID when no row matches.
var ErrRunNotFound = errors.New("pgstore: run not found")
