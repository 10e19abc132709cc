// Package api implements the HTTP run server (C10): request/response types,
// an in-memory run registry, and handlers, grounded on this codebase's ride
// handler response envelope and chi routing idiom.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ubi-africa/dispatch-sim/internal/loader"
	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/pathengine"
	"github.com/ubi-africa/dispatch-sim/internal/policy"
	"github.com/ubi-africa/dispatch-sim/internal/sim"
	"github.com/ubi-africa/dispatch-sim/internal/store/pgstore"
)

// APIResponse is the uniform response envelope every handler writes.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError names a machine-readable code alongside a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: status >= 200 && status < 300, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Error: &APIError{Code: code, Message: message}})
}

// CreateRunRequest names the CSV input tables and policy for one simulation
// run, per spec.md §6's external interfaces.
type CreateRunRequest struct {
	Policy         string `json:"policy"`
	NodesCSV       string `json:"nodes_csv"`
	AdjacencyCSV   string `json:"adjacency_csv"`
	DriversCSV     string `json:"drivers_csv"`
	PassengersCSV  string `json:"passengers_csv"`
	UseCache       bool   `json:"use_cache"`
	Seed           int64  `json:"seed"`
}

// RunStatus is the lifecycle state of one run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one simulation run's server-side bookkeeping.
type Run struct {
	ID        uuid.UUID
	Policy    string
	Status    RunStatus
	Error     string
	StartedAt time.Time
	Duration  time.Duration
	Report    *RunReport
}

// RunReport mirrors metrics.Metrics in a JSON-friendly shape.
type RunReport struct {
	D1Minutes           float64 `json:"d1_minutes"`
	D2Minutes           float64 `json:"d2_minutes"`
	TotalRidesCompleted int64   `json:"total_rides_completed"`
	AvgClosestNodeMs     float64 `json:"avg_closest_node_ms"`
	AvgShortestPathMs    float64 `json:"avg_shortest_path_ms"`
}

// Server holds the in-memory run registry and an optional Postgres store for
// durable run history.
type Server struct {
	mu    sync.RWMutex
	runs  map[uuid.UUID]*Run
	store *pgstore.RunStore
}

// NewServer constructs a Server. store may be nil when no database is wired.
func NewServer(store *pgstore.RunStore) *Server {
	return &Server{runs: make(map[uuid.UUID]*Run), store: store}
}

// Routes registers every route this server exposes under r.
func (s *Server) Routes(r chi.Router) {
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.createRun)
		r.Get("/{runID}", s.getRun)
		r.Get("/{runID}/report", s.getReport)
	})
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.Policy == "" {
		writeError(w, http.StatusBadRequest, "missing_policy", "policy is required")
		return
	}

	run := &Run{
		ID:        uuid.New(),
		Policy:    req.Policy,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	go s.execute(run, req)

	writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_run_id", "invalid run id")
		return
	}
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "run_not_found", "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_run_id", "invalid run id")
		return
	}
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "run_not_found", "run not found")
		return
	}
	if run.Status != RunStatusCompleted {
		writeError(w, http.StatusConflict, "run_not_complete", fmt.Sprintf("run is %s", run.Status))
		return
	}
	writeJSON(w, http.StatusOK, run.Report)
}

// execute loads input and drives one simulation to completion, recording the
// outcome on run and, if a store is wired, persisting it.
func (s *Server) execute(run *Run, req CreateRunRequest) {
	defer func() {
		run.Duration = time.Since(run.StartedAt)
	}()

	idx, net, err := loader.LoadNodes(req.NodesCSV)
	if err != nil {
		s.fail(run, fmt.Errorf("load nodes: %w", err))
		return
	}
	if err := loader.LoadAdjacency(req.AdjacencyCSV, idx, net); err != nil {
		s.fail(run, fmt.Errorf("load adjacency: %w", err))
		return
	}

	spatialIdx, err := loader.BuildSpatialIndex(net)
	if err != nil {
		s.fail(run, fmt.Errorf("build spatial index: %w", err))
		return
	}
	pathEngine := loader.NewPathEngine(net)

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	state := matcher.NewState(net, spatialIdx, pathEngine, nil, req.UseCache)

	driverIDs, err := loader.LoadDrivers(req.DriversCSV, state, rng)
	if err != nil {
		s.fail(run, fmt.Errorf("load drivers: %w", err))
		return
	}
	passengerIDs, err := loader.LoadPassengers(req.PassengersCSV, state)
	if err != nil {
		s.fail(run, fmt.Errorf("load passengers: %w", err))
		return
	}

	pol, err := resolvePolicy(req.Policy, state)
	if err != nil {
		s.fail(run, err)
		return
	}

	loop := sim.NewLoop(state, pol, driverIDs, passengerIDs)
	if err := loop.Run(); err != nil {
		s.fail(run, fmt.Errorf("run: %w", err))
		return
	}

	report := &RunReport{
		D1Minutes:           state.Metrics.D1Minutes,
		D2Minutes:           state.Metrics.D2Minutes,
		TotalRidesCompleted: state.Metrics.TotalRidesCompleted,
		AvgClosestNodeMs:    float64(state.Metrics.ClosestNode.Average().Microseconds()) / 1000.0,
		AvgShortestPathMs:   float64(state.Metrics.ShortestPath.Average().Microseconds()) / 1000.0,
	}

	s.mu.Lock()
	run.Status = RunStatusCompleted
	run.Report = report
	s.mu.Unlock()

	if s.store != nil {
		rec := &pgstore.RunRecord{
			ID:             run.ID,
			Policy:         run.Policy,
			NodeCount:      net.NumNodes(),
			DriverCount:    len(driverIDs),
			PassengerCount: len(passengerIDs),
			D1Minutes:      report.D1Minutes,
			D2Minutes:      report.D2Minutes,
			RidesCompleted: report.TotalRidesCompleted,
			Duration:       time.Since(run.StartedAt),
			ConfigJSON:     map[string]any{"use_cache": req.UseCache, "seed": seed},
			CreatedAt:      run.StartedAt,
		}
		if err := s.store.Create(context.Background(), rec); err != nil {
			log.Error().Err(err).Str("run_id", run.ID.String()).Msg("failed to persist run")
		}
	}
}

func (s *Server) fail(run *Run, err error) {
	s.mu.Lock()
	run.Status = RunStatusFailed
	run.Error = err.Error()
	s.mu.Unlock()
	log.Error().Err(err).Str("run_id", run.ID.String()).Msg("run failed")
}

func resolvePolicy(name string, state *matcher.State) (policy.MatchPolicy, error) {
	switch name {
	case "fifo", "p1":
		return &policy.FIFO{}, nil
	case "euclidean", "p2":
		return &policy.Euclidean{State: state}, nil
	case "p3":
		return policy.NewP3(state), nil
	case "p4":
		return policy.NewP4(state), nil
	case "p5":
		return &policy.PrunedPool{State: state}, nil
	case "b1", "peak_hour":
		return &policy.PeakHourRetention{State: state}, nil
	case "b2", "equitable":
		return policy.NewEquitableDispatch(state), nil
	case "b3", "traffic_aware":
		return policy.NewTrafficAware(state, pathengine.NewCongestion()), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}
