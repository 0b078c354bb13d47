package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/causelab/causeway/internal/domain"
	"github.com/causelab/causeway/internal/evidence"
	"github.com/causelab/causeway/internal/service"
	"github.com/causelab/causeway/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DiscoveryHandler runs discovery requests synchronously and persists the
// outcome. The engine is rebuilt per request because the evidence oracle is
// bound to the request's dataset.
type DiscoveryHandler struct {
	oracle domain.KnowledgeOracle
	runs   domain.RunStore
	cfg    service.Config
	logger *zap.Logger
}

func NewDiscoveryHandler(oracle domain.KnowledgeOracle, runs domain.RunStore, cfg service.Config, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{oracle: oracle, runs: runs, cfg: cfg, logger: logger}
}

type variablePayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type createDiscoveryRequest struct {
	Variables []variablePayload    `json:"variables"`
	Data      map[string][]float64 `json:"data,omitempty"`

	// Optional per-request overrides; zero values fall back to server config.
	Alpha         float64 `json:"alpha,omitempty"`
	Samples       int     `json:"samples,omitempty"`
	MaxIterations int     `json:"max_iterations,omitempty"`
}

func (h *DiscoveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Variables) < 2 {
		writeError(w, http.StatusBadRequest, "at least two variables are required")
		return
	}

	seen := make(map[string]bool, len(req.Variables))
	vars := make([]domain.Variable, 0, len(req.Variables))
	for _, v := range req.Variables {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "variable name must not be empty")
			return
		}
		if seen[name] {
			writeError(w, http.StatusBadRequest, "duplicate variable name: "+name)
			return
		}
		seen[name] = true
		vars = append(vars, domain.Variable{Name: name, Description: v.Description})
	}

	cfg := h.cfg
	if req.Alpha > 0 && req.Alpha <= 1 {
		cfg.Alpha = req.Alpha
	}
	if req.Samples > 0 {
		cfg.Samples = req.Samples
	}
	if req.MaxIterations > 0 {
		cfg.MaxIterations = req.MaxIterations
	}

	var evidenceOracle domain.EvidenceOracle
	if len(req.Data) > 0 {
		dataset := evidence.NewDataset()
		for _, v := range vars {
			if series, ok := req.Data[v.Name]; ok {
				dataset.AddSeries(v.Name, series)
			}
		}
		evidenceOracle = evidence.NewAnalyzer(dataset, cfg.SignificanceLevel, h.logger)
	}

	run := &domain.DiscoveryRun{Status: domain.RunRunning}
	if err := h.runs.Create(r.Context(), run); err != nil {
		h.logger.Error("create run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	engine := service.NewEngine(h.oracle, evidenceOracle, cfg, h.logger)
	result, err := engine.Discover(r.Context(), domain.NewVariableSet(vars))
	if err != nil {
		run.Status = domain.RunFailed
		run.Warnings = []string{err.Error()}
		if finishErr := h.runs.Finish(r.Context(), run); finishErr != nil {
			h.logger.Error("finish failed run", zap.Error(finishErr))
		}
		h.logger.Error("discovery failed", zap.String("run_id", run.ID.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "discovery failed")
		return
	}

	run.Status = result.Status
	run.Iterations = result.Iterations
	run.Graph = result.Snapshot
	run.Validation = result.Validation
	run.Warnings = result.Warnings
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err := h.runs.Finish(r.Context(), run); err != nil {
		h.logger.Error("finish run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to persist run")
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

func (h *DiscoveryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

type listDiscoveriesResponse struct {
	Runs  []domain.DiscoveryRun `json:"runs"`
	Count int                   `json:"count"`
}

func (h *DiscoveryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []domain.DiscoveryRun{}
	}

	writeJSON(w, http.StatusOK, listDiscoveriesResponse{Runs: runs, Count: len(runs)})
}
