// Package api exposes the validation engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"goquality/domain/core"
	"goquality/domain/dataset"
	"goquality/domain/rule"
	"goquality/domain/run"
	"goquality/internal/engine"
	apperrors "goquality/internal/errors"
)

// Server wires the validation engine into a chi router
type Server struct {
	router  *chi.Mux
	engine  *engine.ValidationEngine
	metrics http.Handler
}

// NewServer creates the HTTP server. The metrics handler is optional; when
// present it is mounted at /metrics.
func NewServer(eng *engine.ValidationEngine, metricsHandler http.Handler) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		engine:  eng,
		metrics: metricsHandler,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Router returns the configured handler
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Post("/api/validate", s.handleValidate)

	s.router.Get("/api/rules", s.handleListRules)
	s.router.Post("/api/rules", s.handleCreateRule)
	s.router.Get("/api/rules/{id}", s.handleGetRule)
	s.router.Patch("/api/rules/{id}", s.handleUpdateRule)
	s.router.Delete("/api/rules/{id}", s.handleDeleteRule)
	s.router.Post("/api/rules/{id}/validate", s.handleValidateRule)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

// writeError maps domain errors onto HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := apperrors.CodeInternalError
	switch {
	case core.IsNotFoundError(err):
		status = http.StatusNotFound
		code = apperrors.CodeNotFound
	case errors.Is(err, core.ErrInvalidRule), core.IsUnsupportedRuleError(err), core.IsConfigError(err), errors.Is(err, core.ErrUnsupportedMode), errors.Is(err, core.ErrDatasetShape):
		status = http.StatusBadRequest
		code = apperrors.CodeInvalidInput
	}
	writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validateRequest is the POST /api/validate body: inline row data or a
// warehouse table reference, plus optional run settings
type validateRequest struct {
	Dataset *struct {
		Name    string                   `json:"name"`
		Columns []string                 `json:"columns"`
		Rows    []map[string]interface{} `json:"rows"`
	} `json:"dataset,omitempty"`
	Warehouse *struct {
		DatasetID     string `json:"dataset_id"`
		TableID       string `json:"table_id"`
		EstimatedRows int64  `json:"estimated_rows,omitempty"`
	} `json:"warehouse,omitempty"`
	Rules          []map[string]interface{} `json:"rules,omitempty"`
	Mode           string                   `json:"mode,omitempty"`
	SampleFraction float64                  `json:"sample_fraction,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", core.ErrInvalidRule, err))
		return
	}

	var ds dataset.Dataset
	switch {
	case req.Dataset != nil:
		table := dataset.NewTable(req.Dataset.Name, req.Dataset.Columns)
		for _, row := range req.Dataset.Rows {
			table.AppendRow(row)
		}
		ds = table
	case req.Warehouse != nil:
		ds = &dataset.WarehouseRef{
			DatasetID:     req.Warehouse.DatasetID,
			TableID:       req.Warehouse.TableID,
			EstimatedRows: req.Warehouse.EstimatedRows,
		}
	default:
		writeError(w, fmt.Errorf("%w: request needs a dataset or warehouse reference", core.ErrDatasetShape))
		return
	}

	cfg := run.Config{SampleFraction: req.SampleFraction}
	if req.Mode != "" {
		mode, err := run.ParseMode(req.Mode)
		if err != nil {
			writeError(w, err)
			return
		}
		cfg.Mode = mode
	}

	// inline rules run as a one-off set; otherwise the registry applies
	var rules []*rule.Rule
	if req.Rules != nil {
		rules = make([]*rule.Rule, 0, len(req.Rules))
		for _, raw := range req.Rules {
			parsed, err := rule.New(raw)
			if err != nil {
				writeError(w, err)
				return
			}
			rules = append(rules, parsed)
		}
	}

	summary, results, err := s.engine.Validate(r.Context(), ds, rules, cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary": summary,
		"results": results,
	})
}

func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"rules": s.engine.ListRules()})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, fmt.Errorf("%w: %v", core.ErrInvalidRule, err))
		return
	}
	created, err := s.engine.RegisterRule(raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := core.RuleID(chi.URLParam(r, "id"))
	found, err := s.engine.GetRule(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := core.RuleID(chi.URLParam(r, "id"))
	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, fmt.Errorf("%w: %v", core.ErrInvalidRule, err))
		return
	}
	updated, err := s.engine.UpdateRule(id, fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := core.RuleID(chi.URLParam(r, "id"))
	if err := s.engine.RemoveRule(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleValidateRule runs one registered rule against inline row data
func (s *Server) handleValidateRule(w http.ResponseWriter, r *http.Request) {
	id := core.RuleID(chi.URLParam(r, "id"))

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", core.ErrInvalidRule, err))
		return
	}
	if req.Dataset == nil {
		writeError(w, fmt.Errorf("%w: request needs inline dataset rows", core.ErrDatasetShape))
		return
	}
	table := dataset.NewTable(req.Dataset.Name, req.Dataset.Columns)
	for _, row := range req.Dataset.Rows {
		table.AppendRow(row)
	}

	outcome, err := s.engine.ValidateRule(r.Context(), table, id, run.Config{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}
