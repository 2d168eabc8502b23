package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"algoflow/internal/auth"
	"algoflow/internal/cfg"
	"algoflow/internal/db"
	"algoflow/internal/graphdoc"
	"algoflow/internal/index"
	"algoflow/internal/lifecycle"
	"algoflow/internal/search"
)

// Handler wraps dependencies for HTTP handlers.
type Handler struct {
	db        *db.DB
	cfg       *cfg.Config
	tokens    *auth.TokenService
	lifecycle *lifecycle.Service
	engine    *search.Engine
	aggregate *search.Aggregator
	validate  *validator.Validate
	log       *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(database *db.DB, config *cfg.Config, tokens *auth.TokenService, log *slog.Logger) *Handler {
	engine := search.NewEngine(database, log)
	return &Handler{
		db:        database,
		cfg:       config,
		tokens:    tokens,
		lifecycle: lifecycle.New(database, index.New(log), log),
		engine:    engine,
		aggregate: search.NewAggregator(engine, log),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       log.With("component", "api"),
	}
}

// NewRouter creates the HTTP router with all routes registered.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Algorithms (public reads, optional auth)
	mux.Handle("GET /api/v1/algorithms", h.WithOptionalAuth(http.HandlerFunc(h.ListAlgorithms)))
	mux.HandleFunc("GET /api/v1/algorithms/search", h.SearchAlgorithms)
	mux.Handle("GET /api/v1/algorithms/thorough-search", h.WithOptionalAuth(http.HandlerFunc(h.ThoroughSearch)))
	mux.HandleFunc("GET /api/v1/algorithms/{id}", h.GetAlgorithm)
	mux.HandleFunc("GET /api/v1/algorithms/{id}/graph", h.GetGraph)
	mux.HandleFunc("GET /api/v1/algorithms/{id}/nodes", h.ListNodes)
	mux.HandleFunc("GET /api/v1/algorithms/{id}/categories", h.ListCategories)
	mux.HandleFunc("GET /api/v1/users/{user_id}/algorithms", h.ListUserAlgorithms)

	// Algorithms (authenticated)
	mux.Handle("POST /api/v1/algorithms", h.WithAuth(http.HandlerFunc(h.CreateAlgorithm)))
	mux.Handle("PUT /api/v1/algorithms/{id}", Chain(
		http.HandlerFunc(h.UpdateAlgorithm),
		h.WithAuth,
		h.RequireOwner,
	))
	mux.Handle("PUT /api/v1/algorithms/{id}/graph", Chain(
		http.HandlerFunc(h.UpdateGraph),
		h.WithAuth,
		h.RequireOwner,
	))
	mux.Handle("DELETE /api/v1/algorithms/{id}", Chain(
		http.HandlerFunc(h.DeleteAlgorithm),
		h.WithAuth,
		h.RequireOwner,
	))

	return mux
}

// ----- Health -----

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.cfg.Version,
	})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:  "not ready",
			Version: h.cfg.Version,
		})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ready",
		Version: h.cfg.Version,
	})
}

// ----- Helpers -----

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps a service error to a response. msg describes the
// failed operation and is only used for server errors.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, graphdoc.ErrMalformed):
		writeError(w, http.StatusBadRequest, "invalid graph document", err)
	case errors.Is(err, search.ErrEmptyKeyword):
		writeError(w, http.StatusBadRequest, "keyword required", nil)
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "algorithm not found", nil)
	default:
		h.log.Error(msg, "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusInternalServerError, msg, err)
	}
}
