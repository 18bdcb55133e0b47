package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clubops/memberbill/internal/auth"
	middlewares "github.com/clubops/memberbill/internal/middleware"

	"github.com/clubops/memberbill/internal/ledger"
	"github.com/clubops/memberbill/internal/registry"
	"github.com/clubops/memberbill/internal/scheduler"
	"github.com/clubops/memberbill/internal/webhook"
)

// Handler handles HTTP requests for the API
type Handler struct {
	ledger    ledger.Store
	registry  registry.Store
	router    *webhook.Router
	orch      *scheduler.Orchestrator
	subs      *scheduler.SubscriptionController
	verifier  *auth.Verifier
	version   string
	buildTime string
	gitCommit string
	startTime time.Time
}

// NewHandler creates a new API handler
func NewHandler(lg ledger.Store, reg registry.Store, router *webhook.Router, orch *scheduler.Orchestrator, subs *scheduler.SubscriptionController, verifier *auth.Verifier, version, buildTime, gitCommit string) *Handler {
	return &Handler{
		ledger:    lg,
		registry:  reg,
		router:    router,
		orch:      orch,
		subs:      subs,
		verifier:  verifier,
		version:   version,
		buildTime: buildTime,
		gitCommit: gitCommit,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {
		// Health check endpoints
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)
		r.Get("/version", h.versionHandler)

		// Processor event intake
		r.Post("/billing/webhook", h.webhookHandler)
	})

	// Manual trigger endpoints
	r.Route("/v1/admin", func(r chi.Router) {
		r.With(middlewares.AdminAuth(h.verifier)).Group(func(r chi.Router) {
			r.Post("/billing/run", h.billingRunHandler)
			r.Post("/subscriptions/sync", h.subscriptionSyncHandler)
		})
	})
}

// healthHandler returns basic health status
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"ledger":   "ok",
		"registry": "ok",
	}

	statusCode := http.StatusOK

	if err := h.ledger.Health(ctx); err != nil {
		checks["ledger"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}
	if err := h.registry.Health(ctx); err != nil {
		checks["registry"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.version,
		"build_time": h.buildTime,
		"git_commit": h.gitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: r.Header.Get("X-Request-ID"),
	}

	h.writeJSONResponse(w, statusCode, response)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
