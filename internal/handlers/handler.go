package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/ingest"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/models"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/store"
)

// PageLimits bounds GET /messages pagination.
type PageLimits struct {
	Default int
	Max     int
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store    store.MessageStore
	pipeline *ingest.Pipeline
	logger   zerolog.Logger
	limits   PageLimits
	extra    map[string]Pinger
}

// Pinger is an optional dependency reported by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHandler creates a new Handler.
func NewHandler(s store.MessageStore, pipeline *ingest.Pipeline, logger zerolog.Logger, limits PageLimits) *Handler {
	if limits.Max <= 0 {
		limits.Max = 100
	}
	if limits.Default < 0 || limits.Default > limits.Max {
		limits.Default = min(50, limits.Max)
	}
	return &Handler{
		store:    s,
		pipeline: pipeline,
		logger:   logger,
		limits:   limits,
		extra:    map[string]Pinger{},
	}
}

// Report adds an optional dependency to the readiness checks. It never gates readiness.
func (h *Handler) Report(name string, p Pinger) {
	h.extra[name] = p
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// FieldErrors sends a 422 listing the offending fields.
func (h *Handler) FieldErrors(w http.ResponseWriter, message string, fields []models.FieldError) {
	h.JSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  message,
		"fields": fields,
	})
}
