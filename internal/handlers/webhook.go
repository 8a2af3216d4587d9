package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/crypto"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/ingest"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/metrics"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/models"
)

const resultInvalidBody ingest.Result = "invalid_body"

// WebhookResponse is the body of every successful delivery, new or duplicate.
type WebhookResponse struct {
	Status string `json:"status"`
}

// Webhook ingests one signed delivery and writes exactly one log record for it.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	out, status := h.ingest(w, r)

	metrics.WebhookRequestsTotal.WithLabelValues(string(out.Result)).Inc()

	var ev *zerolog.Event
	switch {
	case status >= 500:
		ev = h.logger.Error().Err(out.Err)
	case status >= 400:
		ev = h.logger.Warn()
	default:
		ev = h.logger.Info()
	}
	if out.MessageID != "" {
		ev = ev.Str("message_id", out.MessageID)
	}
	if out.State == ingest.StateDone {
		ev = ev.Bool("dup", out.Duplicate)
	}
	ev.Str("request_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Float64("latency_ms", float64(time.Since(start).Microseconds())/1000).
		Str("result", string(out.Result)).
		Str("state", string(out.State)).
		Msg("webhook processed")
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) (ingest.Outcome, int) {
	if !h.pipeline.Ready() {
		out := h.pipeline.Process(r.Context(), nil, "")
		h.Error(w, http.StatusServiceUnavailable, "webhook secret not configured")
		return out, http.StatusServiceUnavailable
	}

	// The signature covers these exact bytes; nothing below may re-encode them.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		out := ingest.Outcome{State: ingest.StateReceived, Result: resultInvalidBody, Err: err}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return out, http.StatusRequestEntityTooLarge
		}
		h.Error(w, http.StatusBadRequest, "failed to read request body")
		return out, http.StatusBadRequest
	}

	out := h.pipeline.Process(r.Context(), body, r.Header.Get(crypto.SignatureHeader))

	switch out.Result {
	case ingest.ResultCreated, ingest.ResultDuplicate:
		h.JSON(w, http.StatusOK, WebhookResponse{Status: "ok"})
		return out, http.StatusOK

	case ingest.ResultInvalidSignature:
		h.Error(w, http.StatusUnauthorized, "invalid signature")
		return out, http.StatusUnauthorized

	case ingest.ResultValidationError:
		var verr *models.ValidationError
		if errors.As(out.Err, &verr) {
			h.FieldErrors(w, "validation failed", verr.Fields)
		} else {
			h.Error(w, http.StatusUnprocessableEntity, "payload must be a JSON object")
		}
		return out, http.StatusUnprocessableEntity

	case ingest.ResultNotConfigured:
		h.Error(w, http.StatusServiceUnavailable, "webhook secret not configured")
		return out, http.StatusServiceUnavailable

	default:
		h.Error(w, http.StatusServiceUnavailable, "storage unavailable")
		return out, http.StatusServiceUnavailable
	}
}
