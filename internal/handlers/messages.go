package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/models"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/store"
)

// MessageListResponse represents the GET /messages response.
type MessageListResponse struct {
	Items  []models.Message `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// listParams is a parsed and bounded GET /messages query.
type listParams struct {
	filter models.MessageFilter
	limit  int
	offset int
}

// ListMessages handles paginated, filtered message listing.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r.URL.Query(), h.limits)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			h.FieldErrors(w, "invalid query parameters", verr.Fields)
			return
		}
		h.Error(w, http.StatusUnprocessableEntity, "invalid query parameters")
		return
	}

	items, total, err := h.store.Query(r.Context(), params.filter, params.limit, params.offset)
	if err != nil {
		h.storeError(w, err, "query messages")
		return
	}

	h.JSON(w, http.StatusOK, MessageListResponse{
		Items:  items,
		Total:  total,
		Limit:  params.limit,
		Offset: params.offset,
	})
}

// parseListParams clamps limit to [0, max] and offset to >= 0. Non-integer
// limit/offset and unparseable since are rejected.
func parseListParams(q url.Values, limits PageLimits) (listParams, error) {
	p := listParams{limit: limits.Default}
	verr := &models.ValidationError{}

	if s := strings.TrimSpace(q.Get("limit")); s != "" {
		n, err := strconv.Atoi(s)
		switch {
		case err != nil:
			verr.Fields = append(verr.Fields, models.FieldError{Field: "limit", Reason: "must be an integer"})
		case n < 0:
			p.limit = 0
		case n > limits.Max:
			p.limit = limits.Max
		default:
			p.limit = n
		}
	}

	if s := strings.TrimSpace(q.Get("offset")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			verr.Fields = append(verr.Fields, models.FieldError{Field: "offset", Reason: "must be an integer"})
		} else {
			p.offset = max(n, 0)
		}
	}

	p.filter.From = q.Get("from")
	p.filter.Query = q.Get("q")

	if s := strings.TrimSpace(q.Get("since")); s != "" {
		since, err := models.ParseTimestamp(s)
		if err != nil {
			verr.Fields = append(verr.Fields, models.FieldError{Field: "since", Reason: "must be an ISO-8601 timestamp"})
		} else {
			p.filter.Since = &since
		}
	}

	if len(verr.Fields) > 0 {
		return listParams{}, verr
	}
	return p, nil
}

// storeError maps store failures to 503 and logs the cause server-side only.
func (h *Handler) storeError(w http.ResponseWriter, err error, op string) {
	h.logger.Error().Err(err).Str("op", op).Msg("message store failure")
	if errors.Is(err, store.ErrUnavailable) {
		h.Error(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	h.Error(w, http.StatusInternalServerError, "internal error")
}
