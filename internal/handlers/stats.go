package handlers

import (
	"net/http"
)

// Stats returns aggregate counts over every stored message.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Aggregate(r.Context())
	if err != nil {
		h.storeError(w, err, "aggregate")
		return
	}
	h.JSON(w, http.StatusOK, stats)
}
