package handlers

import (
	"net/http"
)

// Health returns the server health status. The warehouse connection decides
// between ok and degraded.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := h.db.Ping(r.Context()); err != nil {
		status = "degraded"
	}
	h.writeJSON(w, map[string]string{"status": status})
}
