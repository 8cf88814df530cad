package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/toolgate/internal/audit"
)

// handleHistory returns recent execution history for a session, newest
// first. The limit query parameter caps the result (default 50).
func (g *Gateway) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := chi.URLParam(r, "session")
		if session == "" {
			http.Error(w, "missing session id", http.StatusBadRequest)
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}

		events, err := g.config.History.Recent(session, limit)
		if err != nil {
			g.logger.Error("history query failed", "session_id", session, "error", err)
			http.Error(w, "history query failed", http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []audit.Event{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(events)
	}
}
