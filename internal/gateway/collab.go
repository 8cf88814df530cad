package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/toolgate/internal/collab"
)

// responseBody is the JSON body for POST /collab/{id}/response.
type responseBody struct {
	Text string `json:"text"`
}

// handleListPending returns the requests still waiting for an answer.
func (g *Gateway) handleListPending() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		pending := []collab.PendingInfo{}
		if g.config.Pending != nil {
			pending = g.config.Pending.Pending()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pending)
	}
}

// handleCollabResponse resumes the call waiting on {id} with the
// operator's text. A request that is no longer pending (answered already,
// or never existed) is a 404; the response is applied at most once.
func (g *Gateway) handleCollabResponse() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			http.Error(w, "missing call id", http.StatusBadRequest)
			return
		}

		var body responseBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if body.Text == "" {
			http.Error(w, "text is required", http.StatusBadRequest)
			return
		}

		if err := g.config.Responder.SubmitCollaborationResponse(id, body.Text); err != nil {
			if errors.Is(err, collab.ErrNotPending) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		g.logger.Info("collaboration response accepted", "call_id", id)
		w.WriteHeader(http.StatusAccepted)
	}
}
