package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", g.handleHealth())

	if g.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g.config.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/collab", func(r chi.Router) {
		r.Get("/pending", g.handleListPending())
		r.Post("/{id}/response", g.handleCollabResponse())
	})

	if g.config.History != nil {
		r.Get("/history/{session}", g.handleHistory())
	}

	if g.config.Terminals != nil {
		r.Get("/ws/terminal/{session}", g.handleTerminalSocket)
	}

	return r
}
