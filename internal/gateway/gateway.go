// Package gateway provides the HTTP boundary for humans and UIs: health,
// metrics, pending collaboration requests and their responses, execution
// history, and a WebSocket stream onto terminal sessions. It binds to
// loopback by default.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/toolgate/internal/audit"
	"github.com/flemzord/toolgate/internal/collab"
)

// Default timeouts for the HTTP server.
const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Responder resumes a blocked collaboration request. Implemented by the
// execution pipeline.
type Responder interface {
	SubmitCollaborationResponse(callID, text string) error
}

// PendingLister lists collaboration requests still waiting for an answer.
type PendingLister interface {
	Pending() []collab.PendingInfo
}

// TerminalStore is the subset of the terminal manager the gateway needs.
type TerminalStore interface {
	Output(id string, from int) ([]byte, int, error)
	SendInput(id string, data []byte) error
	Resize(id string, rows, cols uint16) error
	Len() int
}

// HistoryStore reads back persisted execution history.
type HistoryStore interface {
	Recent(sessionID string, limit int) ([]audit.Event, error)
}

// Config holds the gateway's collaborators and listen address. Responder
// and Pending are required; the rest degrade gracefully when nil.
type Config struct {
	Listen    string
	Responder Responder
	Pending   PendingLister
	Terminals TerminalStore
	History   HistoryStore
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
}

// Gateway is the HTTP server for the human-facing boundary.
type Gateway struct {
	config    Config
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a gateway. Call Start to begin serving.
func New(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		config: cfg,
		logger: logger.With("component", "gateway"),
	}
}

// Start binds the listen address and serves in a background goroutine.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Listen,
		Handler:      g.buildRouter(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Listen)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Listen)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
