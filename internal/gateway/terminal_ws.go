package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/flemzord/toolgate/internal/term"
)

// outputPollInterval is how often the socket checks the session buffer for
// new bytes. The buffer is index-addressed, so polling never duplicates or
// drops output.
const outputPollInterval = 50 * time.Millisecond

// Client-to-server message types on the terminal socket.
const (
	msgInput  = "input"
	msgResize = "resize"
)

// clientMessage is one JSON frame from the browser.
type clientMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Rows int    `json:"rows,omitempty"`
	Cols int    `json:"cols,omitempty"`
}

// outputFrame is one JSON frame to the browser.
type outputFrame struct {
	Type string `json:"type"`
	Data string `json:"data"`
	Next int    `json:"next"`
}

// handleTerminalSocket streams incremental session output to the client
// and applies input and resize messages from it. The stream starts at the
// beginning of the buffer so a reconnecting client sees scrollback. The
// route is addressed by conversation id, the same id the agent sees; the
// manager-level session id is derived here.
func (g *Gateway) handleTerminalSocket(w http.ResponseWriter, r *http.Request) {
	session := term.SessionID(chi.URLParam(r, "session"))
	if _, _, err := g.config.Terminals.Output(session, 0); err != nil {
		if errors.Is(err, term.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket accept failed", "session_id", session, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go g.readClientMessages(ctx, cancel, conn, session)

	ticker := time.NewTicker(outputPollInterval)
	defer ticker.Stop()

	next := 0
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}

		out, n, err := g.config.Terminals.Output(session, next)
		if err != nil {
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		if len(out) == 0 {
			continue
		}
		next = n

		frame, _ := json.Marshal(outputFrame{Type: "output", Data: string(out), Next: next})
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			return
		}
	}
}

// readClientMessages consumes input and resize frames until the client
// disconnects, then cancels the write loop.
func (g *Gateway) readClientMessages(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, session string) {
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			g.logger.Warn("terminal socket: bad frame", "session_id", session, "error", err)
			continue
		}

		switch msg.Type {
		case msgInput:
			if err := g.config.Terminals.SendInput(session, []byte(msg.Data)); err != nil {
				g.logger.Warn("terminal socket: input failed", "session_id", session, "error", err)
				return
			}
		case msgResize:
			if err := g.config.Terminals.Resize(session, uint16(msg.Rows), uint16(msg.Cols)); err != nil {
				g.logger.Warn("terminal socket: resize failed", "session_id", session, "error", err)
			}
		default:
			g.logger.Warn("terminal socket: unknown message type", "type", msg.Type)
		}
	}
}
