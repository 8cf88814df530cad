package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/toolgate/internal/audit"
	"github.com/flemzord/toolgate/internal/collab"
	"github.com/flemzord/toolgate/internal/term"
)

// fakeResponder records submitted collaboration responses.
type fakeResponder struct {
	mu   sync.Mutex
	got  map[string]string
	fail error
}

func (f *fakeResponder) SubmitCollaborationResponse(callID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if f.got == nil {
		f.got = make(map[string]string)
	}
	f.got[callID] = text
	return nil
}

// fakePending serves a fixed pending list.
type fakePending struct {
	infos []collab.PendingInfo
}

func (f *fakePending) Pending() []collab.PendingInfo { return f.infos }

// fakeTerminals is a single-session in-memory terminal store.
type fakeTerminals struct {
	mu    sync.Mutex
	id    string
	buf   []byte
	input []byte
	rows  uint16
	cols  uint16
}

func (f *fakeTerminals) Output(id string, from int) ([]byte, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.id {
		return nil, 0, fmt.Errorf("%w: %s", term.ErrSessionNotFound, id)
	}
	if from > len(f.buf) {
		from = len(f.buf)
	}
	return f.buf[from:], len(f.buf), nil
}

func (f *fakeTerminals) SendInput(id string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.id {
		return fmt.Errorf("%w: %s", term.ErrSessionNotFound, id)
	}
	f.input = append(f.input, data...)
	return nil
}

func (f *fakeTerminals) Resize(id string, rows, cols uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows, f.cols = rows, cols
	return nil
}

func (f *fakeTerminals) Len() int { return 1 }

// fakeHistory serves fixed events.
type fakeHistory struct {
	events   []audit.Event
	gotLimit int
}

func (f *fakeHistory) Recent(_ string, limit int) ([]audit.Event, error) {
	f.gotLimit = limit
	return f.events, nil
}

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, *Gateway) {
	t.Helper()
	g := New(cfg)
	srv := httptest.NewServer(g.buildRouter())
	t.Cleanup(srv.Close)
	return srv, g
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, Config{
		Pending:   &fakePending{infos: []collab.PendingInfo{{CallID: "c1"}}},
		Terminals: &fakeTerminals{id: "s1"},
	})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Sessions != 1 || body.PendingCount != 1 {
		t.Errorf("health: got %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "toolgate_test_total"})
	reg.MustRegister(counter)
	counter.Inc()

	srv, _ := newTestServer(t, Config{Gatherer: reg})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "toolgate_test_total") {
		t.Error("metrics output missing registered counter")
	}
}

func TestListPending(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, Config{
		Pending: &fakePending{infos: []collab.PendingInfo{
			{CallID: "c1", Prompt: "may I?", LinkedOperation: "file_operations.create_file"},
		}},
	})

	resp, err := http.Get(srv.URL + "/collab/pending")
	if err != nil {
		t.Fatalf("GET /collab/pending: %v", err)
	}
	defer resp.Body.Close()

	var infos []collab.PendingInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 1 || infos[0].CallID != "c1" {
		t.Errorf("pending: got %+v", infos)
	}
}

func TestCollabResponse(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{}
	srv, _ := newTestServer(t, Config{Responder: responder})

	resp, err := http.Post(srv.URL+"/collab/c1/response", "application/json",
		strings.NewReader(`{"text": "Yes, proceed"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", resp.StatusCode)
	}
	if responder.got["c1"] != "Yes, proceed" {
		t.Errorf("responder: got %v", responder.got)
	}
}

func TestCollabResponse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		body       string
		fail       error
		wantStatus int
	}{
		{
			name:       "empty text",
			path:       "/collab/c1/response",
			body:       `{"text": ""}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad json",
			path:       "/collab/c1/response",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not pending",
			path:       "/collab/ghost/response",
			body:       `{"text": "yes"}`,
			fail:       fmt.Errorf("%w: ghost", collab.ErrNotPending),
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newTestServer(t, Config{Responder: &fakeResponder{fail: tt.fail}})
			resp, err := http.Post(srv.URL+tt.path, "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status: got %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{events: []audit.Event{
		{Type: audit.EventToolCall, SessionID: "s1", Detail: "ls"},
	}}
	srv, _ := newTestServer(t, Config{History: history})

	resp, err := http.Get(srv.URL + "/history/s1?limit=5")
	if err != nil {
		t.Fatalf("GET /history: %v", err)
	}
	defer resp.Body.Close()

	var events []audit.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].Detail != "ls" {
		t.Errorf("history: got %+v", events)
	}
	if history.gotLimit != 5 {
		t.Errorf("limit: got %d, want 5", history.gotLimit)
	}
}

// The socket is addressed by conversation id; the handler derives the
// manager-level session id, so the UI never has to learn the internal
// naming.
func TestTerminalSocket(t *testing.T) {
	t.Parallel()

	terminals := &fakeTerminals{id: term.SessionID("s1"), buf: []byte("shell ready\n")}
	srv, _ := newTestServer(t, Config{Terminals: terminals})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/terminal/s1"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var frame outputFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if frame.Type != "output" || frame.Data != "shell ready\n" {
		t.Errorf("frame: got %+v", frame)
	}

	msg, _ := json.Marshal(clientMessage{Type: msgInput, Data: "echo hi\n"})
	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		terminals.mu.Lock()
		got := string(terminals.input)
		terminals.mu.Unlock()
		if got == "echo hi\n" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("input never reached the terminal store")
}

func TestTerminalSocket_UnknownSession(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, Config{Terminals: &fakeTerminals{id: "s1"}})

	resp, err := http.Get(srv.URL + "/ws/terminal/ghost")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}
