// Package collab implements the collaboration broker: the blocking
// human-approval protocol between an executing tool call and the operator.
// A waiting call suspends with no timeout; only an explicit response or a
// cancellation of the underlying call resumes it.
package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/toolgate/internal/events"
	"github.com/flemzord/toolgate/internal/grant"
)

// Status of a pending collaboration request.
type Status string

// Status values.
const (
	StatusWaiting   Status = "waiting"
	StatusResponded Status = "responded"
	StatusCancelled Status = "cancelled"
)

var (
	// ErrNotPending is returned when a response or cancellation targets a
	// call id with no waiting request, including a request that was already
	// resolved. Resuming twice is structurally impossible; the second
	// submission is a no-op carrying this error.
	ErrNotPending = errors.New("no pending collaboration request")

	// ErrDuplicateRequest is returned when a call id already has a waiting
	// request.
	ErrDuplicateRequest = errors.New("collaboration request already pending")

	// ErrCancelled is returned to the waiter when the underlying call is
	// cancelled before a response arrives.
	ErrCancelled = errors.New("collaboration request cancelled")
)

// Request asks the operator for input or approval.
type Request struct {
	// CallID correlates the request with the tool call that is waiting.
	CallID string

	// Prompt is shown verbatim to the operator.
	Prompt string

	// LinkedOperation, when non-empty, names the operation to grant on an
	// approving response (e.g. "file_operations.create_file").
	LinkedOperation string

	// SessionID keys the grant written on approval.
	SessionID string
}

// Response is what the waiting caller receives.
type Response struct {
	// Kind is the classification of the operator's text.
	Kind Kind

	// Text is the operator's verbatim reply.
	Text string
}

// pending is one suspended caller. The done channel is buffered and written
// at most once, guarded by once, so a second resume cannot fire.
type pending struct {
	req    Request
	status Status
	once   sync.Once
	done   chan Response
}

// Broker manages pending requests and resumes blocked callers. The pending
// map is owned exclusively by the broker; the mutex is never held across
// the blocking wait.
type Broker struct {
	mu       sync.Mutex
	requests map[string]*pending
	grants   *grant.Store
	grantTTL time.Duration
	sink     events.Sink
	logger   *slog.Logger
}

// NewBroker creates a broker that writes approvals into the given grant
// store and announces prompts on the sink. A non-positive grantTTL uses
// grant.DefaultTTL.
func NewBroker(grants *grant.Store, grantTTL time.Duration, sink events.Sink, logger *slog.Logger) *Broker {
	if sink == nil {
		sink = events.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		requests: make(map[string]*pending),
		grants:   grants,
		grantTTL: grantTTL,
		sink:     sink,
		logger:   logger,
	}
}

// RequestApproval registers a pending request, announces it to the UI
// boundary, and blocks until SubmitResponse or Cancel resumes it, or ctx is
// cancelled. There is deliberately no timeout: auto-denying a slow operator
// or auto-approving an unattended prompt are both unacceptable for a
// consent gate.
func (b *Broker) RequestApproval(ctx context.Context, req Request) (Response, error) {
	p := &pending{
		req:    req,
		status: StatusWaiting,
		done:   make(chan Response, 1),
	}

	b.mu.Lock()
	if _, exists := b.requests[req.CallID]; exists {
		b.mu.Unlock()
		return Response{}, fmt.Errorf("%w: %s", ErrDuplicateRequest, req.CallID)
	}
	b.requests[req.CallID] = p
	b.mu.Unlock()

	b.sink.Publish(events.Event{
		Type:      events.TypeCollabPrompt,
		CallID:    req.CallID,
		SessionID: req.SessionID,
		Detail:    req.Prompt,
	})
	b.logger.Info("collaboration request waiting",
		"call_id", req.CallID, "operation", req.LinkedOperation)

	select {
	case resp := <-p.done:
		return resp, nil
	case <-ctx.Done():
		// Claim as cancelled so a late SubmitResponse is a no-op and cannot
		// create a grant for a caller that is no longer there. If a response
		// won the race, take it instead: it is already committed.
		if _, ok := b.claim(req.CallID, StatusCancelled); !ok {
			select {
			case resp := <-p.done:
				return resp, nil
			default:
			}
		}
		return Response{}, fmt.Errorf("%w: %s", ErrCancelled, req.CallID)
	}
}

// SubmitResponse resumes the caller waiting on callID. The text is
// classified against the fixed approval/rejection vocabulary; on approval
// with a linked operation a grant is written before the waiter resumes, so
// a re-check of the guard observes it. Informational text resumes the
// waiter without a grant.
func (b *Broker) SubmitResponse(callID, text string) error {
	kind := Classify(text)

	// Claim the request first: once claimed, no concurrent cancel or second
	// response can touch it, and the grant below cannot outlive its waiter.
	p, ok := b.claim(callID, StatusResponded)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotPending, callID)
	}

	if kind == KindApproved && p.req.LinkedOperation != "" {
		b.grants.Grant(p.req.SessionID, p.req.LinkedOperation, b.grantTTL, false)
		b.logger.Info("authorization granted",
			"session_id", p.req.SessionID, "operation", p.req.LinkedOperation)
	}

	p.once.Do(func() {
		p.done <- Response{Kind: kind, Text: text}
	})

	b.sink.Publish(events.Event{
		Type:      events.TypeCollabResolved,
		CallID:    callID,
		SessionID: p.req.SessionID,
		Detail:    string(kind),
	})
	return nil
}

// Cancel marks the request cancelled and releases the waiter. No grant is
// created; the done channel is never fired for a cancelled request.
func (b *Broker) Cancel(callID string) error {
	if _, ok := b.claim(callID, StatusCancelled); !ok {
		return fmt.Errorf("%w: %s", ErrNotPending, callID)
	}
	return nil
}

// Pending returns the call ids of requests still waiting, for the status
// surface.
func (b *Broker) Pending() []PendingInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	infos := make([]PendingInfo, 0, len(b.requests))
	for _, p := range b.requests {
		if p.status == StatusWaiting {
			infos = append(infos, PendingInfo{
				CallID:          p.req.CallID,
				Prompt:          p.req.Prompt,
				LinkedOperation: p.req.LinkedOperation,
				SessionID:       p.req.SessionID,
			})
		}
	}
	return infos
}

// PendingInfo describes one waiting request.
type PendingInfo struct {
	CallID          string `json:"call_id"`
	Prompt          string `json:"prompt"`
	LinkedOperation string `json:"linked_operation,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
}

// claim atomically transitions a waiting request to a terminal status and
// removes it from the map. Exactly one caller wins; losers of the race
// (second response, response after cancel) get ok=false. Firing the done
// channel stays with the winner, so a double resume is structurally
// impossible.
func (b *Broker) claim(callID string, status Status) (*pending, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.requests[callID]
	if !ok || p.status != StatusWaiting {
		return nil, false
	}
	p.status = status
	delete(b.requests, callID)
	return p, true
}
