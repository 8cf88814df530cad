// Package pipeline is the top-level state machine for tool calls: it
// validates parameters, consults the authorization guard, brokers blocked
// calls through the collaboration protocol, and converts every outcome
// into a uniform result record. Nothing escapes this boundary as a panic
// or unhandled error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/toolgate/internal/audit"
	"github.com/flemzord/toolgate/internal/authz"
	"github.com/flemzord/toolgate/internal/collab"
	"github.com/flemzord/toolgate/internal/events"
	"github.com/flemzord/toolgate/internal/term"
	"github.com/flemzord/toolgate/internal/tool"
)

// Config holds the pipeline's collaborators, all constructed explicitly at
// startup and passed by reference. There is no ambient global state.
type Config struct {
	Registry *tool.Registry
	Guard    *authz.Guard
	Broker   *collab.Broker
	Sink     events.Sink
	Audit    *audit.Logger
	Metrics  *Metrics
	Logger   *slog.Logger
}

// Pipeline executes tool calls. Each invocation runs on the caller's
// goroutine; concurrency across calls is the caller's choice.
type Pipeline struct {
	router  *tool.Router
	guard   *authz.Guard
	broker  *collab.Broker
	sink    events.Sink
	audit   *audit.Logger
	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New creates a pipeline from the given configuration.
func New(cfg Config) *Pipeline {
	sink := cfg.Sink
	if sink == nil {
		sink = events.Discard{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		router:  tool.NewRouter(cfg.Registry),
		guard:   cfg.Guard,
		broker:  cfg.Broker,
		sink:    sink,
		audit:   cfg.Audit,
		metrics: cfg.Metrics,
		logger:  logger.With("component", "pipeline"),
		tracer:  otel.Tracer("toolgate/pipeline"),
	}
}

// ExecuteTool runs one tool call to a terminal state. The name may be
// dotted ("facade.operation"); the operation may equivalently arrive as an
// "operation" argument. Panics in tool bodies are recovered and returned
// as failed records.
func (p *Pipeline) ExecuteTool(ctx context.Context, name string, args map[string]any, call tool.CallContext) Record {
	start := time.Now()
	base, operation := tool.SplitName(name)
	if operation == "" {
		if op, ok := args["operation"].(string); ok {
			operation = op
		}
	}

	rec := Record{
		CallID:    call.CallID,
		ToolName:  base,
		Operation: operation,
		StartedAt: start,
		States:    []State{StateQueued},
	}

	ctx, span := p.tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		attribute.String("tool.name", base),
		attribute.String("tool.operation", operation),
		attribute.String("session.id", call.SessionID),
	))
	defer span.End()

	p.run(ctx, &rec, args, call)

	rec.Duration = time.Since(start)
	rec.transition(StateCompleted)
	span.SetAttributes(attribute.Bool("tool.success", rec.Success))
	p.metrics.observe(rec)
	p.auditResult(rec, call)
	p.sink.Publish(events.Event{
		Type:      events.TypeExecutionResult,
		CallID:    call.CallID,
		SessionID: call.SessionID,
		Detail:    fmt.Sprintf("%s success=%v", tool.OperationKey(rec.ToolName, rec.Operation), rec.Success),
	})
	return rec
}

// SubmitCollaborationResponse is the resumption hook for the human-facing
// boundary.
func (p *Pipeline) SubmitCollaborationResponse(callID, text string) error {
	kind := collab.Classify(text)
	if err := p.broker.SubmitResponse(callID, text); err != nil {
		return err
	}
	p.metrics.ObserveApproval(string(kind))
	p.audit.Log(audit.Event{
		Type:   audit.EventApproval,
		CallID: callID,
		Detail: string(kind),
	})
	return nil
}

func (p *Pipeline) run(ctx context.Context, rec *Record, args map[string]any, call tool.CallContext) {
	rec.transition(StateValidating)
	if args == nil {
		args = map[string]any{}
	}

	route, err := p.router.Resolve(rec.ToolName, rec.Operation)
	if err != nil {
		rec.transition(StateValidationFailed)
		switch {
		case errors.Is(err, tool.ErrToolNotFound):
			rec.fail(FailureToolNotFound, err.Error())
		default:
			rec.fail(FailureValidation, err.Error())
		}
		return
	}

	opKey := tool.OperationKey(rec.ToolName, rec.Operation)
	path := pathArgument(route, args)

	// CheckingAuth loops back after an approval so the guard stays the
	// single source of truth: the retry is satisfied by the grant the
	// broker wrote, not by trusting the response directly.
	for attempt := 0; ; attempt++ {
		rec.transition(StateCheckingAuth)
		decision := p.guard.Decide(authz.Input{
			Path:          path,
			WorkingDir:    call.WorkingDir,
			SessionID:     call.SessionID,
			OperationKey:  opKey,
			UserInitiated: call.UserInitiated,
			Capability:    route.Capability,
		})
		rec.Decision = decision.Reason
		p.audit.Log(audit.Event{
			Type:      audit.EventAuthDecision,
			SessionID: call.SessionID,
			CallID:    call.CallID,
			ToolName:  rec.ToolName,
			Operation: rec.Operation,
			Detail:    decision.Reason,
		})

		if decision.Allowed {
			break
		}
		if p.broker == nil || attempt > 0 {
			rec.transition(StateAuthDenied)
			rec.fail(FailureAuthDenied, decision.Reason)
			return
		}

		rec.transition(StateAuthPending)
		resp, reqErr := p.broker.RequestApproval(ctx, collab.Request{
			CallID:          call.CallID,
			Prompt:          decision.Reason,
			LinkedOperation: opKey,
			SessionID:       call.SessionID,
		})
		if reqErr != nil {
			if errors.Is(reqErr, collab.ErrCancelled) {
				rec.fail(FailureCancelled, reqErr.Error())
				return
			}
			rec.fail(FailureAuthDenied, reqErr.Error())
			return
		}
		if resp.Kind != collab.KindApproved {
			rec.transition(StateAuthDenied)
			rec.fail(FailureAuthDenied, fmt.Sprintf(
				"authorization not granted for %s; operator said: %s", opKey, resp.Text))
			return
		}
		// Approved: loop back to CheckingAuth with the grant in place.
	}

	p.execute(ctx, rec, route, args, call)
}

func (p *Pipeline) execute(ctx context.Context, rec *Record, route tool.Route, args map[string]any, call tool.CallContext) {
	rec.transition(StateExecuting)
	p.audit.Log(audit.Event{
		Type:      audit.EventToolCall,
		SessionID: call.SessionID,
		CallID:    call.CallID,
		ToolName:  rec.ToolName,
		Operation: rec.Operation,
	})

	out, err := p.invoke(ctx, route.Handler(), args, call)
	switch {
	case err == nil:
		rec.Success = !out.IsError
		rec.Output = out
		if out.IsError {
			rec.Failure = FailureExecution
			rec.transition(StateFailure)
		} else {
			rec.transition(StateSuccess)
		}
	case errors.Is(err, term.ErrSpawnFailed):
		rec.fail(FailureSpawn, err.Error())
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		rec.fail(FailureCancelled, err.Error())
	default:
		rec.fail(FailureExecution, err.Error())
	}
}

// invoke calls the handler with panic recovery: a tool body raising is an
// execution failure, never an unhandled fault past the pipeline.
func (p *Pipeline) invoke(ctx context.Context, h tool.Handler, args map[string]any, call tool.CallContext) (out tool.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("tool panicked", "call_id", call.CallID, "panic", r)
			out = tool.Output{}
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return h(ctx, args, call)
}

func (p *Pipeline) auditResult(rec Record, call tool.CallContext) {
	detail := rec.Output.Content
	if !rec.Success {
		detail = string(rec.Failure) + ": " + detail
	}
	p.audit.Log(audit.Event{
		Type:      audit.EventToolResult,
		SessionID: call.SessionID,
		CallID:    call.CallID,
		ToolName:  rec.ToolName,
		Operation: rec.Operation,
		Detail:    detail,
	})
}

// pathArgument extracts the operation's declared path argument, if any.
func pathArgument(route tool.Route, args map[string]any) string {
	arg := route.PathArg()
	if arg == "" {
		return ""
	}
	if v, ok := args[arg].(string); ok {
		return v
	}
	return ""
}
