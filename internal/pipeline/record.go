package pipeline

import (
	"time"

	"github.com/flemzord/toolgate/internal/tool"
)

// State of a tool call as it moves through the pipeline.
type State string

// Pipeline states. Every call ends in Completed; Success or Failure is the
// terminal outcome recorded alongside.
const (
	StateQueued           State = "queued"
	StateValidating       State = "validating"
	StateValidationFailed State = "validation_failed"
	StateCheckingAuth     State = "checking_auth"
	StateAuthDenied       State = "auth_denied"
	StateAuthPending      State = "auth_pending"
	StateExecuting        State = "executing"
	StateSuccess          State = "success"
	StateFailure          State = "failure"
	StateCompleted        State = "completed"
)

// FailureKind is the error taxonomy of the pipeline boundary. Nothing
// escapes as a panic or unhandled error; every failure maps to one of
// these.
type FailureKind string

// Failure kinds.
const (
	FailureNone         FailureKind = ""
	FailureValidation   FailureKind = "validation_error"
	FailureToolNotFound FailureKind = "tool_not_found"
	FailureAuthDenied   FailureKind = "authorization_denied"
	FailureSpawn        FailureKind = "process_spawn_failure"
	FailureExecution    FailureKind = "execution_failure"
	FailureCancelled    FailureKind = "cancelled"
)

// Record is the uniform result of one tool call. It is transient: created
// at call entry, returned to the caller, not persisted by the pipeline
// (the audit store keeps its own row).
type Record struct {
	// CallID is the correlation id of the call.
	CallID string `json:"call_id"`

	// ToolName is the base tool name after dotted-name splitting.
	ToolName string `json:"tool_name"`

	// Operation is the parsed operation, empty for simple tools.
	Operation string `json:"operation,omitempty"`

	// Decision is the authorization reason, when a decision was made.
	Decision string `json:"decision,omitempty"`

	// Success reports whether the call produced a non-error result.
	Success bool `json:"success"`

	// Failure classifies the error when Success is false.
	Failure FailureKind `json:"failure,omitempty"`

	// Output is the tool's result payload or the failure text.
	Output tool.Output `json:"output"`

	// States is the transition trail, for observability.
	States []State `json:"states"`

	// StartedAt and Duration are the call's timing metrics.
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// transition appends a state to the trail.
func (r *Record) transition(s State) {
	r.States = append(r.States, s)
}

// fail marks the record failed with the given kind and message.
func (r *Record) fail(kind FailureKind, msg string) {
	r.Success = false
	r.Failure = kind
	r.Output = tool.Output{Content: msg, IsError: true}
	r.transition(StateFailure)
}
