package collab

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flemzord/toolgate/internal/tool"
)

// FacadeName is the externally visible name of the collaboration tool.
const FacadeName = "collaboration"

// Facade exposes the broker as the consolidated "collaboration" tool, so
// an agent can explicitly ask the operator for input mid-task. The call
// blocks until the operator answers; there is no timeout.
type Facade struct {
	broker *Broker
}

// NewFacade wraps a broker.
func NewFacade(broker *Broker) *Facade {
	return &Facade{broker: broker}
}

// Tool returns the consolidated tool descriptor.
func (f *Facade) Tool() *tool.Tool {
	return &tool.Tool{
		Descriptor: tool.Descriptor{
			Name:         FacadeName,
			Description:  "Ask the human operator a question and wait for their answer.",
			Schema:       facadeSchema,
			Capability:   tool.CapabilityBlocking,
			Consolidated: true,
		},
		Operations: []tool.Operation{
			{Name: "request_input", Capability: tool.CapabilityBlocking, Handler: f.requestInput},
		},
	}
}

var facadeSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "operation": {"type": "string", "enum": ["request_input"]},
    "prompt": {"type": "string"}
  },
  "required": ["operation", "prompt"]
}`)

// requestInput suspends the call on the broker and returns the operator's
// verbatim answer. No grant is involved: the request carries no linked
// operation, so an approving answer here never widens authorization.
func (f *Facade) requestInput(ctx context.Context, args map[string]any, call tool.CallContext) (tool.Output, error) {
	prompt, _ := args["prompt"].(string)
	if prompt == "" {
		return tool.Output{}, fmt.Errorf("prompt argument required")
	}
	resp, err := f.broker.RequestApproval(ctx, Request{
		CallID:    call.CallID,
		Prompt:    prompt,
		SessionID: call.SessionID,
	})
	if err != nil {
		return tool.Output{}, err
	}
	return tool.Output{Content: resp.Text}, nil
}
