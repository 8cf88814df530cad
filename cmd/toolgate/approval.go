package main

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/flemzord/toolgate/internal/collab"
	"github.com/flemzord/toolgate/internal/events"
)

// RunInteractive consumes collaboration prompts from the event sink and
// asks the operator for a decision on each, until ctx is cancelled. Free
// text is forwarded verbatim: "yes"/"no" style answers drive
// authorization, anything else reaches the agent as an informational
// reply.
func (a *App) RunInteractive(ctx context.Context) {
	a.logger.Info("approval console ready; waiting for requests")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.sink.Events():
			if !ok {
				return
			}
			if ev.Type != events.TypeCollabPrompt {
				continue
			}

			answer, err := promptOperator(ev.Detail)
			if err != nil {
				a.logger.Warn("approval prompt aborted", "call_id", ev.CallID, "error", err)
				continue
			}
			if answer == "" {
				continue
			}

			if err := a.pipeline.SubmitCollaborationResponse(ev.CallID, answer); err != nil {
				if errors.Is(err, collab.ErrNotPending) {
					// The call was cancelled or answered over the gateway
					// while the form was open.
					a.logger.Info("request no longer pending", "call_id", ev.CallID)
					continue
				}
				a.logger.Error("response submission failed", "call_id", ev.CallID, "error", err)
			}
		}
	}
}

// promptOperator shows one approval form and returns the operator's text.
func promptOperator(prompt string) (string, error) {
	var answer string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Approval requested").
			Description(prompt).
			Placeholder("yes / no / free-form answer").
			Value(&answer),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
