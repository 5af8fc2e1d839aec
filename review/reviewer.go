package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/cadencehq/greenlight/provider"
	"github.com/cadencehq/greenlight/task"
)

// Worker performs a task and returns its output text. An error means
// the work could not be produced and terminates the task.
type Worker interface {
	Produce(ctx context.Context, t *task.Task) (string, error)
}

// Request carries the material a reviewer evaluates.
type Request struct {
	Description   string
	Output        string
	PriorApproval string // manager's approval reasoning, set for the executive stage
}

// Reviewer returns a prose verdict beginning with an approve/reject
// keyword plus justification. ParseVerdict turns it into a Verdict.
type Reviewer interface {
	Review(ctx context.Context, req Request) (string, error)
}

// managerSystemPrompt frames the tactical review criteria.
const managerSystemPrompt = `You are a manager reviewing a completed task.
Evaluate the output against four criteria: relevance to the task description,
completeness, accuracy, and actionability.
Reply starting with APPROVE or REJECT, followed by your reasoning.`

// executiveSystemPrompt frames the strategic review criteria.
const executiveSystemPrompt = `You are an executive performing the final review of a task.
Evaluate the output strategically: brand consistency, resource optimization,
market impact, risk, and competitive advantage.
Reply starting with EXECUTIVE APPROVE or EXECUTIVE REJECT, followed by your reasoning.`

// workerSystemPrompt is the default frame for provider-backed workers.
const workerSystemPrompt = `You are an autonomous worker. Produce the deliverable the task asks for, as plain text.`

// ProviderWorker adapts a text provider into a Worker.
type ProviderWorker struct {
	Provider     provider.Provider
	SystemPrompt string // optional override of workerSystemPrompt
}

// Produce builds the task prompt and returns the provider's completion.
func (w *ProviderWorker) Produce(ctx context.Context, t *task.Task) (string, error) {
	sys := w.SystemPrompt
	if sys == "" {
		sys = workerSystemPrompt
	}

	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(t.Title)
	if t.Description != "" {
		b.WriteString("\n\nDescription: ")
		b.WriteString(t.Description)
	}
	for k, v := range t.Context {
		fmt.Fprintf(&b, "\n%s: %s", k, v)
	}

	out, err := w.Provider.Generate(ctx, sys, b.String())
	if err != nil {
		return "", fmt.Errorf("worker %s: %w", w.Provider.Name(), err)
	}
	return out, nil
}

// ProviderReviewer adapts a text provider into a Reviewer.
type ProviderReviewer struct {
	Provider     provider.Provider
	Executive    bool
	SystemPrompt string // optional override of the stage default
}

// Review sends the task description and output (and, for the executive
// stage, the manager's approval reasoning) to the provider.
func (r *ProviderReviewer) Review(ctx context.Context, req Request) (string, error) {
	sys := r.SystemPrompt
	if sys == "" {
		if r.Executive {
			sys = executiveSystemPrompt
		} else {
			sys = managerSystemPrompt
		}
	}

	var b strings.Builder
	b.WriteString("Task description:\n")
	b.WriteString(req.Description)
	b.WriteString("\n\nTask output:\n")
	b.WriteString(req.Output)
	if req.PriorApproval != "" {
		b.WriteString("\n\nManager approval reasoning:\n")
		b.WriteString(req.PriorApproval)
	}

	out, err := r.Provider.Generate(ctx, sys, b.String())
	if err != nil {
		return "", fmt.Errorf("reviewer %s: %w", r.Provider.Name(), err)
	}
	return out, nil
}
