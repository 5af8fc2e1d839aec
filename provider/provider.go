// Package provider defines the text-generation capability that backs
// the pipeline's worker and reviewer stages. The actual generation
// logic (LLM, rules, human relay) lives outside this repository; the
// pipeline only consumes returned text.
package provider

import "context"

// Provider produces free text for a prompt. Implementations are
// expected to be safe for concurrent use.
type Provider interface {
	// Name returns the provider identifier (e.g., "mock", "scripted").
	Name() string

	// Generate returns the completion for the given system instruction
	// and user prompt. An error marks the invoking stage as failed.
	Generate(ctx context.Context, system, prompt string) (string, error)
}
