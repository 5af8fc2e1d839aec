// Package mock provides a scripted provider for testing.
package mock

import (
	"context"
	"sync"
)

const defaultResponse = "Task acknowledged. Working on it."

// Provider implements provider.Provider for testing. It cycles through
// scripted responses and can simulate a failing backend.
type Provider struct {
	mu        sync.Mutex
	responses []string
	idx       int
	err       error
}

// New creates a Provider that cycles through the given responses.
func New(responses ...string) *Provider {
	return &Provider{responses: responses}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "mock" }

// FailWith makes every subsequent Generate call return err. Passing nil
// restores normal operation.
func (p *Provider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Generate returns the next scripted response, cycling through the queue.
func (p *Provider) Generate(_ context.Context, _, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	if len(p.responses) == 0 {
		return defaultResponse, nil
	}
	resp := p.responses[p.idx%len(p.responses)]
	p.idx++
	return resp, nil
}
