package tts

import (
	"context"
	"fmt"
	"log/slog"
)

// Chain implements Provider by trying multiple providers in order.
// The first successful provider wins; if all fail, returns an aggregate error.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a provider chain that tries providers in order.
// At least one provider is required.
func NewChain(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Chain{
		providers: providers,
		logger:    logger.With("component", "tts.chain"),
	}, nil
}

// Name implements Provider.
func (c *Chain) Name() string { return "chain" }

// Voices returns the voices of every provider in chain order.
func (c *Chain) Voices() []Voice {
	seen := make(map[string]bool)
	var voices []Voice
	for _, p := range c.providers {
		for _, v := range p.Voices() {
			if seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			voices = append(voices, v)
		}
	}
	return voices
}

// Synthesize tries each provider until one succeeds. A voice that a
// provider does not offer is replaced by that provider's default.
func (c *Chain) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	var errs []error

	for i, p := range c.providers {
		attempt := req
		if !hasVoice(p, req.VoiceID) {
			attempt.VoiceID = ""
		}

		result, err := p.Synthesize(ctx, attempt)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider succeeded",
					"provider", p.Name(),
					"chars", len(req.Text),
				)
			}
			return result, nil
		}

		errs = append(errs, err)
		c.logger.Warn("provider failed, trying next",
			"provider", p.Name(),
			"error", err,
		)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, &ChainError{Errors: errs}
}

// Close closes all providers.
func (c *Chain) Close() error {
	var lastErr error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Providers returns the list of providers in the chain.
func (c *Chain) Providers() []Provider {
	return c.providers
}

func hasVoice(p Provider, id string) bool {
	if id == "" {
		return true
	}
	for _, v := range p.Voices() {
		if v.ID == id {
			return true
		}
	}
	return false
}

// ChainError aggregates errors from all providers in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "tts chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("tts chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("tts chain: all %d providers failed, last error: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

var _ Provider = (*Chain)(nil)
