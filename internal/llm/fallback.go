package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// FallbackProvider tries its providers in order and returns the first reply.
// A cancelled or expired context stops the chain instead of burning through
// the remaining backends.
type FallbackProvider struct {
	providers []Provider
	logger    *slog.Logger
}

// NewFallbackProvider creates a provider that tries each provider in order.
// At least one provider is required.
func NewFallbackProvider(providers []Provider, logger *slog.Logger) *FallbackProvider {
	if len(providers) == 0 {
		panic("FallbackProvider requires at least one provider")
	}
	return &FallbackProvider{providers: providers, logger: logger}
}

// SendMessage tries each provider in order, returning the first successful response.
func (f *FallbackProvider) SendMessage(ctx context.Context, req *Request) (*Response, error) {
	var errs []error
	for i, p := range f.providers {
		resp, err := p.SendMessage(ctx, req)
		if err == nil {
			if i > 0 {
				f.logger.InfoContext(ctx, "provider fallback succeeded",
					slog.String("provider", p.Name()),
					slog.Int("attempt", i+1),
				)
			}
			return resp, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
		f.logger.WarnContext(ctx, "provider failed, trying next",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()),
			slog.Int("remaining", len(f.providers)-i-1),
		)
	}
	return nil, fmt.Errorf("all %d providers failed: %w", len(errs), errors.Join(errs...))
}

// Name returns a composite name such as "openai+gemini".
func (f *FallbackProvider) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}
