package llm

import (
	"context"
	"errors"
)

// ErrProviderDisabled is returned by every Noop completion. Dry runs wire
// the noop provider so the pipeline runs end to end without model spend;
// the failure surfaces as a per-item model error, never as an exclusion.
var ErrProviderDisabled = errors.New("llm provider disabled")

// Noop is the provider used when no model backend is configured.
type Noop struct{}

// NewNoop creates a Noop provider.
func NewNoop() *Noop { return &Noop{} }

// Complete implements Provider. It always fails with ErrProviderDisabled.
func (*Noop) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return "", ErrProviderDisabled
}

// Name implements Provider.
func (*Noop) Name() string { return ProviderNoop }
