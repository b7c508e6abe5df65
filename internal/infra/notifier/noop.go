package notifier

import "context"

// NoOpNotifier discards every digest. Wiring it in when a channel is
// disabled keeps callers free of nil checks.
type NoOpNotifier struct{}

// NewNoOpNotifier returns a notifier that delivers nothing.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// NotifyDigest returns nil without doing anything.
func (n *NoOpNotifier) NotifyDigest(ctx context.Context, digest *Digest) error {
	return nil
}
