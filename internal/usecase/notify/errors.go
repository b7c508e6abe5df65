package notify

import "errors"

// Sentinel errors returned by delivery channels and the dispatch service.
var (
	// ErrChannelDisabled is returned when Send is called on a channel that is
	// not enabled in the configuration.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrInvalidDigest is returned for a nil digest. Channels never
	// synthesize an empty digest on behalf of the caller.
	ErrInvalidDigest = errors.New("invalid digest")

	// ErrNotificationDropped is returned when no worker slot frees up in time.
	// Deliveries are best-effort, so callers log this rather than retry.
	ErrNotificationDropped = errors.New("notification dropped due to pool saturation")

	// ErrCircuitBreakerOpen is returned while a channel's breaker is open.
	// The breaker closes again on its own after the cooldown.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open for this channel")
)
