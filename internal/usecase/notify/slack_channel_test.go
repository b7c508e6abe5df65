package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"rfp-radar/internal/infra/notifier"
)

// mockSlackNotifier records NotifyDigest calls without touching the network.
type mockSlackNotifier struct {
	notifyCalled   int
	returnErr      error
	capturedCtx    context.Context
	capturedDigest *notifier.Digest
}

func (m *mockSlackNotifier) NotifyDigest(ctx context.Context, digest *notifier.Digest) error {
	m.notifyCalled++
	m.capturedCtx = ctx
	m.capturedDigest = digest
	return m.returnErr
}

func newTestSlackChannel(enabled bool, mockNotifier *mockSlackNotifier) *SlackChannel {
	return &SlackChannel{
		notifier: mockNotifier,
		enabled:  enabled,
	}
}

func slackConfig(enabled bool) notifier.SlackConfig {
	return notifier.SlackConfig{
		Enabled:    enabled,
		WebhookURL: "https://hooks.slack.com/services/test/test/test",
		Timeout:    10 * time.Second,
	}
}

func TestNewSlackChannel(t *testing.T) {
	t.Run("enabled config", func(t *testing.T) {
		ch := NewSlackChannel(slackConfig(true))

		if ch.Name() != "slack" {
			t.Errorf("Name() = %v, want slack", ch.Name())
		}
		if !ch.IsEnabled() {
			t.Error("IsEnabled() = false, want true")
		}
		if ch.Audience() != AudienceMain {
			t.Errorf("Audience() = %v, want %v", ch.Audience(), AudienceMain)
		}
		if ch.notifier == nil {
			t.Error("notifier is nil, want SlackNotifier instance")
		}
	})

	t.Run("disabled config", func(t *testing.T) {
		ch := NewSlackChannel(notifier.SlackConfig{Enabled: false, Timeout: 10 * time.Second})

		if ch.IsEnabled() {
			t.Error("IsEnabled() = true, want false")
		}
		// 無効チャネルは notifier に到達する前に弾く
		if err := ch.Send(context.Background(), sampleDigest()); !errors.Is(err, ErrChannelDisabled) {
			t.Errorf("Send() error = %v, want ErrChannelDisabled", err)
		}
	})
}

func TestSlackChannel_Send_DelegatesToNotifier(t *testing.T) {
	ctx := context.Background()
	digest := sampleDigest()
	mockNotifier := &mockSlackNotifier{}
	ch := newTestSlackChannel(true, mockNotifier)

	if err := ch.Send(ctx, digest); err != nil {
		t.Errorf("Send() error = %v, want nil", err)
	}
	if mockNotifier.notifyCalled != 1 {
		t.Errorf("NotifyDigest() called %d times, want 1", mockNotifier.notifyCalled)
	}
	if mockNotifier.capturedDigest != digest {
		t.Errorf("NotifyDigest() called with digest = %v, want %v", mockNotifier.capturedDigest, digest)
	}
	if mockNotifier.capturedCtx != ctx {
		t.Errorf("NotifyDigest() called with different context")
	}
}

func TestSlackChannel_Send_PropagatesErrors(t *testing.T) {
	tests := []struct {
		name          string
		enabled       bool
		digest        *notifier.Digest
		notifierError error
		wantErr       error
		wantCalled    int
	}{
		{"disabled channel", false, sampleDigest(), nil, ErrChannelDisabled, 0},
		{"nil digest", true, nil, nil, ErrInvalidDigest, 0},
		{"network error propagated", true, sampleDigest(), errors.New("network error: connection refused"), errors.New("network error: connection refused"), 1},
		{"rate limit error propagated", true, sampleDigest(), errors.New("Slack rate limit exceeded (retry after 5s)"), errors.New("Slack rate limit exceeded (retry after 5s)"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockNotifier := &mockSlackNotifier{returnErr: tt.notifierError}
			ch := newTestSlackChannel(tt.enabled, mockNotifier)

			err := ch.Send(context.Background(), tt.digest)

			if err == nil {
				t.Errorf("Send() error = nil, want %v", tt.wantErr)
			} else if !errors.Is(err, tt.wantErr) && err.Error() != tt.wantErr.Error() {
				t.Errorf("Send() error = %v, want %v", err, tt.wantErr)
			}
			if mockNotifier.notifyCalled != tt.wantCalled {
				t.Errorf("NotifyDigest() called %d times, want %d", mockNotifier.notifyCalled, tt.wantCalled)
			}
		})
	}
}

// TestSlackChannel_Send_RespectsContext checks that cancellation is left to
// the notifier: the channel passes the context through instead of checking
// it itself.
func TestSlackChannel_Send_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mockNotifier := &mockSlackNotifier{returnErr: context.Canceled}
	ch := newTestSlackChannel(true, mockNotifier)

	if err := ch.Send(ctx, sampleDigest()); err == nil {
		t.Error("Send() error = nil, want context.Canceled")
	}
	if mockNotifier.capturedCtx != ctx {
		t.Error("Send() did not pass context to notifier")
	}
	if mockNotifier.notifyCalled != 1 {
		t.Errorf("NotifyDigest() called %d times, want 1", mockNotifier.notifyCalled)
	}
}

func TestSlackChannel_Send_WithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()

	mockNotifier := &mockSlackNotifier{returnErr: context.DeadlineExceeded}
	ch := newTestSlackChannel(true, mockNotifier)

	time.Sleep(5 * time.Millisecond) // let the deadline pass

	if err := ch.Send(ctx, sampleDigest()); err == nil {
		t.Error("Send() error = nil, want context.DeadlineExceeded")
	}
	if mockNotifier.notifyCalled != 1 {
		t.Errorf("NotifyDigest() called %d times, want 1", mockNotifier.notifyCalled)
	}
}
