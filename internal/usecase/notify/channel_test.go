package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rfp-radar/internal/infra/notifier"
)

// mockChannel is a test implementation of the Channel interface
type mockChannel struct {
	name        string
	enabled     bool
	audience    Audience
	sendError   error
	sendDelay   time.Duration
	panicOnSend bool
	sendCalled  int
	lastDigest  *notifier.Digest
	mu          sync.Mutex
}

func (m *mockChannel) Name() string {
	return m.name
}

func (m *mockChannel) IsEnabled() bool {
	return m.enabled
}

func (m *mockChannel) Audience() Audience {
	// Zero value means main so most tests can skip the field
	if m.audience == "" {
		return AudienceMain
	}
	return m.audience
}

func (m *mockChannel) Send(ctx context.Context, digest *notifier.Digest) error {
	m.mu.Lock()
	m.sendCalled++
	m.lastDigest = digest
	shouldPanic := m.panicOnSend
	m.mu.Unlock()

	if shouldPanic {
		panic("mock panic in Send()")
	}

	if !m.enabled {
		return ErrChannelDisabled
	}
	if digest == nil {
		return ErrInvalidDigest
	}

	if m.sendDelay > 0 {
		select {
		case <-time.After(m.sendDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	err := m.sendError
	m.mu.Unlock()
	return err
}

func (m *mockChannel) getSendCalledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendCalled
}

func (m *mockChannel) getLastDigest() *notifier.Digest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastDigest
}

func (m *mockChannel) resetSendCalled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendCalled = 0
}

func (m *mockChannel) setPanicOnSend(panic bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicOnSend = panic
}

func (m *mockChannel) setSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendError = err
}

// sampleDigest returns a digest with two new opportunities and a run log line.
func sampleDigest() *notifier.Digest {
	return &notifier.Digest{
		GeneratedAt:   time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
		Duration:      83 * time.Second,
		Sites:         4,
		SitesFailed:   1,
		ItemsProposed: 12,
		NewCount:      2,
		Excluded:      5,
		Failed:        1,
		Items: []notifier.DigestItem{
			{
				Title:   "Telehealth Expansion RFP",
				URL:     "https://procure.example.gov/rfp/2041",
				Site:    "State Procurement",
				Summary: "Statewide telehealth build-out.",
			},
			{
				Title:   "Medicaid Claims Audit Services",
				URL:     "https://county.example.gov/bids/77",
				Site:    "County Portal",
				Summary: "Claims audit for plan year 2027.",
			},
		},
		RunLog: []string{`level=INFO msg="run started"`},
	}
}

// TestChannelInterface verifies that mockChannel implements Channel interface
func TestChannelInterface(t *testing.T) {
	var _ Channel = (*mockChannel)(nil)
}

// TestMockChannel_Name tests the Name method
func TestMockChannel_Name(t *testing.T) {
	ch := &mockChannel{name: "test-channel"}
	if got := ch.Name(); got != "test-channel" {
		t.Errorf("Name() = %v, want %v", got, "test-channel")
	}
}

// TestMockChannel_IsEnabled tests the IsEnabled method
func TestMockChannel_IsEnabled(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		want    bool
	}{
		{"enabled channel", true, true},
		{"disabled channel", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &mockChannel{enabled: tt.enabled}
			if got := ch.IsEnabled(); got != tt.want {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestMockChannel_Audience tests the Audience method and its zero-value default
func TestMockChannel_Audience(t *testing.T) {
	tests := []struct {
		name     string
		audience Audience
		want     Audience
	}{
		{"defaults to main", "", AudienceMain},
		{"explicit main", AudienceMain, AudienceMain},
		{"explicit debug", AudienceDebug, AudienceDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &mockChannel{audience: tt.audience}
			if got := ch.Audience(); got != tt.want {
				t.Errorf("Audience() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestMockChannel_Send tests the Send method with various scenarios
func TestMockChannel_Send(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		enabled   bool
		digest    *notifier.Digest
		sendError error
		wantErr   error
	}{
		{
			name:    "successful send",
			enabled: true,
			digest:  sampleDigest(),
			wantErr: nil,
		},
		{
			name:    "disabled channel",
			enabled: false,
			digest:  sampleDigest(),
			wantErr: ErrChannelDisabled,
		},
		{
			name:    "nil digest",
			enabled: true,
			digest:  nil,
			wantErr: ErrInvalidDigest,
		},
		{
			name:      "send error",
			enabled:   true,
			digest:    sampleDigest(),
			sendError: errors.New("network error"),
			wantErr:   errors.New("network error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &mockChannel{
				enabled:   tt.enabled,
				sendError: tt.sendError,
			}

			err := ch.Send(ctx, tt.digest)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Send() error = %v, want nil", err)
				}
			} else {
				if err == nil {
					t.Errorf("Send() error = nil, want %v", tt.wantErr)
				} else if !errors.Is(err, tt.wantErr) && err.Error() != tt.wantErr.Error() {
					t.Errorf("Send() error = %v, want %v", err, tt.wantErr)
				}
			}
		})
	}
}
