package config

import (
	"context"
	"testing"
	"time"
)

// MockStateStore implements store.StateStore for testing.
type MockStateStore struct {
	data map[string]string
}

func NewMockStateStore() *MockStateStore {
	return &MockStateStore{data: make(map[string]string)}
}

func (m *MockStateStore) GetState(ctx context.Context, key string) (string, bool) {
	val, ok := m.data[key]
	return val, ok
}

func (m *MockStateStore) SetState(ctx context.Context, key, val string) error {
	m.data[key] = val
	return nil
}

func (m *MockStateStore) DeleteState(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestProvider(t *testing.T) {
	ctx := context.Background()
	base := DefaultConfig()
	base.Bot.Throttle = Duration(2 * time.Second)
	base.Bot.Summary = "From file"

	st := NewMockStateStore()
	p := NewProvider(base, st)

	// Defaults from file
	if p.Paused(ctx) || p.DryRun(ctx) {
		t.Error("expected not paused and not dry run")
	}
	if got := p.Throttle(ctx); got != 2*time.Second {
		t.Errorf("Throttle = %v, want 2s", got)
	}
	if got := p.Summary(ctx); got != "From file" {
		t.Errorf("Summary = %q", got)
	}

	// Overrides
	st.data[KeyPaused] = "true"
	st.data[KeyDryRun] = "1"
	st.data[KeyThrottle] = "5m"
	st.data[KeySummary] = "From state"
	if !p.Paused(ctx) || !p.DryRun(ctx) {
		t.Error("expected overrides to apply")
	}
	if got := p.Throttle(ctx); got != 5*time.Minute {
		t.Errorf("Throttle = %v, want 5m", got)
	}
	if got := p.Summary(ctx); got != "From state" {
		t.Errorf("Summary = %q", got)
	}

	// Malformed values fall back
	st.data[KeyThrottle] = "soon"
	st.data[KeyDryRun] = "maybe"
	if got := p.Throttle(ctx); got != 2*time.Second {
		t.Errorf("Throttle = %v, want fallback 2s", got)
	}
	if p.DryRun(ctx) {
		t.Error("malformed dry run override should fall back to file value")
	}

	// A stored false cannot lift a configured or flagged dry run
	st.data[KeyDryRun] = "false"
	flagged := *base
	flagged.Bot.DryRun = true
	if !NewProvider(&flagged, st).DryRun(ctx) {
		t.Error("dry_run=false override must not win over --dry-run")
	}

	if NewProvider(base, nil).Paused(ctx) {
		t.Error("nil store must not pause")
	}
}

func TestValidateOverride(t *testing.T) {
	tests := []struct {
		key, val string
		wantErr  bool
	}{
		{KeyPaused, "true", false},
		{KeyPaused, "yes", true},
		{KeyDryRun, "false", false},
		{KeyThrottle, "1d", false},
		{KeyThrottle, "later", true},
		{KeySummary, "anything", false},
		{"bot.name", "Other", true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			if err := ValidateOverride(tt.key, tt.val); (err != nil) != tt.wantErr {
				t.Errorf("ValidateOverride() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
