package config

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"wikijournalbot/pkg/store"
)

// Provider bridges the static Config and persistent operator overrides.
// An override, when present and well-formed, wins over the file value.
type Provider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new Provider. A nil store yields the file values.
func NewProvider(base *Config, st store.StateStore) *Provider {
	return &Provider{
		base:  base,
		store: st,
	}
}

// Paused reports whether the operator suspended the bot.
func (p *Provider) Paused(ctx context.Context) bool {
	return p.getBool(ctx, KeyPaused, false)
}

// DryRun is on when the file or --dry-run enables it. An override can turn
// it on but never off.
func (p *Provider) DryRun(ctx context.Context) bool {
	if p.base.Bot.DryRun {
		return true
	}
	return p.getBool(ctx, KeyDryRun, false)
}

func (p *Provider) Throttle(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyThrottle, p.base.Bot.Throttle.Std())
}

func (p *Provider) Summary(ctx context.Context) string {
	return p.getString(ctx, KeySummary, p.base.Bot.Summary)
}

// ValidateOverride checks a key and value before they are persisted.
func ValidateOverride(key, val string) error {
	if !slices.Contains(OverrideKeys, key) {
		return fmt.Errorf("unknown override %q, expected one of %v", key, OverrideKeys)
	}
	switch key {
	case KeyPaused, KeyDryRun:
		if _, err := strconv.ParseBool(val); err != nil {
			return fmt.Errorf("%s: expected a boolean, got %q", key, val)
		}
	case KeyThrottle:
		if _, err := ParseDuration(val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// --- Helpers ---

func (p *Provider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *Provider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				return b
			}
		}
	}
	return fallback
}

func (p *Provider) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if dur, err := ParseDuration(val); err == nil {
				return dur
			}
		}
	}
	return fallback
}
