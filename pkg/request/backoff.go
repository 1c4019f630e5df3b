package request

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// ProviderBackoff holds a cooldown per host after 429, 5xx or a maxlag refusal.
// Unlike the per-request retry delay it outlives a single request, so the
// next page's API call waits too.
type ProviderBackoff struct {
	mu    sync.Mutex
	hosts map[string]*cooldown
	floor time.Duration
	ceil  time.Duration
	now   func() time.Time
}

type cooldown struct {
	strikes int
	step    time.Duration
	until   time.Time
}

// Cooldown is a point-in-time view of one host's penalty.
type Cooldown struct {
	Strikes int
	Until   time.Time
}

// NewProviderBackoff returns a backoff whose first penalty is floor and which
// never waits longer than ceil.
func NewProviderBackoff(floor, ceil time.Duration) *ProviderBackoff {
	if ceil < floor {
		ceil = floor
	}
	return &ProviderBackoff{
		hosts: make(map[string]*cooldown),
		floor: floor,
		ceil:  ceil,
		now:   time.Now,
	}
}

// Wait blocks until host is out of its cooldown or ctx is done.
func (b *ProviderBackoff) Wait(ctx context.Context, host string) error {
	until := b.Snapshot(host).Until
	if until.IsZero() {
		return nil
	}
	d := until.Sub(b.now())
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Penalize doubles the host's penalty, starting from floor. A server hint
// such as Retry-After or a reported replication lag wins when it is longer
// than the computed step.
func (b *ProviderBackoff) Penalize(host string, hint time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cd := b.hosts[host]
	if cd == nil {
		cd = &cooldown{}
		b.hosts[host] = cd
	}
	cd.strikes++
	switch {
	case cd.step == 0:
		cd.step = b.floor
	case cd.step < b.ceil:
		cd.step = min(cd.step*2, b.ceil)
	}

	wait := cd.step + time.Duration(rand.Int64N(int64(cd.step)/10+1))
	if hint > wait {
		wait = min(hint, b.ceil)
	}
	cd.until = b.now().Add(wait)
}

// RecordSuccess takes one strike off the host. The cooldown is lifted once
// no strikes remain.
func (b *ProviderBackoff) RecordSuccess(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cd := b.hosts[host]
	if cd == nil {
		return
	}
	cd.strikes--
	cd.step /= 2
	if cd.strikes <= 0 {
		delete(b.hosts, host)
	}
}

// Snapshot reports the host's current strikes and cooldown end.
func (b *ProviderBackoff) Snapshot(host string) Cooldown {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cd := b.hosts[host]; cd != nil {
		return Cooldown{Strikes: cd.strikes, Until: cd.until}
	}
	return Cooldown{}
}
