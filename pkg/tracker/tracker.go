package tracker

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"wikijournalbot/pkg/model"
)

// Tracker counts API traffic per host and page outcomes for one run.
// It is safe for concurrent use by the request queues and the runner.
type Tracker struct {
	mu    sync.RWMutex
	hosts map[string]*counters
	pages map[model.PageStatus]int
}

type counters struct {
	hits, misses, ok, failed, empty atomic.Int64
}

// Usage is a copy of one host's counters.
type Usage struct {
	CacheHits   int64
	CacheMisses int64
	Success     int64
	Failures    int64
	Empty       int64 // successful SPARQL queries with no rows
}

// HitRate is the share of lookups served from cache, or 0 without lookups.
func (u Usage) HitRate() float64 {
	total := u.CacheHits + u.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(u.CacheHits) / float64(total)
}

func New() *Tracker {
	return &Tracker{
		hosts: make(map[string]*counters),
		pages: make(map[model.PageStatus]int),
	}
}

func (t *Tracker) host(name string) *counters {
	t.mu.RLock()
	c := t.hosts[name]
	t.mu.RUnlock()
	if c != nil {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c = t.hosts[name]; c == nil {
		c = &counters{}
		t.hosts[name] = c
	}
	return c
}

func (t *Tracker) TrackCacheHit(host string) { t.host(host).hits.Add(1) }
func (t *Tracker) TrackCacheMiss(host string) { t.host(host).misses.Add(1) }
func (t *Tracker) TrackAPISuccess(host string) { t.host(host).ok.Add(1) }
func (t *Tracker) TrackAPIFailure(host string) { t.host(host).failed.Add(1) }
func (t *Tracker) TrackAPIZero(host string) { t.host(host).empty.Add(1) }

// TrackPage counts a page reaching a terminal status.
func (t *Tracker) TrackPage(status model.PageStatus) {
	t.mu.Lock()
	t.pages[status]++
	t.mu.Unlock()
}

// Pages returns a copy of the page outcome counters.
func (t *Tracker) Pages() map[model.PageStatus]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.pages)
}

// Hosts lists the tracked hosts in sorted order.
func (t *Tracker) Hosts() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.hosts))
}

// Snapshot copies the counters of every tracked host.
func (t *Tracker) Snapshot() map[string]Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Usage, len(t.hosts))
	for name, c := range t.hosts {
		out[name] = Usage{
			CacheHits:   c.hits.Load(),
			CacheMisses: c.misses.Load(),
			Success:     c.ok.Load(),
			Failures:    c.failed.Load(),
			Empty:       c.empty.Load(),
		}
	}
	return out
}
