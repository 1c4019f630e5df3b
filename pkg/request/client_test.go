package request

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wikijournalbot/pkg/tracker"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) GetCache(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memCache) SetCache(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	return nil
}

func newTestClient(c *memCache) *Client {
	return New(c, tracker.New(), Options{BaseDelay: time.Millisecond, Gap: -1})
}

func TestGet_Sequential(t *testing.T) {
	var conc int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&conc, 1)
		defer atomic.AddInt32(&conc, -1)
		if current > 1 {
			t.Errorf("Concurrency detected! Expected sequential.")
		}
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer svr.Close()

	client := newTestClient(newMemCache())
	defer client.Close()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Get(context.Background(), svr.URL, ""); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestGet_Retry(t *testing.T) {
	var attempts int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("success"))
	}))
	defer svr.Close()

	client := newTestClient(newMemCache())
	defer client.Close()

	body, err := client.Get(context.Background(), svr.URL, "")
	if err != nil {
		t.Fatalf("Expected success after retry, got error: %v", err)
	}
	if string(body) != "success" {
		t.Errorf("Expected 'success', got '%s'", string(body))
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestGet_CacheHit(t *testing.T) {
	var calls int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer svr.Close()

	mc := newMemCache()
	tr := tracker.New()
	client := New(mc, tr, Options{BaseDelay: time.Millisecond, Gap: -1})
	defer client.Close()

	for i := 0; i < 2; i++ {
		body, err := client.Get(context.Background(), svr.URL, "key")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(body) != "fresh" {
			t.Errorf("body = %q", body)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 network call, got %d", calls)
	}

	u, _ := url.Parse(svr.URL)
	stats := tr.Snapshot()[normalizeProvider(u.Hostname())]
	if stats.CacheHits != 1 || stats.CacheMisses != 1 || stats.Success != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestPost_NoRetry(t *testing.T) {
	var attempts int32
	var gotType, gotUA string
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		gotType = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer svr.Close()

	client := newTestClient(newMemCache())
	defer client.Close()

	_, err := client.PostForm(context.Background(), svr.URL, url.Values{"action": {"edit"}})
	if err == nil {
		t.Fatal("expected error")
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Errorf("expected StatusError 503, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("POST must not be retried, got %d attempts", attempts)
	}
	if gotType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotUA != defaultUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestGet_ClientErrorCarriesBody(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("MalformedQueryException"))
	}))
	defer svr.Close()

	client := newTestClient(newMemCache())
	defer client.Close()

	_, err := client.Get(context.Background(), svr.URL, "")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusBadRequest || se.Body != "MalformedQueryException" {
		t.Errorf("unexpected StatusError: %+v", se)
	}
}

func TestClose(t *testing.T) {
	client := newTestClient(newMemCache())
	client.Close()
	client.Close() // idempotent

	_, err := client.Get(context.Background(), "http://127.0.0.1:1/", "")
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("5"); got != 5*time.Second {
		t.Errorf("parseRetryAfter(5) = %v", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Errorf("parseRetryAfter(soon) = %v", got)
	}
}

func TestPenalize_CoolsDownProvider(t *testing.T) {
	b := NewProviderBackoff(time.Minute, time.Hour)
	client := New(nil, nil, Options{Backoff: b, Gap: -1})
	defer client.Close()

	client.Penalize("https://en.wikiversity.org/w/api.php", 5*time.Minute)
	cd := b.Snapshot("mediawiki")
	if cd.Strikes != 1 {
		t.Fatalf("strikes = %d, want 1", cd.Strikes)
	}
	if wait := time.Until(cd.Until); wait < 4*time.Minute {
		t.Errorf("cooldown %v ignores the hint", wait)
	}
	if b.Snapshot("wikidata").Strikes != 0 {
		t.Error("penalty leaked to another provider")
	}

	// Without a backoff the call is a no-op
	plain := New(nil, nil, Options{Gap: -1})
	defer plain.Close()
	plain.Penalize("https://en.wikiversity.org/w/api.php", time.Second)
}
