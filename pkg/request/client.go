package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"wikijournalbot/pkg/cache"
	"wikijournalbot/pkg/tracker"
	"wikijournalbot/pkg/version"
)

var (
	defaultUserAgent = version.UserAgent("WikiJournalBot", "https://en.wikiversity.org/wiki/User:WikiJournalBot")

	// ErrClosed is returned for requests issued after Close.
	ErrClosed = errors.New("request client closed")
)

// StatusError is returned for non-retryable HTTP error responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: status %d", e.Code)
}

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	HTTPClient *http.Client // e.g. an OAuth-signing client
	UserAgent  string
	Retries    int           // Attempts for idempotent requests (GET)
	BaseDelay  time.Duration // First retry delay, doubled per attempt
	Gap        time.Duration // Pause after each request to the same provider
	Backoff    *ProviderBackoff
	Logger     *slog.Logger
}

// Client handles HTTP requests with per-provider queuing, caching, and tracking.
type Client struct {
	httpClient *http.Client
	cache      cache.Cacher
	tracker    *tracker.Tracker
	backoff    *ProviderBackoff
	logger     *slog.Logger
	userAgent  string
	retries    int
	baseDelay  time.Duration
	gap        time.Duration

	// Queues per provider (domain)
	queues map[string]chan job
	closed bool
	mu     sync.Mutex // Protects queues and closed
}

// job represents a queued request.
type job struct {
	req      *http.Request
	headers  map[string]string
	cacheKey string
	retry    bool
	respChan chan jobResult
}

type jobResult struct {
	body []byte
	err  error
}

// New creates a new Client.
func New(c cache.Cacher, t *tracker.Tracker, opts Options) *Client {
	if c == nil {
		c = cache.Nop{}
	}
	if t == nil {
		t = tracker.New()
	}
	cl := &Client{
		httpClient: opts.HTTPClient,
		cache:      c,
		tracker:    t,
		backoff:    opts.Backoff,
		logger:     opts.Logger,
		userAgent:  opts.UserAgent,
		retries:    opts.Retries,
		baseDelay:  opts.BaseDelay,
		gap:        opts.Gap,
		queues:     make(map[string]chan job),
	}
	if cl.httpClient == nil {
		cl.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cl.logger == nil {
		cl.logger = slog.Default()
	}
	if cl.userAgent == "" {
		cl.userAgent = defaultUserAgent
	}
	if cl.retries <= 0 {
		cl.retries = 3
	}
	if cl.baseDelay <= 0 {
		cl.baseDelay = 500 * time.Millisecond
	}
	if cl.gap < 0 {
		cl.gap = 0
	}
	return cl
}

// Penalize puts the provider serving u into cooldown, as a 429 would. Callers
// use it for refusals that arrive with status 200, such as the action API's
// maxlag error. It is a no-op without a backoff.
func (c *Client) Penalize(u string, hint time.Duration) {
	if c.backoff == nil {
		return
	}
	provider, err := providerOf(u)
	if err != nil {
		return
	}
	c.backoff.Penalize(provider, hint)
}

// Get performs a GET request with queuing and caching if key is provided.
func (c *Client) Get(ctx context.Context, u, cacheKey string) ([]byte, error) {
	return c.GetWithHeaders(ctx, u, nil, cacheKey)
}

// GetWithHeaders performs a GET request with custom headers and optional caching.
// GETs are retried with exponential backoff on transport errors, 429 and 5xx.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string, cacheKey string) ([]byte, error) {
	provider, err := providerOf(u)
	if err != nil {
		return nil, err
	}

	// 1. Check Cache (Only if key is provided)
	if cacheKey != "" {
		if val, hit := c.cache.GetCache(ctx, cacheKey); hit {
			c.tracker.TrackCacheHit(provider)
			c.logger.Debug("Cache Hit", "provider", provider, "key", cacheKey)
			return val, nil
		}
		c.tracker.TrackCacheMiss(provider)
		c.logger.Debug("Cache Miss", "provider", provider, "key", cacheKey)
	}

	// 2. Enqueue Request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.enqueue(ctx, provider, job{req: req, headers: headers, cacheKey: cacheKey, retry: true})
}

// PostForm performs a single-attempt form POST with queuing.
// POSTs are never retried: a write that timed out may still have been applied.
func (c *Client) PostForm(ctx context.Context, u string, form url.Values) ([]byte, error) {
	return c.PostWithHeaders(ctx, u, []byte(form.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
}

// PostWithHeaders performs a single-attempt POST request with custom headers and queuing.
func (c *Client) PostWithHeaders(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error) {
	provider, err := providerOf(u)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.enqueue(ctx, provider, job{req: req, headers: headers})
}

// Close stops the provider workers. Requests issued afterwards fail with ErrClosed.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, q := range c.queues {
		close(q)
	}
}

func providerOf(u string) (string, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	return normalizeProvider(parsedURL.Hostname()), nil
}

// normalizeProvider maps a host to the queue that serializes its requests.
// Wikidata's hosts share one queue; the wiki families share another.
func normalizeProvider(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if strings.HasSuffix(host, ".wikidata.org") || host == "wikidata.org" {
		return "wikidata"
	}
	for _, family := range []string{"wikiversity.org", "wikipedia.org", "wikimedia.org"} {
		if strings.HasSuffix(host, "."+family) || host == family {
			return "mediawiki"
		}
	}
	return host
}

func (c *Client) enqueue(ctx context.Context, provider string, j job) ([]byte, error) {
	j.respChan = make(chan jobResult, 1)

	if err := c.dispatch(provider, j); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-j.respChan:
		return res.body, res.err
	}
}

// dispatch sends the job to the provider's queue, creating the queue/worker if needed.
func (c *Client) dispatch(provider string, j job) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	q, ok := c.queues[provider]
	if !ok {
		q = make(chan job, 100)
		c.queues[provider] = q
		go c.worker(provider, q)
	}

	// Blocks if the queue is full, effectively throttling the caller
	select {
	case q <- j:
	case <-j.req.Context().Done():
		j.respChan <- jobResult{err: j.req.Context().Err()}
	}
	return nil
}

// worker processes requests for a specific provider sequentially.
func (c *Client) worker(provider string, q <-chan job) {
	for j := range q {
		if j.req.Context().Err() != nil {
			c.logger.Warn("Job dropped from queue (context expired)", "provider", provider, "error", j.req.Context().Err())
			j.respChan <- jobResult{err: j.req.Context().Err()}
			continue
		}

		// Apply User-Agent (Default if not provided)
		uaMatch := false
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				uaMatch = true
			}
		}
		if !uaMatch {
			j.req.Header.Set("User-Agent", c.userAgent)
		}

		attempts := 1
		if j.retry {
			attempts = c.retries
		}
		body, err := c.executeWithBackoff(provider, j.req, attempts)

		if err == nil {
			c.tracker.TrackAPISuccess(provider)
			if j.cacheKey != "" {
				if err := c.cache.SetCache(context.Background(), j.cacheKey, body); err != nil {
					c.logger.Error("Failed to cache response", "url", j.req.URL, "error", err)
				}
			}
		} else {
			c.tracker.TrackAPIFailure(provider)
		}

		j.respChan <- jobResult{body: body, err: err}

		if c.gap > 0 {
			time.Sleep(c.gap)
		}
	}
}

// executeWithBackoff attempts the request up to maxAttempts times with exponential
// backoff on retryable errors.
func (c *Client) executeWithBackoff(provider string, req *http.Request, maxAttempts int) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if c.backoff != nil {
			if err := c.backoff.Wait(req.Context(), provider); err != nil {
				return nil, err
			}
		}
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}

		// Rewind the body for retried requests
		if attempt > 0 && req.GetBody != nil {
			b, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to rewind body: %w", err)
			}
			req.Body = b
		}

		c.logger.Debug("Network Request", "method", req.Method, "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)

		if err != nil {
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			c.logger.Warn("Request failed", "url", redact(req.URL), "attempt", attempt+1, "error", err)
			lastErr = err
			if attempt+1 >= maxAttempts {
				break
			}
			if err := c.sleep(req.Context(), c.delay(attempt, 0)); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			c.logger.Warn("API Backoff", "status", resp.StatusCode, "url", redact(req.URL), "attempt", attempt+1)
			if c.backoff != nil {
				c.backoff.Penalize(provider, retryAfter)
			}
			lastErr = &StatusError{Code: resp.StatusCode}
			if attempt+1 >= maxAttempts {
				break
			}
			if err := c.sleep(req.Context(), c.delay(attempt, retryAfter)); err != nil {
				return nil, err
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}

		if resp.StatusCode >= 400 {
			return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 512)}
		}

		if c.backoff != nil {
			c.backoff.RecordSuccess(provider)
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) delay(attempt int, retryAfter time.Duration) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
	if retryAfter > d {
		return retryAfter
	}
	return d
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// redact drops the query string, which carries whole SPARQL queries.
func redact(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.Path
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
