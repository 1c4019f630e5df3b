package mediawiki

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wikijournalbot/pkg/model"
)

// Requester is the subset of the request client used for action API calls.
type Requester interface {
	GetWithHeaders(ctx context.Context, u string, headers map[string]string, cacheKey string) ([]byte, error)
	PostForm(ctx context.Context, u string, form url.Values) ([]byte, error)
	Penalize(u string, hint time.Duration)
}

const defaultLagRetries = 3

// Client handles MediaWiki action API interactions.
type Client struct {
	request     Requester
	APIEndpoint string
	Logger      *slog.Logger

	// MaxLag is sent as the maxlag parameter in seconds; 0 omits it. A
	// refused call cools the wiki down and is retried up to LagRetries times.
	MaxLag     int
	LagRetries int
}

// NewClient creates a new MediaWiki client for the given api.php endpoint.
func NewClient(r Requester, endpoint string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{request: r, APIEndpoint: endpoint, Logger: logger}
}

// EditRequest is one page replacement.
type EditRequest struct {
	Title   string
	Text    string
	Summary string
}

// EditResult is the edit block of a successful response.
type EditResult struct {
	Result   string  `json:"result"`
	PageID   int64   `json:"pageid"`
	Title    string  `json:"title"`
	OldRevID int64   `json:"oldrevid"`
	NewRevID int64   `json:"newrevid"`
	NoChange *string `json:"nochange,omitempty"`
}

// PageContent fetches the current wikitext of the main slot.
func (c *Client) PageContent(ctx context.Context, title string) (*model.PageDocument, error) {
	body, err := c.get(ctx, url.Values{
		"action":  {"query"},
		"prop":    {"revisions"},
		"rvprop":  {"content"},
		"rvslots": {"main"},
		"titles":  {title},
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		apiResponse
		Query struct {
			Pages map[string]struct {
				Title     string  `json:"title"`
				Missing   *string `json:"missing"`
				Invalid   *string `json:"invalid"`
				Revisions []struct {
					Slots map[string]map[string]any `json:"slots"`
				} `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := decode(body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	for _, page := range resp.Query.Pages {
		if page.Missing != nil || page.Invalid != nil || len(page.Revisions) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrPageMissing, title)
		}
		content, _ := page.Revisions[0].Slots["main"]["*"].(string)
		t := page.Title
		if t == "" {
			t = title
		}
		return &model.PageDocument{Title: t, Content: content}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPageMissing, title)
}

// TranscludedIn returns the titles of non-redirect pages transcluding template,
// following continuation. An empty namespace searches all namespaces.
func (c *Client) TranscludedIn(ctx context.Context, template, namespace string) ([]string, error) {
	params := url.Values{
		"action":  {"query"},
		"prop":    {"transcludedin"},
		"titles":  {template},
		"tiprop":  {"pageid|title"},
		"tishow":  {"!redirect"},
		"tilimit": {"500"},
	}
	if namespace != "" {
		params.Set("tinamespace", namespace)
	}

	var titles []string
	for {
		body, err := c.get(ctx, params)
		if err != nil {
			return nil, err
		}

		var resp struct {
			apiResponse
			Continue map[string]string `json:"continue"`
			Query    struct {
				Pages map[string]struct {
					TranscludedIn []struct {
						PageID int64  `json:"pageid"`
						Title  string `json:"title"`
					} `json:"transcludedin"`
				} `json:"pages"`
			} `json:"query"`
		}
		if err := decode(body, &resp); err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, resp.Error
		}

		for _, page := range resp.Query.Pages {
			for _, ti := range page.TranscludedIn {
				titles = append(titles, ti.Title)
			}
		}

		if len(resp.Continue) == 0 {
			break
		}
		for k, v := range resp.Continue {
			params.Set(k, v)
		}
		c.Logger.Debug("Following transcludedin continuation", "template", template, "so_far", len(titles))
	}
	return titles, nil
}

// CSRFToken fetches a fresh edit token.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	return c.token(ctx, "csrf")
}

// Edit replaces the page text. The call is made once; a timed-out edit may still have been applied.
func (c *Client) Edit(ctx context.Context, req EditRequest) (*EditResult, error) {
	token, err := c.CSRFToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get csrf token: %w", err)
	}

	sum := md5.Sum([]byte(req.Text))
	form := url.Values{
		"action":  {"edit"},
		"title":   {req.Title},
		"format":  {"json"},
		"text":    {req.Text},
		"summary": {req.Summary},
		"md5":     {hex.EncodeToString(sum[:])},
		"token":   {token},
		"assert":  {"user"},
		"bot":     {"1"},
	}

	if c.MaxLag > 0 {
		form.Set("maxlag", strconv.Itoa(c.MaxLag))
	}

	// A maxlag refusal means nothing was saved, so the post may be repeated.
	body, err := c.retryLag(ctx, func() ([]byte, error) {
		return c.request.PostForm(ctx, c.APIEndpoint, form)
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		apiResponse
		Edit *EditResult `json:"edit"`
	}
	if err := decode(body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %w", ErrEditRejected, resp.Error)
	}
	if resp.Edit == nil {
		return nil, fmt.Errorf("%w: no edit block in response: %s", ErrEditRejected, truncate(string(body), 512))
	}
	// Compared case-insensitively; older bots checked for "success".
	if !strings.EqualFold(resp.Edit.Result, "Success") {
		return resp.Edit, fmt.Errorf("%w: result %q: %s", ErrEditRejected, resp.Edit.Result, truncate(string(body), 512))
	}
	return resp.Edit, nil
}

func (c *Client) token(ctx context.Context, kind string) (string, error) {
	body, err := c.get(ctx, url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {kind},
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		apiResponse
		Query struct {
			Tokens map[string]string `json:"tokens"`
		} `json:"query"`
	}
	if err := decode(body, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error
	}
	tok := resp.Query.Tokens[kind+"token"]
	if tok == "" {
		return "", fmt.Errorf("%w: no %s token in response", ErrParse, kind)
	}
	return tok, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.APIEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid api endpoint: %w", err)
	}
	params.Set("format", "json")
	if c.MaxLag > 0 {
		params.Set("maxlag", strconv.Itoa(c.MaxLag))
	}
	u.RawQuery = params.Encode()

	// Page state must be fresh, so action API reads are never cached.
	return c.retryLag(ctx, func() ([]byte, error) {
		return c.request.GetWithHeaders(ctx, u.String(), nil, "")
	})
}

// retryLag repeats send while the wiki answers with a maxlag error. Each
// refusal puts the wiki into cooldown for the reported lag, which the
// request client waits out before the next call. The last refusal is
// returned as is and surfaces as an APIError with code maxlag.
func (c *Client) retryLag(ctx context.Context, send func() ([]byte, error)) ([]byte, error) {
	retries := c.LagRetries
	if retries <= 0 {
		retries = defaultLagRetries
	}
	for attempt := 0; ; attempt++ {
		body, err := send()
		if err != nil {
			return nil, err
		}
		lag, refused := lagRefusal(body)
		if !refused || attempt >= retries {
			return body, nil
		}
		c.Logger.Warn("Wiki refused request for replication lag", "lag", lag, "attempt", attempt+1)
		c.request.Penalize(c.APIEndpoint, lag)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func lagRefusal(body []byte) (time.Duration, bool) {
	var resp apiResponse
	if json.Unmarshal(body, &resp) != nil || resp.Error == nil || resp.Error.Code != "maxlag" {
		return 0, false
	}
	return max(time.Duration(resp.Error.Lag*float64(time.Second)), time.Second), true
}

type apiResponse struct {
	Error *APIError `json:"error"`
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: failed to decode json: %v", ErrParse, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// SiteName returns the wiki's sitename, used as a reachability probe.
func (c *Client) SiteName(ctx context.Context) (string, error) {
	body, err := c.get(ctx, url.Values{
		"action": {"query"},
		"meta":   {"siteinfo"},
		"siprop": {"general"},
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		apiResponse
		Query struct {
			General struct {
				SiteName string `json:"sitename"`
			} `json:"general"`
		} `json:"query"`
	}
	if err := decode(body, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error
	}
	return resp.Query.General.SiteName, nil
}
