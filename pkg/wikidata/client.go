package wikidata

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"wikijournalbot/pkg/model"
)

const sparqlEndpoint = "https://query.wikidata.org/sparql"

// Requester is the subset of the request client used for SPARQL calls.
type Requester interface {
	GetWithHeaders(ctx context.Context, u string, headers map[string]string, cacheKey string) ([]byte, error)
}

// Client handles SPARQL queries.
type Client struct {
	request        Requester
	SPARQLEndpoint string
	Logger         *slog.Logger
}

// NewClient creates a new Wikidata client. An empty endpoint uses the public query service.
func NewClient(r Requester, endpoint string, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = sparqlEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		request:        r,
		SPARQLEndpoint: endpoint,
		Logger:         logger,
	}
}

// CacheKey returns a stable cache key for a query text.
func CacheKey(query string) string {
	hash := md5.Sum([]byte(query))
	return "sparql_" + hex.EncodeToString(hash[:])
}

// QueryArticles runs the query and returns the article rows in service order.
// A response without a results block yields zero rows.
func (c *Client) QueryArticles(ctx context.Context, query, cacheKey string) ([]model.ResultRow, error) {
	u, err := url.Parse(c.SPARQLEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	q := u.Query()
	q.Add("query", query)
	q.Add("format", "json")
	u.RawQuery = q.Encode()

	headers := map[string]string{
		"Accept": "application/sparql-results+json",
	}

	body, err := c.request.GetWithHeaders(ctx, u.String(), headers, cacheKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", classify(err), err)
	}

	var result sparqlResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode json: %v", ErrParse, err)
	}

	rows := parseBindings(result)
	c.Logger.Debug("SPARQL query done", "rows", len(rows), "cache_key", cacheKey)
	return rows, nil
}

// -- Internal parsing structs --

type sparqlResponse struct {
	Results *struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func parseBindings(resp sparqlResponse) []model.ResultRow {
	if resp.Results == nil {
		return nil
	}
	rows := make([]model.ResultRow, 0, len(resp.Results.Bindings))
	for _, b := range resp.Results.Bindings {
		rows = append(rows, model.ResultRow{
			Label:    val(b, "itemLabel"),
			ImageURL: val(b, "image"),
		})
	}
	return rows
}

func val(binding map[string]sparqlValue, key string) string {
	if v, ok := binding[key]; ok {
		return v.Value
	}
	return ""
}

// Ping runs a constant ASK query against the endpoint, bypassing the cache.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.QueryArticles(ctx, "ASK {}", "")
	return err
}
