package wikidata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wikijournalbot/pkg/model"
	"wikijournalbot/pkg/request"
)

func TestQueryArticles(t *testing.T) {
	tests := []struct {
		name       string
		mockResp   string
		mockStatus int
		wantErr    error
		want       []model.ResultRow
	}{
		{
			name: "Rows in service order",
			mockResp: `{"results": {"bindings": [
				{"item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q2"},
				 "itemLabel": {"type": "literal", "value": "Second"},
				 "image": {"type": "uri", "value": "http://commons.wikimedia.org/wiki/Special:FilePath/A%20B.png"}},
				{"item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q1"},
				 "itemLabel": {"type": "literal", "value": "First"}}
			]}}`,
			mockStatus: http.StatusOK,
			want: []model.ResultRow{
				{Label: "Second", ImageURL: "http://commons.wikimedia.org/wiki/Special:FilePath/A%20B.png"},
				{Label: "First"},
			},
		},
		{
			name:       "Missing results block is zero rows",
			mockResp:   `{"head": {"vars": ["item"]}}`,
			mockStatus: http.StatusOK,
			want:       nil,
		},
		{
			name:       "Empty bindings",
			mockResp:   `{"results": {"bindings": []}}`,
			mockStatus: http.StatusOK,
			want:       []model.ResultRow{},
		},
		{
			name:       "Malformed JSON",
			mockResp:   `{invalid json}`,
			mockStatus: http.StatusOK,
			wantErr:    ErrParse,
		},
		{
			name:       "Malformed query",
			mockResp:   `MalformedQueryException`,
			mockStatus: http.StatusBadRequest,
			wantErr:    ErrRejected,
		},
		{
			name:       "Service unavailable",
			mockResp:   `upstream overloaded`,
			mockStatus: http.StatusServiceUnavailable,
			wantErr:    ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("format") != "json" {
					t.Errorf("Expected format=json, got %q", r.URL.Query().Get("format"))
				}
				if r.URL.Query().Get("query") != "SELECT 1" {
					t.Errorf("Unexpected query %q", r.URL.Query().Get("query"))
				}
				if got := r.Header.Get("Accept"); got != "application/sparql-results+json" {
					t.Errorf("Accept = %q", got)
				}
				w.WriteHeader(tt.mockStatus)
				_, _ = w.Write([]byte(tt.mockResp))
			}))
			defer server.Close()

			rc := request.New(nil, nil, request.Options{Retries: 1, BaseDelay: time.Millisecond})
			defer rc.Close()
			client := NewClient(rc, server.URL, slog.Default())

			rows, err := client.QueryArticles(context.Background(), "SELECT 1", "")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(rows), len(tt.want))
			}
			for i := range rows {
				if rows[i] != tt.want[i] {
					t.Errorf("row %d = %+v, want %+v", i, rows[i], tt.want[i])
				}
			}
		})
	}
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("SELECT 1")
	if a != CacheKey("SELECT 1") {
		t.Error("CacheKey is not stable")
	}
	if a == CacheKey("SELECT 2") {
		t.Error("different queries share a key")
	}
	if len(a) != len("sparql_")+32 {
		t.Errorf("unexpected key %q", a)
	}
}
