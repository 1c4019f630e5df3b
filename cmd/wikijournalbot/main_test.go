package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wikijournalbot/pkg/config"
)

var envKeys = []string{
	"CONSUMER_TOKEN", "CONSUMER_SECRET", "ACCESS_TOKEN", "ACCESS_SECRET",
	"BOT_USERNAME", "BOT_PASSWORD", "BOT_NAME", "BOT_MODE", "API_ENDPOINT", "SPARQL_ENDPOINT",
	"ARTICLE_VOLUME_LIST_TEMPLATE", "LIST_END_TEMPLATE", "DEFAULT_ROW_TEMPLATE", "LOG_LEVEL", "THROTTLE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, wikiURL, sparqlURL, templates string) string {
	t.Helper()
	cfg := fmt.Sprintf(`
bot:
  name: TestBot
  mode: journal
  throttle: 1ms
  dry_run: true
wiki:
  api_endpoint: %s
  user_agent: TestBot/1.0
wikidata:
  sparql_endpoint: %s
%s
request:
  retries: 1
  timeout: 5s
  backoff:
    base_delay: 1ms
    max_delay: 10ms
log:
  bot:
    path: %s
    level: debug
  requests:
    path: %s
    level: info
db:
  path: %s
`, wikiURL, sparqlURL, templates,
		filepath.Join(dir, "logs", "bot.log"),
		filepath.Join(dir, "logs", "requests.log"),
		filepath.Join(dir, "bot.db"))

	path := filepath.Join(dir, "bot.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

const testTemplates = `templates:
  list_start: Start
  list_end: End
  default_row: Row`

func fakeServices(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"User:TestBot":                                 "Operator page",
		"User:TestBot/WikiJournal of Science/Volume 4": "Intro\n{{Start}}\n{{End}}",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("meta") == "siteinfo":
			fmt.Fprint(w, `{"query":{"general":{"sitename":"Wikiversity"}}}`)
		case q.Get("prop") == "transcludedin":
			fmt.Fprint(w, `{"batchcomplete":"","query":{"pages":{"1":{"title":"Template:Start","transcludedin":[{"pageid":9,"title":"User:TestBot/WikiJournal of Science/Volume 4"}]}}}}`)
		case q.Get("prop") == "revisions":
			content, ok := pages[q.Get("titles")]
			if !ok {
				fmt.Fprint(w, `{"query":{"pages":{"-1":{"missing":""}}}}`)
				return
			}
			fmt.Fprintf(w, `{"query":{"pages":{"9":{"title":%q,"revisions":[{"slots":{"main":{"*":%q}}}]}}}}`, q.Get("titles"), content)
		case q.Get("meta") == "tokens":
			t.Error("edit token requested during a dry run")
			fmt.Fprint(w, `{"query":{"tokens":{"csrftoken":"+\\"}}}`)
		default:
			_ = r.ParseForm()
			if r.PostForm.Get("action") == "edit" {
				t.Errorf("edit submitted during a dry run: %s", r.PostForm.Get("title"))
			} else {
				t.Errorf("unexpected wiki request: %s", r.URL.RawQuery)
			}
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/sparql", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Query().Get("query"), "ASK") {
			fmt.Fprint(w, `{"head":{},"boolean":true}`)
			return
		}
		fmt.Fprint(w, `{"results":{"bindings":[{"itemLabel":{"type":"literal","value":"A study"},"image":{"type":"uri","value":"http://commons.wikimedia.org/wiki/Special:FilePath/Fig%201.png"}}]}}`)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestRun_DryRun(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	ts := fakeServices(t)
	cfgPath := writeConfig(t, dir, ts.URL+"/w/api.php", ts.URL+"/sparql", testTemplates)

	sum, err := run(context.Background(), updateOptions{
		configPath: cfgPath,
		envPath:    filepath.Join(dir, "missing.env"),
	})
	if err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	if sum.Pages != 1 || sum.DryRun != 1 || sum.Failed != 0 || sum.Aborted != "" {
		t.Errorf("unexpected summary: %+v", sum)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"history", "--config", cfgPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out.String(), "dry_run") || !strings.Contains(out.String(), "Volume 4") {
		t.Errorf("history output missing the page outcome:\n%s", out.String())
	}
}

func TestRun_DryRunFlagBeatsStoredOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	ts := fakeServices(t)
	cfgPath := writeConfig(t, dir, ts.URL+"/w/api.php", ts.URL+"/sparql", testTemplates)

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	live := strings.Replace(string(data), "dry_run: true", "dry_run: false", 1)
	if err := os.WriteFile(cfgPath, []byte(live), 0o644); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"set", config.KeyDryRun, "false", "--config", cfgPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	sum, err := run(context.Background(), updateOptions{
		configPath: cfgPath,
		envPath:    filepath.Join(dir, "missing.env"),
		dryRun:     true,
	})
	if err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	if sum.Submitted != 0 || sum.DryRun != 1 {
		t.Errorf("--dry-run lost to the stored override: %+v", sum)
	}
}

func TestRun_PausedByOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	ts := fakeServices(t)
	cfgPath := writeConfig(t, dir, ts.URL+"/w/api.php", ts.URL+"/sparql", testTemplates)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"set", config.KeyPaused, "true", "--config", cfgPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	sum, err := run(context.Background(), updateOptions{configPath: cfgPath})
	if err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	if sum.Aborted != abortPaused || sum.Pages != 0 {
		t.Errorf("expected paused run, got %+v", sum)
	}

	root = newRootCmd()
	root.SetArgs([]string{"set", "bot.paused", "soon", "--config", cfgPath})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Error("expected invalid override to be rejected")
	}
}

func TestRun_MissingConfiguration(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://127.0.0.1:1/w/api.php", "http://127.0.0.1:1/sparql", "")

	_, err := run(context.Background(), updateOptions{configPath: cfgPath})
	if !errors.Is(err, config.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "bot.db")); statErr == nil {
		t.Error("database created despite missing configuration")
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "bot.yaml")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"init-config", "--config", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("init-config failed: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Bot.Mode != config.ModeJournal {
		t.Errorf("expected default mode, got %q", cfg.Bot.Mode)
	}
	if !strings.Contains(out.String(), path) {
		t.Errorf("unexpected output: %q", out.String())
	}
}
