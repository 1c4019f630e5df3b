package maintenance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"wikijournalbot/pkg/db"
	"wikijournalbot/pkg/store"
)

func TestMaintenance(t *testing.T) {
	tempDir := t.TempDir()
	d, err := db.Init(filepath.Join(tempDir, "maint_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	s := store.NewSQLiteStore(d)
	ctx := context.Background()

	// Old (40 days) and new (1 day) entries in both tables
	oldTS := time.Now().Add(-40 * 24 * time.Hour).UTC()
	newTS := time.Now().Add(-1 * 24 * time.Hour).UTC()
	for _, q := range []struct {
		query string
		args  []any
	}{
		{"INSERT INTO cache (key, value, created_at) VALUES (?, ?, ?)", []any{"old-key", "old-val", oldTS}},
		{"INSERT INTO cache (key, value, created_at) VALUES (?, ?, ?)", []any{"new-key", "new-val", newTS}},
		{"INSERT INTO edits (run_id, title, status, created_at) VALUES (?, ?, ?, ?)", []any{"r1", "Old", "submitted", oldTS}},
		{"INSERT INTO edits (run_id, title, status, created_at) VALUES (?, ?, ?, ?)", []any{"r2", "New", "submitted", newTS}},
	} {
		if _, err := d.Exec(q.query, q.args...); err != nil {
			t.Fatal(err)
		}
	}

	opts := Options{CacheMaxAge: 30 * 24 * time.Hour, EditMaxAge: 7 * 24 * time.Hour, Interval: time.Hour}
	if err := Run(ctx, s, d, opts, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var count int
	if err := d.QueryRow("SELECT COUNT(*) FROM cache").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 cache entry after prune, got %d", count)
	}
	if err := d.QueryRow("SELECT COUNT(*) FROM edits").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 edit after prune, got %d", count)
	}

	if _, ok := s.GetState(ctx, lastRunStateKey); !ok {
		t.Error("Expected last run state to be recorded")
	}
}

type countingPruner struct{ calls int }

func (p *countingPruner) PruneCache(time.Duration) (int64, error) {
	p.calls++
	return 0, nil
}

func (p *countingPruner) PruneEdits(time.Duration) (int64, error) {
	p.calls++
	return 0, nil
}

type memState map[string]string

func (m memState) GetState(_ context.Context, k string) (string, bool) {
	v, ok := m[k]
	return v, ok
}

func (m memState) SetState(_ context.Context, k, v string) error {
	m[k] = v
	return nil
}

func (m memState) DeleteState(_ context.Context, k string) error {
	delete(m, k)
	return nil
}

func TestMaintenance_Interval(t *testing.T) {
	ctx := context.Background()
	st := memState{}
	p := &countingPruner{}

	opts := DefaultOptions()
	if err := Run(ctx, st, p, opts, nil); err != nil {
		t.Fatal(err)
	}
	if err := Run(ctx, st, p, opts, nil); err != nil {
		t.Fatal(err)
	}
	if p.calls != 2 {
		t.Errorf("Expected one pass (2 prune calls) within the interval, got %d calls", p.calls)
	}

	st[lastRunStateKey] = time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)
	if err := Run(ctx, st, p, opts, nil); err != nil {
		t.Fatal(err)
	}
	if p.calls != 4 {
		t.Errorf("Expected a second pass after the interval, got %d calls", p.calls)
	}
}
