package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"time"

	"wikijournalbot/pkg/db"
	"wikijournalbot/pkg/model"
)

// Store defines the repository interface.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	CacheStore
	HistoryStore
	StateStore

	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Cache ---

func (s *SQLiteStore) GetCache(ctx context.Context, key string) ([]byte, bool) {
	val, _, found := s.GetCacheEntry(ctx, key)
	return val, found
}

// GetCacheEntry returns the cached value together with the time it was written.
func (s *SQLiteStore) GetCacheEntry(ctx context.Context, key string) (val []byte, createdAt time.Time, found bool) {
	err := s.db.QueryRowContext(ctx, "SELECT value, created_at FROM cache WHERE key = ?", key).Scan(&val, &createdAt)
	if err != nil {
		// Errors other than ErrNoRows are treated as a miss too
		return nil, time.Time{}, false
	}

	// Transparent Decompression
	if len(val) > 2 && val[0] == 0x1f && val[1] == 0x8b {
		if decompressed, err := decompress(val); err == nil {
			return decompressed, createdAt, true
		}
	}

	return val, createdAt, true
}

func (s *SQLiteStore) SetCache(ctx context.Context, key string, val []byte) error {
	// Transparent Compression
	compressed, err := compress(val)
	if err == nil {
		val = compressed
	}

	query := `INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, key, val, time.Now().UTC())
	return err
}

// --- Compression Pooling ---

var (
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- History ---

func (s *SQLiteStore) SaveRun(ctx context.Context, r *model.RunRecord) error {
	query := `INSERT OR REPLACE INTO runs (id, mode, started_at, finished_at, pages, submitted, skipped, failed, aborted)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, r.ID, r.Mode, r.StartedAt.UTC(), r.FinishedAt.UTC(),
		r.Pages, r.Submitted, r.Skipped, r.Failed, r.Aborted)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	var r model.RunRecord
	var aborted sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mode, started_at, finished_at, pages, submitted, skipped, failed, aborted FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Mode, &r.StartedAt, &r.FinishedAt, &r.Pages, &r.Submitted, &r.Skipped, &r.Failed, &aborted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Aborted = aborted.String
	return &r, nil
}

func (s *SQLiteStore) SaveEdit(ctx context.Context, e *model.EditRecord) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	query := `INSERT INTO edits (run_id, title, status, stage, reason, rows, rev_id, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, e.RunID, e.Title, string(e.Status), e.Stage, e.Reason,
		e.Rows, e.RevID, e.CreatedAt.UTC())
	return err
}

// RecentEdits returns the newest records first.
func (s *SQLiteStore) RecentEdits(ctx context.Context, limit int) ([]model.EditRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, title, status, stage, reason, rows, rev_id, created_at FROM edits ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EditRecord
	for rows.Next() {
		e, err := scanEdit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LastEdit(ctx context.Context, title string) (*model.EditRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, title, status, stage, reason, rows, rev_id, created_at FROM edits WHERE title = ? ORDER BY id DESC LIMIT 1`, title)
	e, err := scanEdit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEdit(sc scanner) (*model.EditRecord, error) {
	var e model.EditRecord
	var status string
	var stage, reason sql.NullString
	if err := sc.Scan(&e.RunID, &e.Title, &status, &stage, &reason, &e.Rows, &e.RevID, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Status = model.PageStatus(status)
	e.Stage = stage.String
	e.Reason = reason.String
	return &e, nil
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now().UTC())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
