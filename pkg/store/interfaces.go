package store

import (
	"context"
	"time"

	"wikijournalbot/pkg/model"
)

// CacheStore handles generic key-value caching.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	GetCacheEntry(ctx context.Context, key string) (val []byte, createdAt time.Time, found bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// HistoryStore records runs and per-page outcomes.
type HistoryStore interface {
	SaveRun(ctx context.Context, r *model.RunRecord) error
	GetRun(ctx context.Context, id string) (*model.RunRecord, error)
	SaveEdit(ctx context.Context, e *model.EditRecord) error
	RecentEdits(ctx context.Context, limit int) ([]model.EditRecord, error)
	LastEdit(ctx context.Context, title string) (*model.EditRecord, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
