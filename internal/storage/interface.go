package storage

import (
	"context"
	"errors"

	"github.com/yourname/inkjournal/internal"
)

var ErrNotFound = errors.New("storage: not found")

type EntryRepository interface {
	CreateEntry(ctx context.Context, entry *internal.Entry) error
	GetEntry(ctx context.Context, id string) (*internal.Entry, error)
	UpdateEntry(ctx context.Context, entry *internal.Entry) error
	DeleteEntry(ctx context.Context, id string) error
	// FindEntries returns matching entries ordered by CreatedAt ascending.
	FindEntries(ctx context.Context, filter internal.EntryFilter) ([]internal.Entry, error)
}

type InsightCacheRepository interface {
	GetInsightCache(ctx context.Context, ownerKey string) (*internal.InsightCacheRecord, error)
	// PutInsightCache replaces any existing record for rec.OwnerKey.
	PutInsightCache(ctx context.Context, rec *internal.InsightCacheRecord) error
}

// Store is what every backend provides.
type Store interface {
	EntryRepository
	InsightCacheRepository
	Close() error
}
