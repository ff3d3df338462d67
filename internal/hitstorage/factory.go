package hitstorage

import (
	"context"
	"fmt"
	"time"
)

// Backend selects which Strategy implementation a deployment uses.
type Backend string

const (
	BackendRowStore    Backend = "rowstore"
	BackendColumnStore Backend = "columnstore"
)

// Config carries the parameters needed to build any Strategy.
type Config struct {
	Backend Backend

	// RowStore
	SQLitePath string

	// ColumnStore
	ColumnStoreURL string
	BufferSize     int
	FlushInterval  time.Duration
}

// New constructs the Strategy named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Strategy, error) {
	switch cfg.Backend {
	case BackendRowStore:
		path := cfg.SQLitePath
		if path == "" {
			path = "hits.db"
		}
		return NewRowStore(ctx, path)
	case BackendColumnStore:
		if cfg.ColumnStoreURL == "" {
			return nil, fmt.Errorf("hitstorage: columnstore backend requires a URL")
		}
		return NewColumnStore(ctx, cfg.ColumnStoreURL, cfg.BufferSize, cfg.FlushInterval)
	default:
		return nil, fmt.Errorf("hitstorage: unknown backend %q", cfg.Backend)
	}
}
