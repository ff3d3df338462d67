// Package hitstorage implements the analytical store for redirect hit
// events: a row-oriented SQLite backend for local development, and an
// HTTP-backed column-store backend (ClickHouse-shaped) for production
// volumes, both satisfying the same Strategy interface.
package hitstorage

import (
	"context"
	"time"
)

// Hit is a single recorded redirect, as persisted by a Strategy.
type Hit struct {
	ShortCode  string
	Timestamp  time.Time
	IPAddress  *string
	UserAgent  *string
	Referer    *string
	Country    *string
	DeviceType *string
	Browser    *string
}

// DailyCount is one bucket of the hits-over-time report.
type DailyCount struct {
	Date  time.Time
	Count int64
}

// ReferrerCount is one ranked entry of the top-referers report. Order
// matters: callers must receive these sorted by Count descending, ties
// broken lexicographically by Referer, so the slice itself carries the
// ranking rather than a map a caller would have to re-sort.
type ReferrerCount struct {
	Referer string
	Count   int64
}

// Strategy persists and reports on hit events.
type Strategy interface {
	StoreHits(ctx context.Context, hits []Hit) error
	TotalHits(ctx context.Context, shortCode string) (int64, error)
	HitsByDevice(ctx context.Context, shortCode string) (map[string]int64, error)
	HitsByBrowser(ctx context.Context, shortCode string) (map[string]int64, error)
	HitsByCountry(ctx context.Context, shortCode string) (map[string]int64, error)
	TopReferers(ctx context.Context, shortCode string, limit int) ([]ReferrerCount, error)
	HitsOverTime(ctx context.Context, shortCode string, from, to time.Time) ([]DailyCount, error)
	// Close flushes any buffered writes and releases resources.
	Close(ctx context.Context) error
}
