// Package shortener implements the URL service: the hot cache-aside
// redirect path, short code assignment, hit publishing, stats lookup
// and soft deletion.
package shortener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/theakinwande/shortlink/internal/cache"
	"github.com/theakinwande/shortlink/internal/hitstorage"
	"github.com/theakinwande/shortlink/internal/model"
	"github.com/theakinwande/shortlink/internal/obs"
	"github.com/theakinwande/shortlink/internal/queue"
	"github.com/theakinwande/shortlink/internal/shortcode"
	"github.com/theakinwande/shortlink/internal/store"
)

var (
	// ErrInvalidInput is returned when a request argument fails
	// validation (malformed URL, empty short code, etc).
	ErrInvalidInput = errors.New("shortener: invalid input")
	// ErrNotFound is returned when no active URL matches a short code.
	ErrNotFound = errors.New("shortener: url not found")
	// ErrCapacityExceeded is returned when a code can't fit the
	// configured short code length.
	ErrCapacityExceeded = shortcode.ErrCapacityExceeded
	// ErrExhausted is returned when random generation could not find
	// a unique code within the configured retry budget.
	ErrExhausted = shortcode.ErrExhausted
	// ErrStorageUnavailable is returned when the authoritative store
	// itself cannot service a request (as opposed to a cache or queue
	// outage, which degrade silently instead of surfacing here).
	ErrStorageUnavailable = errors.New("shortener: authoritative store unavailable")
)

// Store is the subset of store.Store the service depends on.
type Store interface {
	CreatePlaceholder(ctx context.Context, longURL string) (int64, error)
	SetShortCode(ctx context.Context, id int64, code string) error
	GetActiveByCode(ctx context.Context, code string) (*model.URL, error)
	SoftDelete(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)
}

// Stats is the subset of hitstorage.Strategy the service exposes via
// the stats endpoint.
type Stats struct {
	TotalHits    int64
	ByDevice     map[string]int64
	ByBrowser    map[string]int64
	ByCountry    map[string]int64
	TopReferers  []hitstorage.ReferrerCount
	HitsOverTime []hitstorage.DailyCount
}

// Service implements the cache-aside redirect path and URL lifecycle.
type Service struct {
	store      Store
	cache      cache.Strategy
	queue      queue.Strategy
	hitStorage hitstorage.Strategy
	codes      shortcode.Strategy
	baseURL    string
	cacheTTL   time.Duration
	logger     *obs.Logger

	group singleflight.Group
}

// Config configures a new Service.
type Config struct {
	BaseURL  string
	CacheTTL time.Duration
}

// New builds a Service from its collaborators.
func New(st Store, c cache.Strategy, q queue.Strategy, hs hitstorage.Strategy,
	codes shortcode.Strategy, cfg Config, logger *obs.Logger) *Service {
	return &Service{
		store:      st,
		cache:      c,
		queue:      q,
		hitStorage: hs,
		codes:      codes,
		baseURL:    cfg.BaseURL,
		cacheTTL:   cfg.CacheTTL,
		logger:     logger,
	}
}

// CreateResult is the outcome of Create.
type CreateResult struct {
	ID        int64
	ShortCode string
	ShortURL  string
	LongURL   string
}

// Create validates longURL, allocates a record, assigns it a short
// code (retrying on collision for random strategies) and returns the
// public short URL. Two concurrent Creates of the same long URL
// always produce two distinct codes: codes are derived per record id,
// never deduplicated against existing long URLs.
func (s *Service) Create(ctx context.Context, longURL string) (*CreateResult, error) {
	if !isValidURL(longURL) {
		return nil, fmt.Errorf("%w: not a valid url", ErrInvalidInput)
	}

	id, err := s.store.CreatePlaceholder(ctx, longURL)
	if err != nil {
		return nil, fmt.Errorf("shortener: create placeholder: %w: %w", ErrStorageUnavailable, err)
	}

	code, err := s.codes.Generate(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetShortCode(ctx, id, code); err != nil {
		return nil, fmt.Errorf("shortener: assign short code: %w: %w", ErrStorageUnavailable, err)
	}

	if err := s.cache.Set(ctx, code, longURL, s.cacheTTL); err != nil {
		s.logger.Warn("cache unavailable on create", "error", err, "short_code", code)
	}

	return &CreateResult{
		ID:        id,
		ShortCode: code,
		ShortURL:  s.baseURL + "/" + code,
		LongURL:   longURL,
	}, nil
}

// Resolve returns the long URL for code via cache-aside: a cache hit
// answers directly; a miss reads the authoritative store, repopulates
// the cache, and returns. Concurrent misses for the same code are
// collapsed into a single store read via singleflight. Resolve never
// mutates total_hits — that is the hit worker's job, driven by
// PublishHit below.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: empty short code", ErrInvalidInput)
	}

	if longURL, ok, err := s.cache.Get(ctx, code); err != nil {
		s.logger.Warn("cache unavailable on resolve", "error", err, "short_code", code)
	} else if ok {
		return longURL, nil
	}

	v, err, _ := s.group.Do(code, func() (interface{}, error) {
		record, err := s.store.GetActiveByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, code, record.LongURL, s.cacheTTL); err != nil {
			s.logger.Warn("cache unavailable repopulating after miss", "error", err, "short_code", code)
		}
		return record.LongURL, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("shortener: resolve: %w: %w", ErrStorageUnavailable, err)
	}
	return v.(string), nil
}

// PublishHit enqueues a hit event for code. Queue outages are
// swallowed (logged, not returned) so a degraded queue never breaks
// the redirect response the caller has already served.
func (s *Service) PublishHit(ctx context.Context, event model.HitEvent) {
	err := s.queue.Publish(ctx, queue.HitEvent{
		ShortCode:  event.ShortCode,
		Timestamp:  event.Timestamp,
		IPAddress:  event.IPAddress,
		UserAgent:  event.UserAgent,
		Referer:    event.Referer,
		Country:    event.Country,
		DeviceType: event.DeviceType,
		Browser:    event.Browser,
	})
	if err != nil {
		s.logger.Warn("queue unavailable publishing hit", "error", err, "short_code", event.ShortCode)
	}
}

// Get returns the full URL record for code, regardless of its analytic
// hit data, or ErrNotFound if code has no active record.
func (s *Service) Get(ctx context.Context, code string) (*model.URL, error) {
	record, err := s.store.GetActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("shortener: get: %w: %w", ErrStorageUnavailable, err)
	}
	return record, nil
}

// statsWindow is the trailing window the hits-over-time report in
// Stats always covers.
const statsWindow = 30 * 24 * time.Hour

// Stats returns the authoritative total_hits alongside the analytic
// breakdowns the hit storage backend can compute.
func (s *Service) Stats(ctx context.Context, code string) (*Stats, error) {
	record, err := s.store.GetActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("shortener: stats: %w: %w", ErrStorageUnavailable, err)
	}

	byDevice, _ := s.hitStorage.HitsByDevice(ctx, code)
	byBrowser, _ := s.hitStorage.HitsByBrowser(ctx, code)
	byCountry, _ := s.hitStorage.HitsByCountry(ctx, code)
	topReferers, _ := s.hitStorage.TopReferers(ctx, code, 10)

	now := time.Now()
	hitsOverTime, _ := s.hitStorage.HitsOverTime(ctx, code, now.Add(-statsWindow), now)

	return &Stats{
		TotalHits:    record.TotalHits,
		ByDevice:     byDevice,
		ByBrowser:    byBrowser,
		ByCountry:    byCountry,
		TopReferers:  topReferers,
		HitsOverTime: hitsOverTime,
	}, nil
}

// Delete soft-deletes the record for code and invalidates the cache.
// The cache is invalidated only after the store commit succeeds, so a
// failed delete never leaves the cache out of sync with the store.
func (s *Service) Delete(ctx context.Context, code string) error {
	if err := s.store.SoftDelete(ctx, code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("shortener: delete: %w: %w", ErrStorageUnavailable, err)
	}

	if err := s.cache.Delete(ctx, code); err != nil {
		s.logger.Warn("cache unavailable invalidating after delete", "error", err, "short_code", code)
	}
	return nil
}

func isValidURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
