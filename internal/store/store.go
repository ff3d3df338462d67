// Package store is the authoritative record of URL mappings, backed
// by PostgreSQL via pgx. It is the single source of truth the cache
// sits in front of and the hit worker ultimately updates total_hits
// against.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/theakinwande/shortlink/internal/model"
)

// ErrNotFound is returned when no active record matches the lookup.
var ErrNotFound = errors.New("store: url not found")

// ErrCodeTaken is returned when a short code is already assigned to
// another record.
var ErrCodeTaken = errors.New("store: short code already taken")

// Store is the authoritative store for URL records.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pgxpool.Pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Config configures a new connection pool, mirroring the teacher's
// database.NewPostgresDB timeout/pool-size conventions.
type Config struct {
	URL             string
	MaxOpenConns    int32
	MaxIdleConns    int32
	ConnMaxLifetime time.Duration
}

// Connect builds and verifies a pgxpool.Pool from cfg.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("store: parse database url: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Health reports whether the store can currently reach the database.
func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// CreatePlaceholder inserts a new record with no short code yet
// assigned, returning its id so a Base62Strategy can encode it.
func (s *Store) CreatePlaceholder(ctx context.Context, longURL string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO urls (long_url) VALUES ($1) RETURNING id`, longURL).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: create placeholder: %w", err)
	}
	return id, nil
}

// SetShortCode assigns code to the record identified by id.
func (s *Store) SetShortCode(ctx context.Context, id int64, code string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE urls SET short_code = $1, updated_at = NOW() WHERE id = $2`, code, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCodeTaken
		}
		return fmt.Errorf("store: set short code: %w", err)
	}
	return nil
}

// GetActiveByCode returns the active record for code, or ErrNotFound.
func (s *Store) GetActiveByCode(ctx context.Context, code string) (*model.URL, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, long_url, short_code, total_hits, is_active, created_at, updated_at
		FROM urls WHERE short_code = $1 AND is_active`, code)
	return scanURL(row)
}

func scanURL(row pgx.Row) (*model.URL, error) {
	var u model.URL
	err := row.Scan(&u.ID, &u.LongURL, &u.ShortCode, &u.TotalHits, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: scan url: %w", err)
	}
	return &u, nil
}

// SoftDelete marks the record for code inactive. Resolving it
// afterward must behave as not-found, per GetActiveByCode's filter.
func (s *Store) SoftDelete(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE urls SET is_active = FALSE, updated_at = NOW() WHERE short_code = $1 AND is_active`, code)
	if err != nil {
		return fmt.Errorf("store: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether code is already assigned to any record,
// active or not (short codes are never recycled).
func (s *Store) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: exists: %w", err)
	}
	return exists, nil
}

// BatchIncrementHits applies deltas (short code -> hit count) in a
// single transaction. It is the only way total_hits is ever mutated;
// the redirect path never calls it directly.
func (s *Store) BatchIncrementHits(ctx context.Context, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin batch increment: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	codes := make([]string, 0, len(deltas))
	for code, delta := range deltas {
		batch.Queue(`UPDATE urls SET total_hits = total_hits + $1, updated_at = NOW() WHERE short_code = $2`, delta, code)
		codes = append(codes, code)
	}

	br := tx.SendBatch(ctx, batch)
	for range codes {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("store: batch increment: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("store: close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit batch increment: %w", err)
	}
	return nil
}
