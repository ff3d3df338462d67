package hitstorage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// RowStore is the development-grade hit storage backend: a single
// local SQLite file, no external service required.
type RowStore struct {
	db *sql.DB
}

const rowstoreSchema = `
CREATE TABLE IF NOT EXISTS url_hits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	short_code TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	ip_address TEXT,
	user_agent TEXT,
	referer TEXT,
	country TEXT,
	device_type TEXT,
	browser TEXT
);
CREATE INDEX IF NOT EXISTS idx_url_hits_short_code ON url_hits(short_code);
CREATE INDEX IF NOT EXISTS idx_url_hits_timestamp ON url_hits(timestamp);
`

// NewRowStore opens (creating if necessary) a SQLite database at path
// and ensures its schema exists.
func NewRowStore(ctx context.Context, path string) (*RowStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("hitstorage: open sqlite: %w", err)
	}
	// SQLite tolerates exactly one writer at a time; a single
	// connection avoids SQLITE_BUSY under the worker's own batching.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, rowstoreSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("hitstorage: migrate sqlite schema: %w", err)
	}

	return &RowStore{db: db}, nil
}

func (s *RowStore) StoreHits(ctx context.Context, hits []Hit) error {
	if len(hits) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("hitstorage: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO url_hits
		(short_code, timestamp, ip_address, user_agent, referer, country, device_type, browser)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("hitstorage: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range hits {
		if _, err := stmt.ExecContext(ctx, h.ShortCode, h.Timestamp,
			h.IPAddress, h.UserAgent, h.Referer, h.Country, h.DeviceType, h.Browser); err != nil {
			return fmt.Errorf("hitstorage: insert hit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("hitstorage: commit: %w", err)
	}
	return nil
}

func (s *RowStore) TotalHits(ctx context.Context, shortCode string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM url_hits WHERE short_code = ?`, shortCode).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("hitstorage: total hits: %w", err)
	}
	return n, nil
}

func (s *RowStore) groupCount(ctx context.Context, column, shortCode string) (map[string]int64, error) {
	query := fmt.Sprintf(`SELECT COALESCE(%s, ''), COUNT(*) FROM url_hits
		WHERE short_code = ? GROUP BY %s`, column, column)
	rows, err := s.db.QueryContext(ctx, query, shortCode)
	if err != nil {
		return nil, fmt.Errorf("hitstorage: group by %s: %w", column, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("hitstorage: scan group by %s: %w", column, err)
		}
		out[key] = count
	}
	return out, rows.Err()
}

func (s *RowStore) HitsByDevice(ctx context.Context, shortCode string) (map[string]int64, error) {
	return s.groupCount(ctx, "device_type", shortCode)
}

func (s *RowStore) HitsByBrowser(ctx context.Context, shortCode string) (map[string]int64, error) {
	return s.groupCount(ctx, "browser", shortCode)
}

func (s *RowStore) HitsByCountry(ctx context.Context, shortCode string) (map[string]int64, error) {
	return s.groupCount(ctx, "country", shortCode)
}

// TopReferers returns the referers with the most hits for shortCode,
// ordered by count descending and ties broken lexicographically by
// referer — both enforced in SQL so the caller receives an already
// ranked slice.
func (s *RowStore) TopReferers(ctx context.Context, shortCode string, limit int) ([]ReferrerCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(referer, ''), COUNT(*) AS c
		FROM url_hits WHERE short_code = ? GROUP BY referer ORDER BY c DESC, referer ASC LIMIT ?`, shortCode, limit)
	if err != nil {
		return nil, fmt.Errorf("hitstorage: top referers: %w", err)
	}
	defer rows.Close()

	var out []ReferrerCount
	for rows.Next() {
		var rc ReferrerCount
		if err := rows.Scan(&rc.Referer, &rc.Count); err != nil {
			return nil, fmt.Errorf("hitstorage: scan top referers: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (s *RowStore) HitsOverTime(ctx context.Context, shortCode string, from, to time.Time) ([]DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DATE(timestamp), COUNT(*) FROM url_hits
		WHERE short_code = ? AND timestamp BETWEEN ? AND ?
		GROUP BY DATE(timestamp) ORDER BY DATE(timestamp)`, shortCode, from, to)
	if err != nil {
		return nil, fmt.Errorf("hitstorage: hits over time: %w", err)
	}
	defer rows.Close()

	var out []DailyCount
	for rows.Next() {
		var dateStr string
		var count int64
		if err := rows.Scan(&dateStr, &count); err != nil {
			return nil, fmt.Errorf("hitstorage: scan hits over time: %w", err)
		}
		d, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("hitstorage: parse date: %w", err)
		}
		out = append(out, DailyCount{Date: d, Count: count})
	}
	return out, rows.Err()
}

func (s *RowStore) Close(context.Context) error {
	return s.db.Close()
}
