package hitstorage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ColumnStore is the production-grade hit storage backend: an
// HTTP client against a ClickHouse-compatible query endpoint. No
// native Go ClickHouse driver is wired anywhere in this module (see
// DESIGN.md) so writes go over plain HTTP POST, matching the protocol
// the reference implementation itself used.
//
// Writes are buffered in memory and flushed whenever any of three
// conditions trip: the buffer reaches BufferSize, FlushInterval has
// elapsed since the last flush, or Close is called. Earlier pipelines
// in this lineage only flushed from the write path itself, which lost
// whatever sat in the buffer at shutdown; the ticker and Close hooks
// here exist specifically to close that gap.
type ColumnStore struct {
	endpoint      string
	httpClient    *http.Client
	bufferSize    int
	flushInterval time.Duration

	mu        sync.Mutex
	buf       []Hit
	lastFlush time.Time

	stopTicker chan struct{}
	tickerDone chan struct{}
}

const columnstoreDDL = `CREATE TABLE IF NOT EXISTS url_hits (
	short_code String,
	timestamp DateTime,
	ip_address String,
	user_agent String,
	referer String,
	country String,
	device_type String,
	browser String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(timestamp)
ORDER BY (short_code, timestamp)`

// NewColumnStore builds a ColumnStore talking to endpoint (a
// ClickHouse HTTP interface URL, e.g. http://localhost:8123) and
// starts its background flush ticker.
func NewColumnStore(ctx context.Context, endpoint string, bufferSize int, flushInterval time.Duration) (*ColumnStore, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}

	c := &ColumnStore{
		endpoint:      strings.TrimRight(endpoint, "/"),
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		lastFlush:     time.Now(),
		stopTicker:    make(chan struct{}),
		tickerDone:    make(chan struct{}),
	}

	if err := c.exec(ctx, columnstoreDDL); err != nil {
		return nil, fmt.Errorf("hitstorage: create columnstore table: %w", err)
	}

	go c.flushLoop()
	return c, nil
}

func (c *ColumnStore) flushLoop() {
	defer close(c.tickerDone)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopTicker:
			return
		case <-ticker.C:
			c.mu.Lock()
			due := time.Since(c.lastFlush) >= c.flushInterval && len(c.buf) > 0
			c.mu.Unlock()
			if due {
				_ = c.flushWithRetry(context.Background())
			}
		}
	}
}

func (c *ColumnStore) StoreHits(ctx context.Context, hits []Hit) error {
	c.mu.Lock()
	c.buf = append(c.buf, hits...)
	shouldFlush := len(c.buf) >= c.bufferSize
	c.mu.Unlock()

	if shouldFlush {
		return c.flushWithRetry(ctx)
	}
	return nil
}

func (c *ColumnStore) flushWithRetry(ctx context.Context) error {
	const maxAttempts = 3
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.doFlush(ctx); err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
			continue
		}
		return nil
	}
	return fmt.Errorf("hitstorage: flush failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *ColumnStore) doFlush(ctx context.Context) error {
	c.mu.Lock()
	if len(c.buf) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := c.buf
	c.buf = nil
	c.lastFlush = time.Now()
	c.mu.Unlock()

	var body bytes.Buffer
	for _, h := range batch {
		row := []string{
			h.ShortCode,
			h.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			derefOr(h.IPAddress, ""),
			derefOr(h.UserAgent, ""),
			derefOr(h.Referer, ""),
			derefOr(h.Country, ""),
			derefOr(h.DeviceType, ""),
			derefOr(h.Browser, ""),
		}
		body.WriteString(strings.Join(row, "\t"))
		body.WriteByte('\n')
	}

	q := "INSERT INTO url_hits (short_code, timestamp, ip_address, user_agent, referer, country, device_type, browser) FORMAT TabSeparated"
	if err := c.post(ctx, q, &body); err != nil {
		// Put the batch back so the next attempt can retry it.
		c.mu.Lock()
		c.buf = append(batch, c.buf...)
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *ColumnStore) exec(ctx context.Context, query string) error {
	return c.post(ctx, query, nil)
}

func (c *ColumnStore) post(ctx context.Context, query string, body *bytes.Buffer) error {
	u := c.endpoint + "/?query=" + url.QueryEscape(query)
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = body
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, reqBody)
	if err != nil {
		return fmt.Errorf("hitstorage: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hitstorage: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("hitstorage: columnstore returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *ColumnStore) query(ctx context.Context, query string, out interface{}) error {
	u := c.endpoint + "/?query=" + url.QueryEscape(query+" FORMAT JSON")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("hitstorage: build query request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hitstorage: query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("hitstorage: columnstore query returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type jsonRow map[string]string

type jsonResult struct {
	Data []jsonRow `json:"data"`
}

func (c *ColumnStore) groupCount(ctx context.Context, column, shortCode string) (map[string]int64, error) {
	q := fmt.Sprintf("SELECT %s AS key, COUNT(*) AS count FROM url_hits WHERE short_code = '%s' GROUP BY %s",
		column, escapeLiteral(shortCode), column)
	var res jsonResult
	if err := c.query(ctx, q, &res); err != nil {
		return nil, err
	}
	out := make(map[string]int64)
	for _, row := range res.Data {
		var n int64
		fmt.Sscanf(row["count"], "%d", &n)
		out[row["key"]] = n
	}
	return out, nil
}

func (c *ColumnStore) TotalHits(ctx context.Context, shortCode string) (int64, error) {
	q := fmt.Sprintf("SELECT COUNT(*) AS count FROM url_hits WHERE short_code = '%s'", escapeLiteral(shortCode))
	var res jsonResult
	if err := c.query(ctx, q, &res); err != nil {
		return 0, err
	}
	if len(res.Data) == 0 {
		return 0, nil
	}
	var n int64
	fmt.Sscanf(res.Data[0]["count"], "%d", &n)
	return n, nil
}

func (c *ColumnStore) HitsByDevice(ctx context.Context, shortCode string) (map[string]int64, error) {
	return c.groupCount(ctx, "device_type", shortCode)
}

func (c *ColumnStore) HitsByBrowser(ctx context.Context, shortCode string) (map[string]int64, error) {
	return c.groupCount(ctx, "browser", shortCode)
}

func (c *ColumnStore) HitsByCountry(ctx context.Context, shortCode string) (map[string]int64, error) {
	return c.groupCount(ctx, "country", shortCode)
}

// TopReferers returns the referers with the most hits for shortCode,
// ordered by count descending and ties broken lexicographically by
// referer — both enforced in the query so the caller receives an
// already ranked slice.
func (c *ColumnStore) TopReferers(ctx context.Context, shortCode string, limit int) ([]ReferrerCount, error) {
	if limit <= 0 {
		limit = 10
	}
	q := fmt.Sprintf("SELECT referer AS key, COUNT(*) AS count FROM url_hits WHERE short_code = '%s' GROUP BY referer ORDER BY count DESC, referer ASC LIMIT %d",
		escapeLiteral(shortCode), limit)
	var res jsonResult
	if err := c.query(ctx, q, &res); err != nil {
		return nil, err
	}
	out := make([]ReferrerCount, 0, len(res.Data))
	for _, row := range res.Data {
		var n int64
		fmt.Sscanf(row["count"], "%d", &n)
		out = append(out, ReferrerCount{Referer: row["key"], Count: n})
	}
	return out, nil
}

func (c *ColumnStore) HitsOverTime(ctx context.Context, shortCode string, from, to time.Time) ([]DailyCount, error) {
	q := fmt.Sprintf(`SELECT toDate(timestamp) AS day, COUNT(*) AS count FROM url_hits
		WHERE short_code = '%s' AND timestamp BETWEEN '%s' AND '%s'
		GROUP BY day ORDER BY day`,
		escapeLiteral(shortCode),
		from.UTC().Format("2006-01-02 15:04:05"),
		to.UTC().Format("2006-01-02 15:04:05"))
	var res struct {
		Data []struct {
			Day   string `json:"day"`
			Count string `json:"count"`
		} `json:"data"`
	}
	if err := c.query(ctx, q, &res); err != nil {
		return nil, err
	}
	out := make([]DailyCount, 0, len(res.Data))
	for _, row := range res.Data {
		d, err := time.Parse("2006-01-02", row.Day)
		if err != nil {
			continue
		}
		var n int64
		fmt.Sscanf(row.Count, "%d", &n)
		out = append(out, DailyCount{Date: d, Count: n})
	}
	return out, nil
}

// Close stops the background flush ticker and flushes whatever is
// still buffered, so no hits are lost at shutdown.
func (c *ColumnStore) Close(ctx context.Context) error {
	close(c.stopTicker)
	<-c.tickerDone
	return c.flushWithRetry(ctx)
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
