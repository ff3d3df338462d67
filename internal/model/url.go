// Package model holds the domain types shared across the shortener,
// store, cache, queue and worker packages.
package model

import "time"

// URL is a shortened-link record. ID is a monotonically assigned
// integer rather than a UUID because the base62 short-code strategy
// encodes it directly; ShortCode is nil until a code has been
// assigned to the record.
type URL struct {
	ID        int64
	LongURL   string
	ShortCode *string
	TotalHits int64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCode reports whether a short code has been assigned yet.
func (u *URL) HasCode() bool {
	return u.ShortCode != nil && *u.ShortCode != ""
}

// HitEvent describes a single redirect that occurred against a short
// code. Enrichment fields are optional; nothing in this module
// populates Country or DeviceType itself, callers may attach them
// before publishing.
type HitEvent struct {
	ShortCode  string
	Timestamp  time.Time
	IPAddress  *string
	UserAgent  *string
	Referer    *string
	Country    *string
	DeviceType *string
	Browser    *string
}
