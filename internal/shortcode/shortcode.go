// Package shortcode generates short codes for URL records, either
// deterministically from a record id (Base62Strategy) or randomly with
// a uniqueness check against the authoritative store (RandomStrategy).
package shortcode

import (
	"context"
	"errors"
)

// alphabet is bit-exact: digits, lowercase, uppercase, in that order.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = int64(len(alphabet))

// ErrCapacityExceeded is returned when an id can't be encoded within
// the configured code length.
var ErrCapacityExceeded = errors.New("shortcode: capacity exceeded")

// ErrExhausted is returned by RandomStrategy when no unique code was
// found within the configured number of retries.
var ErrExhausted = errors.New("shortcode: exhausted retries without a unique code")

// Strategy assigns a short code to a URL record identified by id.
type Strategy interface {
	Generate(ctx context.Context, id int64) (string, error)
}

// UniquenessChecker reports whether a candidate code is already taken.
// internal/store.Store satisfies this via its Exists method.
type UniquenessChecker interface {
	Exists(ctx context.Context, code string) (bool, error)
}
