package shortcode

import (
	"context"
	"crypto/rand"
	"fmt"
)

// RandomStrategy draws a code from the alphabet uniformly at random,
// retrying against Checker until a free code is found or MaxRetries
// is exhausted.
type RandomStrategy struct {
	Length     int
	MaxRetries int
	Checker    UniquenessChecker
}

// NewRandomStrategy builds a RandomStrategy.
func NewRandomStrategy(length, maxRetries int, checker UniquenessChecker) *RandomStrategy {
	return &RandomStrategy{Length: length, MaxRetries: maxRetries, Checker: checker}
}

// Generate ignores id (random codes carry no relationship to the
// record id) and returns a fresh, unique code.
func (s *RandomStrategy) Generate(ctx context.Context, _ int64) (string, error) {
	attempts := s.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		code, err := randomCode(s.Length)
		if err != nil {
			return "", fmt.Errorf("shortcode: generating random code: %w", err)
		}

		taken, err := s.Checker.Exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("shortcode: checking uniqueness: %w", err)
		}
		if !taken {
			return code, nil
		}
	}

	return "", ErrExhausted
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}
