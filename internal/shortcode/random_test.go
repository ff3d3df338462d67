package shortcode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	taken map[string]bool
}

func (f *fakeChecker) Exists(_ context.Context, code string) (bool, error) {
	return f.taken[code], nil
}

func TestRandomStrategy_ReturnsUniqueCode(t *testing.T) {
	checker := &fakeChecker{taken: map[string]bool{}}
	s := NewRandomStrategy(6, 5, checker)

	code, err := s.Generate(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, code, 6)
}

func TestRandomStrategy_RetriesOnCollision(t *testing.T) {
	attempts := 0
	checker := &stubChecker{
		fn: func(code string) bool {
			attempts++
			return attempts <= 2 // first two candidates are "taken"
		},
	}
	s := NewRandomStrategy(6, 5, checker)

	_, err := s.Generate(context.Background(), 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, attempts, 3)
}

func TestRandomStrategy_ExhaustedAfterMaxRetries(t *testing.T) {
	checker := &stubChecker{fn: func(string) bool { return true }}
	s := NewRandomStrategy(6, 3, checker)

	_, err := s.Generate(context.Background(), 0)
	assert.ErrorIs(t, err, ErrExhausted)
}

type stubChecker struct {
	fn func(code string) bool
}

func (s *stubChecker) Exists(_ context.Context, code string) (bool, error) {
	return s.fn(code), nil
}
