package shortcode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase62Strategy_Deterministic(t *testing.T) {
	s := NewBase62Strategy(1256, 8)

	first, err := s.Generate(context.Background(), 42)
	require.NoError(t, err)

	second, err := s.Generate(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBase62Strategy_DistinctIDsDoNotCollide(t *testing.T) {
	s := NewBase62Strategy(1256, 8)
	seen := make(map[string]int64)

	for id := int64(0); id < 5000; id++ {
		code, err := s.Generate(context.Background(), id)
		require.NoError(t, err)

		if prior, ok := seen[code]; ok {
			t.Fatalf("ids %d and %d both encoded to %q", prior, id, code)
		}
		seen[code] = id
	}
}

func TestBase62Strategy_UsesExactAlphabet(t *testing.T) {
	s := NewBase62Strategy(0, 8)

	for id := int64(0); id < 1000; id++ {
		code, err := s.Generate(context.Background(), id)
		require.NoError(t, err)
		for _, r := range code {
			assert.Contains(t, alphabet, string(r))
		}
	}
}

func TestBase62Strategy_CapacityExceeded(t *testing.T) {
	s := NewBase62Strategy(0, 1)

	_, err := s.Generate(context.Background(), 1_000_000)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestBase62Strategy_ZeroFitsEvenMinimalLength(t *testing.T) {
	s := NewBase62Strategy(0, 1)

	code, err := s.Generate(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "0", code)
}
