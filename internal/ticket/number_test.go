package ticket

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNumberStore struct {
	existing   map[string]bool
	collisions int // fail the first N existence checks as collisions
	checks     int
	err        error
}

func (s *fakeNumberStore) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.checks++
	if s.checks <= s.collisions {
		return true, nil
	}
	return s.existing[number], nil
}

func TestGenerateUniqueNumbers(t *testing.T) {
	store := &fakeNumberStore{existing: map[string]bool{}}
	gen := NewGenerator(store, "SUMMIT26")

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		number, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.False(t, seen[number], "duplicate number %s", number)
		seen[number] = true
		store.existing[number] = true
	}
}

func TestGenerateFormat(t *testing.T) {
	store := &fakeNumberStore{existing: map[string]bool{}}
	gen := NewGenerator(store, "SUMMIT26")

	number, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(number, "GP-SUM"), "unexpected prefix: %s", number)
	parts := strings.Split(number, "-")
	require.Len(t, parts, 3)
	assert.Len(t, parts[2], 4)
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	// First 5 existence checks report a collision; the 6th succeeds.
	store := &fakeNumberStore{existing: map[string]bool{}, collisions: 5}
	gen := NewGenerator(store, "SUMMIT26")

	number, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, number)
	assert.Equal(t, 6, store.checks)
	assert.False(t, strings.HasPrefix(number, "GP-F-"))
}

func TestGenerateFallbackAfterExhaustedAttempts(t *testing.T) {
	store := &fakeNumberStore{existing: map[string]bool{}, collisions: maxAttempts}
	gen := NewGenerator(store, "SUMMIT26")

	number, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(number, "GP-F-"), "expected fallback number, got %s", number)
	assert.Len(t, number, len("GP-F-")+32)
}

func TestGenerateFallbackNumbersDiffer(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		store := &fakeNumberStore{existing: map[string]bool{}, collisions: maxAttempts}
		gen := NewGenerator(store, "SUMMIT26")

		number, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.False(t, seen[number], "duplicate fallback %s", number)
		seen[number] = true
	}
}

func TestGeneratePropagatesStorageFault(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &fakeNumberStore{err: storeErr}
	gen := NewGenerator(store, "SUMMIT26")

	_, err := gen.Generate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
}
