package hitstorage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRowStore(t *testing.T) *RowStore {
	t.Helper()
	s, err := NewRowStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestRowStore_StoreAndTotalHits(t *testing.T) {
	s := newTestRowStore(t)
	ctx := context.Background()

	now := time.Now()
	err := s.StoreHits(ctx, []Hit{
		{ShortCode: "abc", Timestamp: now},
		{ShortCode: "abc", Timestamp: now},
		{ShortCode: "xyz", Timestamp: now},
	})
	require.NoError(t, err)

	total, err := s.TotalHits(ctx, "abc")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestRowStore_HitsByDevice(t *testing.T) {
	s := newTestRowStore(t)
	ctx := context.Background()

	mobile := "mobile"
	desktop := "desktop"
	now := time.Now()
	require.NoError(t, s.StoreHits(ctx, []Hit{
		{ShortCode: "abc", Timestamp: now, DeviceType: &mobile},
		{ShortCode: "abc", Timestamp: now, DeviceType: &mobile},
		{ShortCode: "abc", Timestamp: now, DeviceType: &desktop},
	}))

	byDevice, err := s.HitsByDevice(ctx, "abc")
	require.NoError(t, err)
	assert.EqualValues(t, 2, byDevice["mobile"])
	assert.EqualValues(t, 1, byDevice["desktop"])
}

func TestRowStore_TopReferersOrderedByCountThenReferer(t *testing.T) {
	s := newTestRowStore(t)
	ctx := context.Background()

	now := time.Now()
	a, b, c := "a.example", "b.example", "c.example"
	require.NoError(t, s.StoreHits(ctx, []Hit{
		{ShortCode: "abc", Timestamp: now, Referer: &c},
		{ShortCode: "abc", Timestamp: now, Referer: &a},
		{ShortCode: "abc", Timestamp: now, Referer: &a},
		{ShortCode: "abc", Timestamp: now, Referer: &b},
		{ShortCode: "abc", Timestamp: now, Referer: &b},
	}))

	top, err := s.TopReferers(ctx, "abc", 10)
	require.NoError(t, err)
	require.Len(t, top, 3)

	// a and b both have count 2, so the tie is broken lexicographically;
	// c has the lone hit and sorts last by count.
	assert.Equal(t, []ReferrerCount{
		{Referer: "a.example", Count: 2},
		{Referer: "b.example", Count: 2},
		{Referer: "c.example", Count: 1},
	}, top)
}

func TestRowStore_HitsOverTimeAscendingByDate(t *testing.T) {
	s := newTestRowStore(t)
	ctx := context.Background()

	day1 := time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 11, 9, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 7, 12, 10, 0, 0, 0, time.UTC)

	// Inserted out of date order to prove the query sorts, not the
	// insertion order.
	require.NoError(t, s.StoreHits(ctx, []Hit{
		{ShortCode: "abc", Timestamp: day3},
		{ShortCode: "abc", Timestamp: day1},
		{ShortCode: "abc", Timestamp: day1},
		{ShortCode: "abc", Timestamp: day2},
	}))

	series, err := s.HitsOverTime(ctx, "abc", day1.Add(-time.Hour), day3.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, series, 3)

	assert.Equal(t, "2026-07-10", series[0].Date.Format("2006-01-02"))
	assert.EqualValues(t, 2, series[0].Count)
	assert.Equal(t, "2026-07-11", series[1].Date.Format("2006-01-02"))
	assert.EqualValues(t, 1, series[1].Count)
	assert.Equal(t, "2026-07-12", series[2].Date.Format("2006-01-02"))
	assert.EqualValues(t, 1, series[2].Count)
}

func TestRowStore_StoreHitsEmptyBatchIsNoOp(t *testing.T) {
	s := newTestRowStore(t)
	ctx := context.Background()

	require.NoError(t, s.StoreHits(ctx, nil))

	total, err := s.TotalHits(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Zero(t, total)
}
