package expiration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSource struct {
	calls atomic.Int32
	delay time.Duration

	mu    sync.Mutex
	rows  []FollowUpEndDate
	err   error
	since []time.Time
}

func (f *fakeSource) FetchEndDates(ctx context.Context, since time.Time) ([]FollowUpEndDate, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, since)
	if f.err != nil {
		return nil, f.err
	}
	return append([]FollowUpEndDate(nil), f.rows...), nil
}

func (f *fakeSource) set(rows []FollowUpEndDate, err error) {
	f.mu.Lock()
	f.rows, f.err = rows, err
	f.mu.Unlock()
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

var endOfFollowUp = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

func newCache(t *testing.T, src EndDateSource, clk *clock) *EndDateCache {
	return NewEndDateCache(src, testLogger(t), CacheOptions{
		Location:     time.UTC,
		RetryBackoff: 10 * time.Minute,
		Now:          clk.Now,
	})
}

func TestEndDateCacheFetchesOncePerDay(t *testing.T) {
	clk := &clock{now: time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)}
	src := &fakeSource{rows: []FollowUpEndDate{{PersonUUID: "person-1", LatestFollowUpEndDate: endOfFollowUp}}}
	cache := newCache(t, src, clk)

	end, ok := cache.Get(context.Background(), "person-1")
	require.True(t, ok)
	assert.Equal(t, endOfFollowUp, end)
	assert.Equal(t, time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), cache.ExpiresAt())
	assert.Equal(t, []time.Time{clk.Now().Add(-DefaultLookback)}, src.since)

	_, ok = cache.Get(context.Background(), "person-2")
	assert.False(t, ok)
	clk.Advance(14 * time.Hour)
	_, _ = cache.Get(context.Background(), "person-1")
	assert.EqualValues(t, 1, src.calls.Load(), "same day must not refetch")

	clk.Advance(time.Hour)
	_, _ = cache.Get(context.Background(), "person-1")
	assert.EqualValues(t, 2, src.calls.Load(), "past midnight must refetch")
}

func TestEndDateCacheSingleFlight(t *testing.T) {
	clk := &clock{now: time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)}
	src := &fakeSource{delay: 50 * time.Millisecond}
	cache := newCache(t, src, clk)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Get(context.Background(), "person-1")
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestEndDateCacheKeepsStaleSnapshotOnFailure(t *testing.T) {
	clk := &clock{now: time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC)}
	src := &fakeSource{rows: []FollowUpEndDate{{PersonUUID: "person-1", LatestFollowUpEndDate: endOfFollowUp}}}
	cache := newCache(t, src, clk)
	_, ok := cache.Get(context.Background(), "person-1")
	require.True(t, ok)

	src.set(nil, errors.New("connection refused"))
	clk.Advance(3 * time.Hour)

	end, ok := cache.Get(context.Background(), "person-1")
	require.True(t, ok, "stale entry must survive a failed refresh")
	assert.Equal(t, endOfFollowUp, end)
	assert.EqualValues(t, 2, src.calls.Load())

	_, _ = cache.Get(context.Background(), "person-1")
	assert.EqualValues(t, 2, src.calls.Load(), "no retry before backoff")

	src.set([]FollowUpEndDate{}, nil)
	clk.Advance(11 * time.Minute)
	_, ok = cache.Get(context.Background(), "person-1")
	assert.False(t, ok, "successful refresh replaces the snapshot")
	assert.EqualValues(t, 3, src.calls.Load())
	assert.Equal(t, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), cache.ExpiresAt())
}

func TestEndDateCacheRefreshErrors(t *testing.T) {
	clk := &clock{now: time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)}
	src := &fakeSource{err: errors.New("boom")}
	cache := newCache(t, src, clk)

	err := cache.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
	assert.True(t, cache.ExpiresAt().IsZero())
}

func TestEndDateCacheKeepsLatestDuplicate(t *testing.T) {
	clk := &clock{now: time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)}
	later := endOfFollowUp.AddDate(0, 0, 2)
	src := &fakeSource{rows: []FollowUpEndDate{
		{PersonUUID: "person-1", LatestFollowUpEndDate: later},
		{PersonUUID: " person-1 ", LatestFollowUpEndDate: endOfFollowUp},
		{PersonUUID: "", LatestFollowUpEndDate: endOfFollowUp},
	}}
	cache := newCache(t, src, clk)
	require.NoError(t, cache.Refresh(context.Background()))

	end, ok := cache.Get(context.Background(), "person-1")
	require.True(t, ok)
	assert.Equal(t, later, end)
	assert.Equal(t, 1, cache.Len())
}

func TestEndDateCacheWithoutSource(t *testing.T) {
	cache := NewEndDateCache(nil, testLogger(t), CacheOptions{})
	_, ok := cache.Get(context.Background(), "person-1")
	assert.False(t, ok)
	assert.NoError(t, cache.Refresh(context.Background()))
}
