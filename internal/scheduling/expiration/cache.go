package expiration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

const (
	DefaultLookback     = 14 * 24 * time.Hour
	DefaultRetryBackoff = 5 * time.Minute
)

// FollowUpEndDate is the end of a participant's follow-up period as reported
// by the external follow-up system.
type FollowUpEndDate struct {
	PersonUUID            string
	LatestFollowUpEndDate time.Time
}

// EndDateSource lists follow-up end dates recorded since a point in time.
type EndDateSource interface {
	FetchEndDates(ctx context.Context, since time.Time) ([]FollowUpEndDate, error)
}

type CacheOptions struct {
	Location     *time.Location
	Lookback     time.Duration
	RetryBackoff time.Duration
	Now          func() time.Time
}

// EndDateCache holds one snapshot of follow-up end dates keyed by the
// participant's external id. The snapshot is valid until the next local
// midnight. A failed refresh keeps the previous snapshot and is retried after
// RetryBackoff.
type EndDateCache struct {
	src  EndDateSource
	log  *logger.Logger
	opts CacheOptions

	group singleflight.Group

	mu        sync.RWMutex
	entries   map[string]time.Time
	expiresAt time.Time
	retryAt   time.Time
}

func NewEndDateCache(src EndDateSource, baseLog *logger.Logger, opts CacheOptions) *EndDateCache {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Lookback <= 0 {
		opts.Lookback = DefaultLookback
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &EndDateCache{
		src:     src,
		log:     baseLog.With("component", "EndDateCache"),
		opts:    opts,
		entries: map[string]time.Time{},
	}
}

// Get returns the follow-up end date for key, refreshing the snapshot first
// when it has expired. Refresh failures are logged and the stale snapshot is
// used.
func (c *EndDateCache) Get(ctx context.Context, key string) (time.Time, bool) {
	if c == nil || c.src == nil {
		return time.Time{}, false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return time.Time{}, false
	}
	if c.due(c.opts.Now()) {
		_ = c.refresh(ctx, false)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	end, ok := c.entries[key]
	return end, ok
}

// Refresh fetches a new snapshot regardless of its expiry.
func (c *EndDateCache) Refresh(ctx context.Context) error {
	if c == nil || c.src == nil {
		return nil
	}
	return c.refresh(ctx, true)
}

// ExpiresAt is the instant the current snapshot goes stale. It is zero
// before the first successful refresh.
func (c *EndDateCache) ExpiresAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}

// Len is the number of participants in the current snapshot.
func (c *EndDateCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *EndDateCache) due(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !now.Before(c.expiresAt) && !now.Before(c.retryAt)
}

func (c *EndDateCache) refresh(ctx context.Context, force bool) error {
	_, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		now := c.opts.Now()
		if !force && !c.due(now) {
			return nil, nil
		}
		since := now.Add(-c.opts.Lookback)
		rows, err := c.src.FetchEndDates(ctx, since)
		if err != nil {
			c.mu.Lock()
			c.retryAt = now.Add(c.opts.RetryBackoff)
			c.mu.Unlock()
			c.log.Warn("Follow-up end date refresh failed, keeping previous snapshot",
				"error", err,
				"retry_at", now.Add(c.opts.RetryBackoff),
			)
			return nil, fmt.Errorf("refresh follow-up end dates: %w", err)
		}

		entries := make(map[string]time.Time, len(rows))
		for _, row := range rows {
			key := strings.TrimSpace(row.PersonUUID)
			if key == "" || row.LatestFollowUpEndDate.IsZero() {
				continue
			}
			if prev, ok := entries[key]; ok && prev.After(row.LatestFollowUpEndDate) {
				continue
			}
			entries[key] = row.LatestFollowUpEndDate
		}

		c.mu.Lock()
		c.entries = entries
		c.expiresAt = nextMidnight(now, c.opts.Location)
		c.retryAt = time.Time{}
		c.mu.Unlock()

		c.log.Debug("Follow-up end dates refreshed",
			"entries", len(entries),
			"since", since,
			"expires_at", c.expiresAt,
		)
		return nil, nil
	})
	return err
}

func nextMidnight(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
