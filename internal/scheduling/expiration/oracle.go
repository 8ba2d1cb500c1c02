// Package expiration decides whether an instance is past its expiry, taking
// the participant's follow-up end date into account.
package expiration

import (
	"context"
	"time"
)

// Subject is what the oracle needs to know about one instance.
type Subject struct {
	IssuedAt         time.Time
	ExpiresAfterDays int
	// ParticipantKey is the participant's external id (participants.ids).
	ParticipantKey string
}

type Oracle struct {
	cache *EndDateCache
	loc   *time.Location
}

// NewOracle builds an oracle. A nil cache disables the follow-up override.
func NewOracle(cache *EndDateCache, loc *time.Location) *Oracle {
	if loc == nil {
		loc = time.UTC
	}
	return &Oracle{cache: cache, loc: loc}
}

// IsExpired reports whether now is past the instance's expiry window or past
// the participant's follow-up end date.
func (o *Oracle) IsExpired(ctx context.Context, s Subject, now time.Time) bool {
	if o == nil {
		return false
	}
	if end, ok := o.cache.Get(ctx, s.ParticipantKey); ok && end.Before(now) {
		return true
	}
	if s.IssuedAt.IsZero() {
		return false
	}
	expiresAt := s.IssuedAt.In(o.loc).AddDate(0, 0, s.ExpiresAfterDays)
	return expiresAt.Before(now)
}
