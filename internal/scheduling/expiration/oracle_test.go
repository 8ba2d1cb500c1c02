package expiration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOracleIsExpired(t *testing.T) {
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	clk := &clock{now: now}
	src := &fakeSource{rows: []FollowUpEndDate{
		{PersonUUID: "ended", LatestFollowUpEndDate: now.Add(-time.Hour)},
		{PersonUUID: "running", LatestFollowUpEndDate: now.Add(24 * time.Hour)},
	}}
	oracle := NewOracle(newCache(t, src, clk), time.UTC)

	cases := []struct {
		name string
		s    Subject
		want bool
	}{
		{"issued_31_days_ago_expires_after_30", Subject{IssuedAt: now.AddDate(0, 0, -31), ExpiresAfterDays: 30}, true},
		{"issued_29_days_ago_expires_after_30", Subject{IssuedAt: now.AddDate(0, 0, -29), ExpiresAfterDays: 30}, false},
		{"exactly_at_expiry", Subject{IssuedAt: now.AddDate(0, 0, -30), ExpiresAfterDays: 30}, false},
		{"follow_up_ended", Subject{IssuedAt: now, ExpiresAfterDays: 30, ParticipantKey: "ended"}, true},
		{"follow_up_running", Subject{IssuedAt: now, ExpiresAfterDays: 30, ParticipantKey: "running"}, false},
		{"unknown_participant", Subject{IssuedAt: now, ExpiresAfterDays: 30, ParticipantKey: "other"}, false},
		{"zero_issue_date", Subject{ExpiresAfterDays: 30}, false},
	}
	for _, tc := range cases {
		if got := oracle.IsExpired(context.Background(), tc.s, now); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestOracleWithoutCache(t *testing.T) {
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	oracle := NewOracle(nil, nil)
	assert.True(t, oracle.IsExpired(context.Background(), Subject{IssuedAt: now.AddDate(0, 0, -2), ExpiresAfterDays: 1, ParticipantKey: "x"}, now))
	assert.False(t, oracle.IsExpired(context.Background(), Subject{IssuedAt: now, ExpiresAfterDays: 1}, now))

	var nilOracle *Oracle
	assert.False(t, nilOracle.IsExpired(context.Background(), Subject{IssuedAt: now.AddDate(-1, 0, 0)}, now))
}
