// Package cycle computes issue dates for questionnaire instance series.
// Everything here is pure: the same inputs always give the same dates.
package cycle

import (
	"time"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
)

const defaultTimeZone = "Europe/Berlin"

// Options carries the per-call switches and the calendar context.
type Options struct {
	// HasInternalCondition collapses recurring cycles to a single occurrence;
	// later occurrences are chained on release.
	HasInternalCondition bool
	// OnlyLoginDependent skips date and research-team questionnaires, which
	// do not depend on the participant's first login.
	OnlyLoginDependent bool

	Location                *time.Location
	DefaultNotificationTime ClockTime
	// Now stands in for an unknown first login.
	Now time.Time
}

func (o Options) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	if loc, err := time.LoadLocation(defaultTimeZone); err == nil {
		return loc
	}
	return time.UTC
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Dates returns the ordered issue dates of the participant's instance series.
func Dates(q *types.Questionnaire, p *types.Participant, opts Options) []time.Time {
	if q == nil || p == nil || !eligible(q, p, opts) {
		return []time.Time{}
	}
	loc := opts.location()

	start, ok := startDate(q, p, opts)
	if !ok {
		return []time.Time{}
	}
	start = startOfDay(start.In(loc))
	switch q.CycleUnit {
	case types.CycleUnitSpontan:
	case types.CycleUnitHour:
		start = atHour(start, q.FirstHour())
	default:
		nt := notificationTime(p, opts)
		start = time.Date(start.Year(), start.Month(), start.Day(), nt.Hour, nt.Minute, 0, 0, loc)
	}

	if isSingleOccurrence(q, opts) {
		date := start
		if q.CycleUnit != types.CycleUnitDate {
			date = addDays(start, q.ActivateAfterDays)
		}
		if (q.CycleUnit == types.CycleUnitWeek || q.CycleUnit == types.CycleUnitMonth) && q.Weekday() != "" {
			date = NextWeekday(date, q.Weekday())
		}
		return []time.Time{date}
	}

	last := endOfDay(addDays(start, q.ActivateAfterDays+q.DeactivateAfterDays))
	switch q.CycleUnit {
	case types.CycleUnitMonth:
		return monthDates(q, start, last)
	case types.CycleUnitHour:
		return hourDates(q, start, last)
	case types.CycleUnitDay:
		return stepDates(q, start, last, func(t time.Time) time.Time { return addDays(t, q.CycleAmount) })
	case types.CycleUnitWeek:
		return stepDates(q, start, last, func(t time.Time) time.Time { return addDays(t, 7*q.CycleAmount) })
	default:
		return []time.Time{}
	}
}

func eligible(q *types.Questionnaire, p *types.Participant, opts Options) bool {
	loginIndependent := q.CycleUnit == types.CycleUnitDate || q.Type == types.TypeForResearchTeam
	if p.FirstLoggedInAt == nil && !loginIndependent {
		return false
	}
	if opts.OnlyLoginDependent && loginIndependent {
		return false
	}
	return true
}

func startDate(q *types.Questionnaire, p *types.Participant, opts Options) (time.Time, bool) {
	switch {
	case q.CycleUnit == types.CycleUnitDate:
		if q.ActivateAtDate == nil {
			return time.Time{}, false
		}
		return *q.ActivateAtDate, true
	case q.Type == types.TypeForResearchTeam:
		return q.CreatedAt, true
	default:
		login := opts.now()
		if p.FirstLoggedInAt != nil {
			login = *p.FirstLoggedInAt
		}
		return maxTime(login, q.CreatedAt), true
	}
}

func notificationTime(p *types.Participant, opts Options) ClockTime {
	if p.NotificationTime != nil {
		if ct, err := ParseClockTime(*p.NotificationTime); err == nil {
			return ct
		}
	}
	return opts.DefaultNotificationTime
}

func isSingleOccurrence(q *types.Questionnaire, opts Options) bool {
	switch q.CycleUnit {
	case types.CycleUnitOnce, types.CycleUnitDate, types.CycleUnitSpontan:
		return true
	}
	return opts.HasInternalCondition || q.CycleAmount < 1
}

func stepDates(q *types.Questionnaire, start, last time.Time, step func(time.Time) time.Time) []time.Time {
	out := []time.Time{}
	for d := addDays(start, q.ActivateAfterDays); !d.After(last); d = step(d) {
		if q.CycleUnit == types.CycleUnitWeek && q.Weekday() != "" {
			out = append(out, NextWeekday(d, q.Weekday()))
			continue
		}
		out = append(out, d)
	}
	return out
}

// monthDates derives every date from the offset start by index so that
// day-of-month clamping in short months does not drift later dates.
func monthDates(q *types.Questionnaire, start, last time.Time) []time.Time {
	out := []time.Time{}
	offset := addDays(start, q.ActivateAfterDays)
	for i := 0; ; i++ {
		d := addMonths(offset, q.CycleAmount*i)
		if !d.Before(last) {
			break
		}
		if q.Weekday() != "" {
			d = NextWeekday(d, q.Weekday())
		}
		out = append(out, d)
	}
	return out
}

// hourDates walks schedule days. Each day starts at its cycle_first_hour
// anchor and emits up to cycle_per_day dates cycle_amount hours apart, never
// crossing into the next schedule day.
func hourDates(q *types.Questionnaire, start, last time.Time) []time.Time {
	out := []time.Time{}
	firstHour := q.FirstHour()
	perDay := max(q.PerDay(), 1)
	day := scheduleDay(addDays(start, q.ActivateAfterDays), firstHour)
	for {
		anchor := atHour(day, firstHour)
		if anchor.After(last) {
			break
		}
		boundary := dayBoundary(day, firstHour)
		for k := 0; k < perDay; k++ {
			d := addHours(anchor, k*q.CycleAmount)
			if !d.Before(boundary) || d.After(last) {
				break
			}
			out = append(out, d)
		}
		day = addDays(day, 1)
	}
	return out
}

// scheduleDay returns the midnight of the schedule day t belongs to. With a
// negative first hour a day starts on the previous calendar evening.
func scheduleDay(t time.Time, firstHour int) time.Time {
	if firstHour < 0 {
		t = addHours(t, -firstHour)
	}
	return startOfDay(t)
}

// dayBoundary is the first instant after the schedule day that starts at day.
func dayBoundary(day time.Time, firstHour int) time.Time {
	return atHour(addDays(day, 1), min(firstHour, 0))
}
