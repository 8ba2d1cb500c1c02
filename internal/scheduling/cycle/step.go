package cycle

import (
	"time"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
)

// NextIssueDate returns the issue date of the occurrence that follows one
// issued at prev. Spontaneous questionnaires ignore prev and are due today.
func NextIssueDate(q *types.Questionnaire, prev time.Time, opts Options) time.Time {
	loc := opts.location()
	prev = prev.In(loc)
	switch q.CycleUnit {
	case types.CycleUnitSpontan:
		return startOfDay(opts.now().In(loc))
	case types.CycleUnitHour:
		return nextHour(q, prev)
	case types.CycleUnitDay:
		return addDays(prev, q.CycleAmount)
	case types.CycleUnitWeek:
		return addDays(prev, 7*q.CycleAmount)
	case types.CycleUnitMonth:
		next := addMonths(prev, q.CycleAmount)
		if q.Weekday() != "" {
			next = NextWeekday(next, q.Weekday())
		}
		return next
	default:
		return prev
	}
}

func nextHour(q *types.Questionnaire, prev time.Time) time.Time {
	firstHour := q.FirstHour()
	amount := max(q.CycleAmount, 1)
	day := scheduleDay(prev, firstHour)
	anchor := atHour(day, firstHour)
	nextAnchor := atHour(addDays(day, 1), firstHour)

	taken := 1
	if !prev.Before(anchor) {
		taken = int(prev.Sub(anchor)/time.Hour)/amount + 1
	}
	if taken >= max(q.PerDay(), 1) {
		return nextAnchor
	}
	next := addHours(prev, amount)
	if !next.Before(dayBoundary(day, firstHour)) {
		return nextAnchor
	}
	return next
}
