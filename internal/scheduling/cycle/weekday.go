package cycle

import (
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// WeekdayFromName resolves a notification_weekday value.
func WeekdayFromName(name string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}

// NextWeekday moves date to the named weekday of its Sunday-started week,
// or of the following week when that day already lies before date. The time
// of day is kept. Unknown names leave date unchanged.
func NextWeekday(date time.Time, name string) time.Time {
	wd, ok := WeekdayFromName(name)
	if !ok {
		return date
	}
	moved := date.AddDate(0, 0, int(wd)-int(date.Weekday()))
	if moved.Before(date) {
		moved = moved.AddDate(0, 0, 7)
	}
	return moved
}
