// Package schedule decides whether the current instant falls inside the
// configured operating window. It performs no I/O and runs before any
// network call in the pipeline.
package schedule

import (
	"fmt"
	"time"
)

// WithinWindow reports whether now, viewed in the named timezone, lands on an
// allowed weekday with a time-of-day inside [start, end] (inclusive, minute
// granularity). start and end use the "HH:MM" form. An unresolvable timezone
// fails open: a broken calendar lookup must not silently halt the pipeline.
func WithinWindow(now time.Time, timezone string, weekdays map[time.Weekday]bool, start, end string) bool {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return true
	}

	local := now.In(loc)
	if !weekdays[local.Weekday()] {
		return false
	}

	startMin, err := parseClock(start)
	if err != nil {
		return true
	}
	endMin, err := parseClock(end)
	if err != nil {
		return true
	}

	minute := local.Hour()*60 + local.Minute()
	return minute >= startMin && minute <= endMin
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
