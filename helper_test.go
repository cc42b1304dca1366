package advisor_test

import "time"

// stepClock returns a clock that starts at start and advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	current := start.Add(-step)
	return func() time.Time {
		current = current.Add(step)
		return current
	}
}

var baseTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
