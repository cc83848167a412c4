package match

import (
	"fmt"
	"time"
)

// windowSize is how far ahead of the requested time a schedule entry may lie
// and still match.
const windowSize = 15 * time.Minute

var weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Window is the concrete [start, end) match interval. When the interval
// crosses midnight it spans two day buckets: (Day, time >= Start) or
// (NextDay, time < End). The wraparound is computed on a modular day/time
// representation, never by naive subtraction.
type Window struct {
	Day   string
	Start string
	End   string
	Wraps bool
	// NextDay is set only when Wraps.
	NextDay string
}

// ComputeWindow builds the 15-minute window for a request at "HH:MM" on the
// given weekday.
func ComputeWindow(day, at string) (Window, error) {
	start, err := time.Parse("15:04", at)
	if err != nil {
		return Window{}, fmt.Errorf("invalid time %q: %w", at, err)
	}
	end := start.Add(windowSize)

	w := Window{Day: day, Start: start.Format("15:04")}
	if end.Day() == start.Day() {
		w.End = end.Format("15:04")
		return w, nil
	}

	next, err := nextWeekday(day)
	if err != nil {
		return Window{}, err
	}
	w.Wraps = true
	w.NextDay = next
	w.End = end.Format("15:04")
	return w, nil
}

func nextWeekday(day string) (string, error) {
	for i, d := range weekdays {
		if d == day {
			return weekdays[(i+1)%len(weekdays)], nil
		}
	}
	return "", fmt.Errorf("invalid weekday %q", day)
}
