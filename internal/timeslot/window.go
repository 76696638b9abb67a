package timeslot

import "time"

// Window is a candidate meeting slot carrying the timezone in which it was
// negotiated. Start and End remain absolute instants; the timezone only
// influences presentation and working-hours evaluation.
type Window struct {
	Start    time.Time
	End      time.Time
	Timezone string
}

// Interval strips the timezone annotation from the window.
func (w Window) Interval() Interval {
	return Interval{Start: w.Start, End: w.End}
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.Interval().Duration()
}

// Location resolves the window's timezone, falling back to UTC when the name
// is empty or unknown.
func (w Window) Location() *time.Location {
	if w.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
