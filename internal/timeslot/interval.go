package timeslot

import (
	"sort"
	"time"
)

// Interval represents a half-open span of time [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// IsValid reports whether the interval has a positive duration.
func (i Interval) IsValid() bool {
	return i.Start.Before(i.End)
}

// Duration returns the span covered by the interval.
func (i Interval) Duration() time.Duration {
	if !i.IsValid() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Overlaps reports whether two intervals share any instant.
func (i Interval) Overlaps(other Interval) bool {
	if !i.IsValid() || !other.IsValid() {
		return false
	}
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether the receiver fully covers the other interval.
func (i Interval) Contains(other Interval) bool {
	if !i.IsValid() || !other.IsValid() {
		return false
	}
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Merge normalises a set of intervals: invalid entries are dropped, the rest
// are sorted by start time and overlapping or touching spans are coalesced.
func Merge(intervals []Interval) []Interval {
	valid := make([]Interval, 0, len(intervals))
	for _, interval := range intervals {
		if interval.IsValid() {
			valid = append(valid, interval)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	sort.Slice(valid, func(i, j int) bool {
		if valid[i].Start.Equal(valid[j].Start) {
			return valid[i].End.Before(valid[j].End)
		}
		return valid[i].Start.Before(valid[j].Start)
	})

	merged := make([]Interval, 0, len(valid))
	current := valid[0]
	for _, next := range valid[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)

	return merged
}

// Complement returns the free intervals within the horizon once the busy
// intervals are removed. Busy time outside the horizon is ignored.
func Complement(busy []Interval, horizon Interval) []Interval {
	if !horizon.IsValid() {
		return nil
	}

	free := make([]Interval, 0, len(busy)+1)
	cursor := horizon.Start
	for _, interval := range Merge(busy) {
		if !interval.End.After(horizon.Start) {
			continue
		}
		if !interval.Start.Before(horizon.End) {
			break
		}
		if interval.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: interval.Start})
		}
		if interval.End.After(cursor) {
			cursor = interval.End
		}
	}
	if cursor.Before(horizon.End) {
		free = append(free, Interval{Start: cursor, End: horizon.End})
	}

	if len(free) == 0 {
		return nil
	}
	return free
}

// Intersect returns the spans present in both interval sets. Inputs are
// normalised before pairing, so callers may pass unsorted data.
func Intersect(a, b []Interval) []Interval {
	left := Merge(a)
	right := Merge(b)

	result := make([]Interval, 0, len(left))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		start := left[i].Start
		if right[j].Start.After(start) {
			start = right[j].Start
		}
		end := left[i].End
		if right[j].End.Before(end) {
			end = right[j].End
		}
		if start.Before(end) {
			result = append(result, Interval{Start: start, End: end})
		}
		if left[i].End.Before(right[j].End) {
			i++
		} else {
			j++
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
