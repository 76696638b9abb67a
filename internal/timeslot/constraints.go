package timeslot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HoursBand describes a daily working-hours window as minutes from midnight
// in the evaluation timezone. EndMinute may be 24*60 for end-of-day.
type HoursBand struct {
	StartMinute int
	EndMinute   int
}

// Constraints captures the scheduling rules attached to a connection's
// permission record. The zero value permits every window.
type Constraints struct {
	WorkingHours       *HoursBand
	MinNoticeHours     float64
	MaxNoticeHours     *float64
	MinDurationMinutes int
	MaxDurationMinutes int
}

// Permits reports whether the candidate window satisfies the constraints at
// the injected evaluation time. Working hours are evaluated in loc, which is
// the negotiation session's timezone rather than either participant's
// default zone. The check is pure: identical inputs always yield the same
// answer.
func (c Constraints) Permits(w Window, now time.Time, loc *time.Location) bool {
	if !w.Interval().IsValid() {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}

	if c.MinNoticeHours > 0 {
		earliest := now.Add(time.Duration(c.MinNoticeHours * float64(time.Hour)))
		if w.Start.Before(earliest) {
			return false
		}
	}
	if c.MaxNoticeHours != nil {
		latest := now.Add(time.Duration(*c.MaxNoticeHours * float64(time.Hour)))
		if w.Start.After(latest) {
			return false
		}
	}

	minutes := int(w.Duration() / time.Minute)
	if c.MinDurationMinutes > 0 && minutes < c.MinDurationMinutes {
		return false
	}
	if c.MaxDurationMinutes > 0 && minutes > c.MaxDurationMinutes {
		return false
	}

	if c.WorkingHours != nil {
		start := w.Start.In(loc)
		startMinute := start.Hour()*60 + start.Minute()
		// A window crossing midnight in the evaluation zone always exceeds
		// the daily band because endMinute grows past 24*60.
		endMinute := startMinute + minutes
		if startMinute < c.WorkingHours.StartMinute || endMinute > c.WorkingHours.EndMinute {
			return false
		}
	}

	return true
}

// ParseConstraints builds Constraints from the raw constraints map stored on
// a permission record. Absent keys leave the corresponding rule unset and
// unknown keys are ignored so that permission records can evolve without
// breaking older services.
//
// Recognised keys:
//   - workingHoursStart, workingHoursEnd: "HH:MM" strings
//   - minNoticeHours, maxNoticeHours: numbers
//   - minDurationMinutes, maxDurationMinutes: numbers
func ParseConstraints(raw map[string]any) (Constraints, error) {
	var constraints Constraints
	if len(raw) == 0 {
		return constraints, nil
	}

	if value, ok := raw["minNoticeHours"]; ok {
		hours, err := coerceFloat(value)
		if err != nil {
			return Constraints{}, fmt.Errorf("timeslot: minNoticeHours: %w", err)
		}
		if hours < 0 {
			return Constraints{}, fmt.Errorf("timeslot: minNoticeHours must not be negative")
		}
		constraints.MinNoticeHours = hours
	}

	if value, ok := raw["maxNoticeHours"]; ok {
		hours, err := coerceFloat(value)
		if err != nil {
			return Constraints{}, fmt.Errorf("timeslot: maxNoticeHours: %w", err)
		}
		if hours <= 0 {
			return Constraints{}, fmt.Errorf("timeslot: maxNoticeHours must be positive")
		}
		constraints.MaxNoticeHours = &hours
	}

	if value, ok := raw["minDurationMinutes"]; ok {
		minutes, err := coerceInt(value)
		if err != nil {
			return Constraints{}, fmt.Errorf("timeslot: minDurationMinutes: %w", err)
		}
		constraints.MinDurationMinutes = minutes
	}

	if value, ok := raw["maxDurationMinutes"]; ok {
		minutes, err := coerceInt(value)
		if err != nil {
			return Constraints{}, fmt.Errorf("timeslot: maxDurationMinutes: %w", err)
		}
		constraints.MaxDurationMinutes = minutes
	}

	startRaw, hasStart := raw["workingHoursStart"]
	endRaw, hasEnd := raw["workingHoursEnd"]
	if hasStart != hasEnd {
		return Constraints{}, fmt.Errorf("timeslot: workingHoursStart and workingHoursEnd must be set together")
	}
	if hasStart {
		startMinute, err := parseClockMinute(startRaw)
		if err != nil {
			return Constraints{}, fmt.Errorf("timeslot: workingHoursStart: %w", err)
		}
		endMinute, err := parseClockMinute(endRaw)
		if err != nil {
			return Constraints{}, fmt.Errorf("timeslot: workingHoursEnd: %w", err)
		}
		if endMinute <= startMinute {
			return Constraints{}, fmt.Errorf("timeslot: working hours end must be after start")
		}
		constraints.WorkingHours = &HoursBand{StartMinute: startMinute, EndMinute: endMinute}
	}

	return constraints, nil
}

func coerceFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", value)
	}
}

func coerceInt(value any) (int, error) {
	parsed, err := coerceFloat(value)
	if err != nil {
		return 0, err
	}
	return int(parsed), nil
}

func parseClockMinute(value any) (int, error) {
	text, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("expected \"HH:MM\" string, got %T", value)
	}
	parts := strings.SplitN(strings.TrimSpace(text), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected \"HH:MM\", got %q", text)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("invalid hour in %q", text)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", text)
	}
	total := hour*60 + minute
	if total > 24*60 {
		return 0, fmt.Errorf("invalid time of day %q", text)
	}
	return total, nil
}
