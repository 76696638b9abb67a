package timeslot

import (
	"testing"
	"time"
)

func TestConstraints_Permits(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	maxNotice := 48.0

	tests := []struct {
		name        string
		constraints Constraints
		window      Window
		expected    bool
	}{
		{
			name:        "zero constraints permit any valid window",
			constraints: Constraints{},
			window: Window{
				Start:    time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
				End:      time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
				Timezone: "UTC",
			},
			expected: true,
		},
		{
			name:        "invalid window is always rejected",
			constraints: Constraints{},
			window: Window{
				Start:    time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
				End:      time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
				Timezone: "UTC",
			},
			expected: false,
		},
		{
			name:        "window inside the notice period is rejected",
			constraints: Constraints{MinNoticeHours: 4},
			window: Window{
				Start:    time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC),
				End:      time.Date(2024, 1, 2, 11, 30, 0, 0, time.UTC),
				Timezone: "UTC",
			},
			expected: false,
		},
		{
			name:        "window at the notice boundary is permitted",
			constraints: Constraints{MinNoticeHours: 4},
			window: Window{
				Start:    time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC),
				End:      time.Date(2024, 1, 2, 12, 30, 0, 0, time.UTC),
				Timezone: "UTC",
			},
			expected: true,
		},
		{
			name:        "window past the maximum notice is rejected",
			constraints: Constraints{MaxNoticeHours: &maxNotice},
			window: Window{
				Start:    time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
				End:      time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC),
				Timezone: "UTC",
			},
			expected: false,
		},
		{
			name:        "duration below the minimum is rejected",
			constraints: Constraints{MinDurationMinutes: 45},
			window: Window{
				Start:    time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
				End:      time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
				Timezone: "UTC",
			},
			expected: false,
		},
		{
			name:        "duration above the maximum is rejected",
			constraints: Constraints{MaxDurationMinutes: 60},
			window: Window{
				Start:    time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
				End:      time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC),
				Timezone: "UTC",
			},
			expected: false,
		},
		{
			name: "window inside working hours is permitted",
			constraints: Constraints{
				WorkingHours: &HoursBand{StartMinute: 9 * 60, EndMinute: 18 * 60},
			},
			window: Window{
				Start:    time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC),
				End:      time.Date(2024, 1, 2, 18, 0, 0, 0, time.UTC),
				Timezone: "UTC",
			},
			expected: true,
		},
		{
			name: "window spilling past the band end is rejected",
			constraints: Constraints{
				WorkingHours: &HoursBand{StartMinute: 9 * 60, EndMinute: 18 * 60},
			},
			window: Window{
				Start:    time.Date(2024, 1, 2, 17, 30, 0, 0, time.UTC),
				End:      time.Date(2024, 1, 2, 18, 30, 0, 0, time.UTC),
				Timezone: "UTC",
			},
			expected: false,
		},
		{
			name: "window crossing midnight is rejected",
			constraints: Constraints{
				WorkingHours: &HoursBand{StartMinute: 0, EndMinute: 24 * 60},
			},
			window: Window{
				Start:    time.Date(2024, 1, 2, 23, 30, 0, 0, time.UTC),
				End:      time.Date(2024, 1, 3, 0, 30, 0, 0, time.UTC),
				Timezone: "UTC",
			},
			expected: false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.constraints.Permits(tc.window, now, time.UTC)
			if got != tc.expected {
				t.Fatalf("Permits returned %v, expected %v", got, tc.expected)
			}
		})
	}
}

func TestConstraints_PermitsEvaluatesWorkingHoursInSessionZone(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	constraints := Constraints{
		WorkingHours: &HoursBand{StartMinute: 9 * 60, EndMinute: 18 * 60},
	}
	// 01:00 UTC is 10:00 in Tokyo.
	window := Window{
		Start:    time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC),
		Timezone: "Asia/Tokyo",
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if !constraints.Permits(window, now, tokyo) {
		t.Fatalf("expected window to be permitted in Tokyo working hours")
	}
	if constraints.Permits(window, now, time.UTC) {
		t.Fatalf("expected window to be rejected against UTC working hours")
	}
}

func TestParseConstraints(t *testing.T) {
	t.Parallel()

	t.Run("empty map yields the zero value", func(t *testing.T) {
		t.Parallel()
		constraints, err := ParseConstraints(nil)
		if err != nil {
			t.Fatalf("ParseConstraints returned error: %v", err)
		}
		if constraints.WorkingHours != nil || constraints.MinNoticeHours != 0 {
			t.Fatalf("expected zero constraints, got %+v", constraints)
		}
	})

	t.Run("parses recognised keys", func(t *testing.T) {
		t.Parallel()
		constraints, err := ParseConstraints(map[string]any{
			"minNoticeHours":     4,
			"maxNoticeHours":     "72",
			"minDurationMinutes": float64(15),
			"maxDurationMinutes": 120,
			"workingHoursStart":  "09:00",
			"workingHoursEnd":    "18:00",
		})
		if err != nil {
			t.Fatalf("ParseConstraints returned error: %v", err)
		}
		if constraints.MinNoticeHours != 4 {
			t.Fatalf("unexpected min notice: %v", constraints.MinNoticeHours)
		}
		if constraints.MaxNoticeHours == nil || *constraints.MaxNoticeHours != 72 {
			t.Fatalf("unexpected max notice: %v", constraints.MaxNoticeHours)
		}
		if constraints.MinDurationMinutes != 15 || constraints.MaxDurationMinutes != 120 {
			t.Fatalf("unexpected duration bounds: %+v", constraints)
		}
		if constraints.WorkingHours == nil {
			t.Fatalf("expected working hours to be set")
		}
		if constraints.WorkingHours.StartMinute != 9*60 || constraints.WorkingHours.EndMinute != 18*60 {
			t.Fatalf("unexpected working hours: %+v", constraints.WorkingHours)
		}
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		t.Parallel()
		constraints, err := ParseConstraints(map[string]any{
			"preferredRoom": "board-room",
		})
		if err != nil {
			t.Fatalf("ParseConstraints returned error: %v", err)
		}
		if constraints.WorkingHours != nil {
			t.Fatalf("expected no working hours, got %+v", constraints.WorkingHours)
		}
	})

	t.Run("rejects lone working hours key", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseConstraints(map[string]any{"workingHoursStart": "09:00"}); err == nil {
			t.Fatalf("expected error for unpaired working hours")
		}
	})

	t.Run("rejects inverted working hours", func(t *testing.T) {
		t.Parallel()
		_, err := ParseConstraints(map[string]any{
			"workingHoursStart": "18:00",
			"workingHoursEnd":   "09:00",
		})
		if err == nil {
			t.Fatalf("expected error for inverted working hours")
		}
	})

	t.Run("rejects negative notice", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseConstraints(map[string]any{"minNoticeHours": -1}); err == nil {
			t.Fatalf("expected error for negative notice")
		}
	})

	t.Run("rejects malformed clock strings", func(t *testing.T) {
		t.Parallel()
		_, err := ParseConstraints(map[string]any{
			"workingHoursStart": "nine",
			"workingHoursEnd":   "18:00",
		})
		if err == nil {
			t.Fatalf("expected error for malformed clock string")
		}
	})
}
