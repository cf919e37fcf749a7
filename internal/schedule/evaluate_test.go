// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/iptranscoder/internal/model"
)

func TestOneOffActiveBoundaries(t *testing.T) {
	t0 := time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)
	s := model.Schedule{Enabled: true, StartAt: t0, EndAt: t0.Add(10 * time.Minute)}

	assert.False(t, OneOffActive(s, t0.Add(-time.Nanosecond)), "before start")
	assert.True(t, OneOffActive(s, t0), "at start")
	assert.True(t, OneOffActive(s, t0.Add(9*time.Minute+59*time.Second)), "just before end")
	assert.False(t, OneOffActive(s, t0.Add(10*time.Minute)), "at end")
	assert.False(t, OneOffActive(s, t0.Add(time.Hour)), "after end")

	s.Enabled = false
	assert.False(t, OneOffActive(s, t0))
}

func TestOneOffActiveAcrossZones(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	t0 := time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)
	s := model.Schedule{Enabled: true, StartAt: t0, EndAt: t0.Add(time.Hour)}
	assert.True(t, OneOffActive(s, t0.In(berlin)))
}

func TestRecurringWeekdayGating(t *testing.T) {
	r := model.RecurringSchedule{
		Enabled:   true,
		Days:      model.Weekdays{Saturday: true},
		StartTime: model.Clock(0, 0, 0),
		EndTime:   model.Clock(23, 59, 59),
	}
	saturday := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	sunday := saturday.AddDate(0, 0, 1)
	assert.Equal(t, time.Saturday, saturday.Weekday())

	assert.True(t, RecurringActive(r, saturday))
	assert.False(t, RecurringActive(r, sunday))
}

func TestRecurringWindow(t *testing.T) {
	r := model.RecurringSchedule{
		Enabled:   true,
		Days:      model.Weekdays{Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true},
		StartTime: model.Clock(6, 0, 0),
		EndTime:   model.Clock(9, 0, 0),
	}
	monday := func(h, m, s int) time.Time { return time.Date(2026, 5, 4, h, m, s, 0, time.UTC) }

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before window", monday(5, 59, 59), false},
		{"window start", monday(6, 0, 0), true},
		{"inside", monday(7, 30, 0), true},
		{"last second", monday(8, 59, 59), true},
		{"window end", monday(9, 0, 0), false},
		{"weekend", time.Date(2026, 5, 9, 7, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecurringActive(r, tt.at))
		})
	}
}

func TestRecurringDateBounds(t *testing.T) {
	from := model.Date{Year: 2026, Month: time.May, Day: 4}
	to := model.Date{Year: 2026, Month: time.May, Day: 6}
	r := model.RecurringSchedule{
		Enabled:   true,
		Days:      model.Weekdays{Sunday: true, Monday: true, Tuesday: true, Wednesday: true, Thursday: true},
		StartTime: model.Clock(10, 0, 0),
		EndTime:   model.Clock(11, 0, 0),
		DateFrom:  &from,
		DateTo:    &to,
	}
	at := func(day int) time.Time { return time.Date(2026, 5, day, 10, 30, 0, 0, time.UTC) }

	assert.False(t, RecurringActive(r, at(3)), "day before date_from")
	assert.True(t, RecurringActive(r, at(4)), "date_from is inclusive")
	assert.True(t, RecurringActive(r, at(6)), "date_to is inclusive")
	assert.False(t, RecurringActive(r, at(7)), "day after date_to")

	r.DateFrom = nil
	assert.True(t, RecurringActive(r, at(3)))
}

func TestRecurringOvernightInactive(t *testing.T) {
	r := model.RecurringSchedule{
		Enabled:   true,
		Days:      model.Weekdays{Saturday: true, Sunday: true},
		StartTime: model.Clock(22, 0, 0),
		EndTime:   model.Clock(2, 0, 0),
	}
	assert.False(t, RecurringActive(r, time.Date(2026, 5, 2, 23, 0, 0, 0, time.UTC)))
	assert.False(t, RecurringActive(r, time.Date(2026, 5, 3, 1, 0, 0, 0, time.UTC)))

	r.EndTime = r.StartTime
	assert.False(t, RecurringActive(r, time.Date(2026, 5, 2, 22, 0, 0, 0, time.UTC)))
}

func TestRecurringUsesLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	r := model.RecurringSchedule{
		Enabled:   true,
		Days:      model.Weekdays{Friday: true},
		StartTime: model.Clock(20, 0, 0),
		EndTime:   model.Clock(22, 0, 0),
	}
	// Saturday 01:00 UTC is Friday 21:00 in New York.
	utc := time.Date(2026, 5, 9, 1, 0, 0, 0, time.UTC)
	assert.False(t, RecurringActive(r, utc))
	assert.True(t, RecurringActive(r, utc.In(ny)))
}

func TestRecurringDisabled(t *testing.T) {
	r := model.RecurringSchedule{
		Days:      model.Weekdays{Saturday: true},
		StartTime: model.Clock(0, 0, 0),
		EndTime:   model.Clock(23, 59, 59),
	}
	assert.False(t, RecurringActive(r, time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)))
}
