// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package schedule decides whether a schedule wants its job running at a
// given instant. Callers sample the clock once per pass and hand the same
// now to every evaluation.
package schedule

import (
	"time"

	"github.com/ManuGH/iptranscoder/internal/model"
)

// OneOffActive reports whether s is enabled and StartAt <= now < EndAt.
func OneOffActive(s model.Schedule, now time.Time) bool {
	if !s.Enabled {
		return false
	}
	return !now.Before(s.StartAt) && now.Before(s.EndAt)
}

// RecurringActive reports whether r covers now. now must already be in the
// location the schedule's wall clock times refer to.
//
// A window with EndTime <= StartTime is never active; such windows are
// rejected on save.
func RecurringActive(r model.RecurringSchedule, now time.Time) bool {
	if !r.Enabled {
		return false
	}
	if !r.Days.On(now.Weekday()) {
		return false
	}
	if r.EndTime <= r.StartTime {
		return false
	}
	tod := model.TimeOfDayOf(now)
	if tod < r.StartTime || tod >= r.EndTime {
		return false
	}
	today := model.DateOf(now)
	if r.DateFrom != nil && today.Before(*r.DateFrom) {
		return false
	}
	if r.DateTo != nil && today.After(*r.DateTo) {
		return false
	}
	return true
}
