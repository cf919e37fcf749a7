// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"time"
)

// Purpose is the kind of job a schedule requests for its channel.
type Purpose string

const (
	PurposeLiveForward Purpose = "live_forward"
	PurposeRecord      Purpose = "record"
	PurposePlayback    Purpose = "playback"
)

// Purposes lists every known purpose in display order.
var Purposes = []Purpose{PurposeLiveForward, PurposeRecord, PurposePlayback}

// Schedule is a one-off window [StartAt, EndAt) during which a job runs.
type Schedule struct {
	ID        int64     `json:"id" yaml:"id"`
	ChannelID int64     `json:"channel_id" yaml:"channel_id"`
	Channel   *Channel  `json:"-" yaml:"-"`
	Name      string    `json:"name" yaml:"name"`
	Purpose   Purpose   `json:"purpose" yaml:"purpose"`
	Enabled   bool      `json:"enabled" yaml:"enabled"`
	StartAt   time.Time `json:"start_at" yaml:"start_at"`
	EndAt     time.Time `json:"end_at" yaml:"end_at"`
}

// Weekdays holds one flag per day of the week.
type Weekdays struct {
	Monday    bool `json:"monday" yaml:"monday"`
	Tuesday   bool `json:"tuesday" yaml:"tuesday"`
	Wednesday bool `json:"wednesday" yaml:"wednesday"`
	Thursday  bool `json:"thursday" yaml:"thursday"`
	Friday    bool `json:"friday" yaml:"friday"`
	Saturday  bool `json:"saturday" yaml:"saturday"`
	Sunday    bool `json:"sunday" yaml:"sunday"`
}

// On reports whether the flag for d is set.
func (w Weekdays) On(d time.Weekday) bool {
	switch d {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	case time.Sunday:
		return w.Sunday
	}
	return false
}

// Any reports whether at least one day is set.
func (w Weekdays) Any() bool {
	return w.Monday || w.Tuesday || w.Wednesday || w.Thursday || w.Friday || w.Saturday || w.Sunday
}

// Mask packs the flags into a bitmask indexed by time.Weekday.
func (w Weekdays) Mask() uint8 {
	var m uint8
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.On(d) {
			m |= 1 << uint(d)
		}
	}
	return m
}

// WeekdaysFromMask is the inverse of Weekdays.Mask.
func WeekdaysFromMask(m uint8) Weekdays {
	on := func(d time.Weekday) bool { return m&(1<<uint(d)) != 0 }
	return Weekdays{
		Monday:    on(time.Monday),
		Tuesday:   on(time.Tuesday),
		Wednesday: on(time.Wednesday),
		Thursday:  on(time.Thursday),
		Friday:    on(time.Friday),
		Saturday:  on(time.Saturday),
		Sunday:    on(time.Sunday),
	}
}

// RecurringSchedule is a weekly window [StartTime, EndTime), optionally bounded
// by an inclusive date range.
type RecurringSchedule struct {
	ID        int64     `json:"id" yaml:"id"`
	ChannelID int64     `json:"channel_id" yaml:"channel_id"`
	Channel   *Channel  `json:"-" yaml:"-"`
	Name      string    `json:"name" yaml:"name"`
	Purpose   Purpose   `json:"purpose" yaml:"purpose"`
	Enabled   bool      `json:"enabled" yaml:"enabled"`
	Days      Weekdays  `json:"days" yaml:"days"`
	StartTime TimeOfDay `json:"start_time" yaml:"start_time"`
	EndTime   TimeOfDay `json:"end_time" yaml:"end_time"`
	DateFrom  *Date     `json:"date_from,omitempty" yaml:"date_from,omitempty"`
	DateTo    *Date     `json:"date_to,omitempty" yaml:"date_to,omitempty"`
}
