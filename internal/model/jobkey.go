// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ScheduleKind distinguishes the two schedule tables.
type ScheduleKind string

const (
	KindOneOff    ScheduleKind = "oneoff"
	KindRecurring ScheduleKind = "recurring"
	// KindManual marks operator-started jobs that no schedule backs.
	KindManual ScheduleKind = "manual"
)

// JobKey identifies one schedule-driven job. It lives only in memory.
type JobKey struct {
	Kind ScheduleKind
	ID   int64
}

// ManualKey returns the key of an operator-started job for a channel.
func ManualKey(channelID int64) JobKey { return JobKey{Kind: KindManual, ID: channelID} }

// OneOffKey returns the key of a one-off schedule.
func OneOffKey(id int64) JobKey { return JobKey{Kind: KindOneOff, ID: id} }

// RecurringKey returns the key of a recurring schedule.
func RecurringKey(id int64) JobKey { return JobKey{Kind: KindRecurring, ID: id} }

func (k JobKey) String() string {
	return string(k.Kind) + ":" + strconv.FormatInt(k.ID, 10)
}

// Less orders keys by kind, then ID.
func (k JobKey) Less(o JobKey) bool {
	if k.Kind != o.Kind {
		return k.Kind < o.Kind
	}
	return k.ID < o.ID
}

// MarshalText implements encoding.TextMarshaler so keys can be JSON map keys.
func (k JobKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseJobKey parses the "kind:id" form produced by String.
func ParseJobKey(s string) (JobKey, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return JobKey{}, fmt.Errorf("invalid job key %q", s)
	}
	k := ScheduleKind(kind)
	if k != KindOneOff && k != KindRecurring && k != KindManual {
		return JobKey{}, fmt.Errorf("invalid job key kind %q", kind)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return JobKey{}, fmt.Errorf("invalid job key id %q: %w", id, err)
	}
	return JobKey{Kind: k, ID: n}, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *JobKey) UnmarshalText(b []byte) error {
	parsed, err := ParseJobKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
