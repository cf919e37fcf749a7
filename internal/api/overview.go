// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"fmt"

	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/store"
)

// ChannelOverview is one channel with everything scheduled on it.
type ChannelOverview struct {
	Channel   model.Channel           `json:"channel"`
	TimeShift *model.TimeShiftProfile `json:"time_shift,omitempty"`
	Recurring RecurringBuckets        `json:"recurring"`
	Schedules []model.Schedule        `json:"schedules"`
}

// RecurringBuckets groups recurring schedules by what they do.
type RecurringBuckets struct {
	Record   []model.RecurringSchedule `json:"record"`
	Playback []model.RecurringSchedule `json:"playback"`
	Other    []model.RecurringSchedule `json:"other"`
}

// Overview lists every channel in ID order.
type Overview struct {
	Channels []ChannelOverview `json:"channels"`
}

// BuildOverview reads the whole configuration and groups it per channel.
func BuildOverview(ctx context.Context, r store.Reader) (Overview, error) {
	channels, err := r.Channels(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("channels: %w", err)
	}
	profiles, err := r.TimeShiftProfiles(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("time-shift profiles: %w", err)
	}
	recurring, err := r.RecurringSchedules(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("recurring schedules: %w", err)
	}
	schedules, err := r.Schedules(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("schedules: %w", err)
	}

	byID := make(map[int64]*ChannelOverview, len(channels))
	out := Overview{Channels: make([]ChannelOverview, len(channels))}
	for i, ch := range channels {
		out.Channels[i] = ChannelOverview{
			Channel: ch,
			Recurring: RecurringBuckets{
				Record:   []model.RecurringSchedule{},
				Playback: []model.RecurringSchedule{},
				Other:    []model.RecurringSchedule{},
			},
			Schedules: []model.Schedule{},
		}
		byID[ch.ID] = &out.Channels[i]
	}

	for _, p := range profiles {
		if co, ok := byID[p.ChannelID]; ok {
			p := p
			co.TimeShift = &p
		}
	}
	for _, rs := range recurring {
		co, ok := byID[rs.ChannelID]
		if !ok {
			continue
		}
		switch rs.Purpose {
		case model.PurposeRecord:
			co.Recurring.Record = append(co.Recurring.Record, rs)
		case model.PurposePlayback:
			co.Recurring.Playback = append(co.Recurring.Playback, rs)
		default:
			co.Recurring.Other = append(co.Recurring.Other, rs)
		}
	}
	for _, s := range schedules {
		if co, ok := byID[s.ChannelID]; ok {
			co.Schedules = append(co.Schedules, s)
		}
	}
	return out, nil
}
