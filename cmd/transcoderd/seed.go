// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/store"
)

// Seed is the import file format. Records are saved in field order so
// schedules can reference channels by explicit ID.
type Seed struct {
	Channels           []model.Channel           `yaml:"channels"`
	TimeShiftProfiles  []model.TimeShiftProfile  `yaml:"time_shift_profiles"`
	Schedules          []model.Schedule          `yaml:"schedules"`
	RecurringSchedules []model.RecurringSchedule `yaml:"recurring_schedules"`
}

// SeedCounts reports how many records an import saved.
type SeedCounts struct {
	Channels           int
	TimeShiftProfiles  int
	Schedules          int
	RecurringSchedules int
}

func readSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	return parseSeed(data)
}

func parseSeed(data []byte) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return Seed{}, errors.New("seed file is empty")
		}
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	return seed, nil
}

// Apply saves every record through w, stopping at the first error.
func (s Seed) Apply(ctx context.Context, w store.Writer) (SeedCounts, error) {
	var n SeedCounts
	for i := range s.Channels {
		if err := w.SaveChannel(ctx, &s.Channels[i]); err != nil {
			return n, fmt.Errorf("channel %q: %w", s.Channels[i].Name, err)
		}
		n.Channels++
	}
	for i := range s.TimeShiftProfiles {
		if err := w.SaveTimeShiftProfile(ctx, &s.TimeShiftProfiles[i]); err != nil {
			return n, fmt.Errorf("time-shift profile for channel %d: %w", s.TimeShiftProfiles[i].ChannelID, err)
		}
		n.TimeShiftProfiles++
	}
	for i := range s.Schedules {
		if err := w.SaveSchedule(ctx, &s.Schedules[i]); err != nil {
			return n, fmt.Errorf("schedule %q: %w", s.Schedules[i].Name, err)
		}
		n.Schedules++
	}
	for i := range s.RecurringSchedules {
		if err := w.SaveRecurringSchedule(ctx, &s.RecurringSchedules[i]); err != nil {
			return n, fmt.Errorf("recurring schedule %q: %w", s.RecurringSchedules[i].Name, err)
		}
		n.RecurringSchedules++
	}
	return n, nil
}
