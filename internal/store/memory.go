// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/ManuGH/iptranscoder/internal/model"
)

// MemoryStore keeps everything in maps. Used by tests and dry runs.
type MemoryStore struct {
	mu         sync.RWMutex
	channels   map[int64]model.Channel
	schedules  map[int64]model.Schedule
	recurring  map[int64]model.RecurringSchedule
	timeshifts map[int64]model.TimeShiftProfile
	nextID     int64

	now func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		channels:   make(map[int64]model.Channel),
		schedules:  make(map[int64]model.Schedule),
		recurring:  make(map[int64]model.RecurringSchedule),
		timeshifts: make(map[int64]model.TimeShiftProfile),
		now:        time.Now,
	}
}

func (m *MemoryStore) allocate(id int64) int64 {
	if id == 0 {
		m.nextID++
		return m.nextID
	}
	if id > m.nextID {
		m.nextID = id
	}
	return id
}

// attach returns a copy of the channel for eager loading; the caller holds mu.
func (m *MemoryStore) attach(id int64) *model.Channel {
	ch, ok := m.channels[id]
	if !ok {
		return nil
	}
	return &ch
}

func sortedValues[V any](in map[int64]V) []V {
	keys := slices.Sorted(maps.Keys(in))
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, in[k])
	}
	return out
}

func (m *MemoryStore) ActiveSchedules(_ context.Context, now time.Time) ([]model.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Schedule
	for _, s := range sortedValues(m.schedules) {
		if !s.Enabled || now.Before(s.StartAt) || !now.Before(s.EndAt) {
			continue
		}
		s.Channel = m.attach(s.ChannelID)
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryStore) EnabledRecurringSchedules(_ context.Context) ([]model.RecurringSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.RecurringSchedule
	for _, r := range sortedValues(m.recurring) {
		if !r.Enabled {
			continue
		}
		r.Channel = m.attach(r.ChannelID)
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryStore) Channel(_ context.Context, id int64) (model.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[id]
	if !ok {
		return model.Channel{}, fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	return ch, nil
}

func (m *MemoryStore) Channels(_ context.Context) ([]model.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.channels), nil
}

func (m *MemoryStore) Schedules(_ context.Context) ([]model.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := sortedValues(m.schedules)
	for i := range out {
		out[i].Channel = m.attach(out[i].ChannelID)
	}
	return out, nil
}

func (m *MemoryStore) RecurringSchedules(_ context.Context) ([]model.RecurringSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := sortedValues(m.recurring)
	for i := range out {
		out[i].Channel = m.attach(out[i].ChannelID)
	}
	return out, nil
}

func (m *MemoryStore) TimeShiftProfiles(_ context.Context) ([]model.TimeShiftProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := sortedValues(m.timeshifts)
	slices.SortFunc(out, func(a, b model.TimeShiftProfile) int { return cmp.Compare(a.ChannelID, b.ChannelID) })
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) SaveChannel(_ context.Context, ch *model.Channel) error {
	if err := validateChannel(ch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.channels[ch.ID]; ok && ch.ID != 0 {
		ch.CreatedAt = prev.CreatedAt
	}
	ch.ID = m.allocate(ch.ID)
	stamp(ch, m.now())
	m.channels[ch.ID] = *ch
	return nil
}

func (m *MemoryStore) SaveSchedule(_ context.Context, s *model.Schedule) error {
	if err := model.ValidateSchedule(*s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[s.ChannelID]; !ok {
		return fmt.Errorf("schedule %q: channel %d: %w", s.Name, s.ChannelID, ErrNotFound)
	}
	s.ID = m.allocate(s.ID)
	stored := *s
	stored.Channel = nil
	m.schedules[s.ID] = stored
	return nil
}

func (m *MemoryStore) SaveRecurringSchedule(_ context.Context, r *model.RecurringSchedule) error {
	if err := model.ValidateRecurringSchedule(*r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[r.ChannelID]; !ok {
		return fmt.Errorf("recurring schedule %q: channel %d: %w", r.Name, r.ChannelID, ErrNotFound)
	}
	r.ID = m.allocate(r.ID)
	stored := *r
	stored.Channel = nil
	m.recurring[r.ID] = stored
	return nil
}

func (m *MemoryStore) SaveTimeShiftProfile(_ context.Context, p *model.TimeShiftProfile) error {
	if err := model.ValidateTimeShiftProfile(*p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[p.ChannelID]; !ok {
		return fmt.Errorf("time-shift profile: channel %d: %w", p.ChannelID, ErrNotFound)
	}
	m.timeshifts[p.ChannelID] = *p
	return nil
}

func (m *MemoryStore) Verify(context.Context, string) ([]string, error) { return nil, nil }

func (m *MemoryStore) Close() error { return nil }
