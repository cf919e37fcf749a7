// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists channels and schedules. The enforcer only reads;
// writes come from seeding and import.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/iptranscoder/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// Reader is the query side used by the enforcer and the API.
// Schedules are returned with their Channel attached.
type Reader interface {
	// ActiveSchedules returns enabled one-off schedules with StartAt <= now < EndAt.
	ActiveSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error)
	// EnabledRecurringSchedules returns every enabled recurring schedule.
	EnabledRecurringSchedules(ctx context.Context) ([]model.RecurringSchedule, error)

	Channel(ctx context.Context, id int64) (model.Channel, error)
	Channels(ctx context.Context) ([]model.Channel, error)
	Schedules(ctx context.Context) ([]model.Schedule, error)
	RecurringSchedules(ctx context.Context) ([]model.RecurringSchedule, error)
	TimeShiftProfiles(ctx context.Context) ([]model.TimeShiftProfile, error)

	Ping(ctx context.Context) error
}

// Writer validates and saves records. A zero ID allocates a new one and
// writes it back into the argument.
type Writer interface {
	SaveChannel(ctx context.Context, ch *model.Channel) error
	SaveSchedule(ctx context.Context, s *model.Schedule) error
	SaveRecurringSchedule(ctx context.Context, r *model.RecurringSchedule) error
	SaveTimeShiftProfile(ctx context.Context, p *model.TimeShiftProfile) error
}

// Store is a complete backend.
type Store interface {
	Reader
	Writer
	// Verify checks the backing storage for corruption and returns one
	// message per problem found.
	Verify(ctx context.Context, mode string) ([]string, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Open creates a Store based on the backend configuration.
func Open(ctx context.Context, backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return OpenSqliteStore(ctx, path)
	case BackendBadger:
		return OpenBadgerStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}

func stamp(ch *model.Channel, now time.Time) {
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = now
	}
	ch.UpdatedAt = now
}

func validateChannel(ch *model.Channel) error {
	if ch == nil {
		return errors.New("store: nil channel")
	}
	return model.ValidateChannel(*ch)
}
