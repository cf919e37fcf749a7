// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ManuGH/iptranscoder/internal/model"
)

// Key layout, values are JSON:
//
//	chan:<id>   model.Channel
//	once:<id>   model.Schedule
//	rec:<id>    model.RecurringSchedule
//	tsp:<id>    model.TimeShiftProfile (keyed by channel ID)
const (
	prefixChannel   = "chan:"
	prefixSchedule  = "once:"
	prefixRecurring = "rec:"
	prefixTimeShift = "tsp:"
)

// BadgerStore is an embedded key-value backend for single-host deployments
// that do not want SQLite.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadgerStore opens or creates a Badger database in dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions(dir).WithLogger(nil))
}

// openInMemoryBadger is used by tests.
func openInMemoryBadger() (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open failed: %w", err)
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

// Keys are zero padded so iteration order equals ID order.
func idKey(prefix string, id int64) []byte {
	return fmt.Appendf(nil, "%s%020d", prefix, id)
}

// nextID returns id, or one past the highest ID stored under prefix when id
// is zero. Explicit IDs therefore never collide with allocated ones.
func nextID(txn *badger.Txn, prefix string, id int64) (int64, error) {
	if id != 0 {
		return id, nil
	}
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Seek(append([]byte(prefix), 0xff))
	if !it.Valid() {
		return 1, nil
	}
	last, err := strconv.ParseInt(string(it.Item().Key()[len(prefix):]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("badger: corrupt key %q: %w", it.Item().Key(), err)
	}
	return last + 1, nil
}

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, buf)
}

// scan decodes every value under prefix in key order.
func scan[T any](txn *badger.Txn, prefix string, fn func(T) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// channelCache loads each referenced channel once per transaction.
type channelCache struct {
	txn  *badger.Txn
	seen map[int64]*model.Channel
}

func (c *channelCache) get(id int64) (*model.Channel, error) {
	if ch, ok := c.seen[id]; ok {
		return ch, nil
	}
	var ch model.Channel
	if err := getJSON(c.txn, idKey(prefixChannel, id), &ch); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.seen[id] = nil
			return nil, nil
		}
		return nil, err
	}
	c.seen[id] = &ch
	return &ch, nil
}

func (s *BadgerStore) schedules(filter func(model.Schedule) bool) ([]model.Schedule, error) {
	var out []model.Schedule
	err := s.db.View(func(txn *badger.Txn) error {
		cache := &channelCache{txn: txn, seen: map[int64]*model.Channel{}}
		return scan(txn, prefixSchedule, func(sch model.Schedule) error {
			if filter != nil && !filter(sch) {
				return nil
			}
			ch, err := cache.get(sch.ChannelID)
			if err != nil {
				return err
			}
			if ch == nil {
				return nil
			}
			c := *ch
			sch.Channel = &c
			out = append(out, sch)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) recurring(filter func(model.RecurringSchedule) bool) ([]model.RecurringSchedule, error) {
	var out []model.RecurringSchedule
	err := s.db.View(func(txn *badger.Txn) error {
		cache := &channelCache{txn: txn, seen: map[int64]*model.Channel{}}
		return scan(txn, prefixRecurring, func(r model.RecurringSchedule) error {
			if filter != nil && !filter(r) {
				return nil
			}
			ch, err := cache.get(r.ChannelID)
			if err != nil {
				return err
			}
			if ch == nil {
				return nil
			}
			c := *ch
			r.Channel = &c
			out = append(out, r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("query recurring schedules: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) ActiveSchedules(_ context.Context, now time.Time) ([]model.Schedule, error) {
	return s.schedules(func(sch model.Schedule) bool {
		return sch.Enabled && !now.Before(sch.StartAt) && now.Before(sch.EndAt)
	})
}

func (s *BadgerStore) EnabledRecurringSchedules(_ context.Context) ([]model.RecurringSchedule, error) {
	return s.recurring(func(r model.RecurringSchedule) bool { return r.Enabled })
}

func (s *BadgerStore) Schedules(_ context.Context) ([]model.Schedule, error) {
	return s.schedules(nil)
}

func (s *BadgerStore) RecurringSchedules(_ context.Context) ([]model.RecurringSchedule, error) {
	return s.recurring(nil)
}

func (s *BadgerStore) Channel(_ context.Context, id int64) (model.Channel, error) {
	var ch model.Channel
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, idKey(prefixChannel, id), &ch)
	})
	if err != nil {
		return model.Channel{}, fmt.Errorf("channel %d: %w", id, err)
	}
	return ch, nil
}

func (s *BadgerStore) Channels(_ context.Context) ([]model.Channel, error) {
	var out []model.Channel
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, prefixChannel, func(ch model.Channel) error {
			out = append(out, ch)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) TimeShiftProfiles(_ context.Context) ([]model.TimeShiftProfile, error) {
	var out []model.TimeShiftProfile
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, prefixTimeShift, func(p model.TimeShiftProfile) error {
			out = append(out, p)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("query time-shift profiles: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

func (s *BadgerStore) SaveChannel(_ context.Context, ch *model.Channel) error {
	if err := validateChannel(ch); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		id, err := nextID(txn, prefixChannel, ch.ID)
		if err != nil {
			return err
		}
		key := idKey(prefixChannel, id)
		var prev model.Channel
		switch err := getJSON(txn, key, &prev); {
		case err == nil:
			ch.CreatedAt = prev.CreatedAt
		case !errors.Is(err, ErrNotFound):
			return err
		}
		ch.ID = id
		stamp(ch, s.now())
		return setJSON(txn, key, ch)
	})
}

func requireChannel(txn *badger.Txn, id int64) error {
	if _, err := txn.Get(idKey(prefixChannel, id)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("channel %d: %w", id, ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *BadgerStore) SaveSchedule(_ context.Context, sch *model.Schedule) error {
	if err := model.ValidateSchedule(*sch); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := requireChannel(txn, sch.ChannelID); err != nil {
			return fmt.Errorf("schedule %q: %w", sch.Name, err)
		}
		id, err := nextID(txn, prefixSchedule, sch.ID)
		if err != nil {
			return err
		}
		sch.ID = id
		stored := *sch
		stored.Channel = nil
		return setJSON(txn, idKey(prefixSchedule, id), stored)
	})
}

func (s *BadgerStore) SaveRecurringSchedule(_ context.Context, r *model.RecurringSchedule) error {
	if err := model.ValidateRecurringSchedule(*r); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := requireChannel(txn, r.ChannelID); err != nil {
			return fmt.Errorf("recurring schedule %q: %w", r.Name, err)
		}
		id, err := nextID(txn, prefixRecurring, r.ID)
		if err != nil {
			return err
		}
		r.ID = id
		stored := *r
		stored.Channel = nil
		return setJSON(txn, idKey(prefixRecurring, id), stored)
	})
}

func (s *BadgerStore) SaveTimeShiftProfile(_ context.Context, p *model.TimeShiftProfile) error {
	if err := model.ValidateTimeShiftProfile(*p); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := requireChannel(txn, p.ChannelID); err != nil {
			return fmt.Errorf("time-shift profile: %w", err)
		}
		return setJSON(txn, idKey(prefixTimeShift, p.ChannelID), p)
	})
}

// Verify checks table checksums. Mode is ignored; Badger has a single check.
func (s *BadgerStore) Verify(context.Context, string) ([]string, error) {
	if err := s.db.VerifyChecksum(); err != nil {
		return []string{err.Error()}, nil
	}
	return nil, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
