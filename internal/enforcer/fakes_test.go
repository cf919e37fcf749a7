// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package enforcer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/schedule"
	"github.com/ManuGH/iptranscoder/internal/store"
	"github.com/ManuGH/iptranscoder/internal/supervisor"
)

type fakeHandle struct {
	mu         sync.Mutex
	key        model.JobKey
	stops      int
	state      supervisor.State
	exitCode   int
	done       chan struct{}
	exitOnStop bool
}

func newFakeHandle(key model.JobKey) *fakeHandle {
	return &fakeHandle{key: key, state: supervisor.StateRunning, done: make(chan struct{})}
}

func (h *fakeHandle) RequestStop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	if h.state == supervisor.StateRunning {
		h.state = supervisor.StatePendingStop
		if h.exitOnStop {
			h.exitLocked(0)
		}
	}
	return nil
}

func (h *fakeHandle) Poll() supervisor.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return supervisor.Status{State: h.state, PID: 1000, ExitCode: h.exitCode}
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) exit(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exitLocked(code)
}

func (h *fakeHandle) exitLocked(code int) {
	if h.state == supervisor.StateExited {
		return
	}
	h.state = supervisor.StateExited
	h.exitCode = code
	close(h.done)
}

func (h *fakeHandle) stopCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops
}

type fakeLauncher struct {
	mu         sync.Mutex
	launches   []model.JobKey
	argv       map[model.JobKey][]string
	handles    map[model.JobKey][]*fakeHandle
	fail       map[model.JobKey]error
	exitOnStop bool
	exitAtOnce *int
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		argv:    make(map[model.JobKey][]string),
		handles: make(map[model.JobKey][]*fakeHandle),
		fail:    make(map[model.JobKey]error),
	}
}

func (l *fakeLauncher) Launch(_ context.Context, key model.JobKey, argv []string) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches = append(l.launches, key)
	if err := l.fail[key]; err != nil {
		return nil, err
	}
	h := newFakeHandle(key)
	h.exitOnStop = l.exitOnStop
	if l.exitAtOnce != nil {
		h.exitLocked(*l.exitAtOnce)
	}
	l.argv[key] = argv
	l.handles[key] = append(l.handles[key], h)
	return h, nil
}

func (l *fakeLauncher) launchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.launches)
}

func (l *fakeLauncher) latest(key model.JobKey) *fakeHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	hs := l.handles[key]
	if len(hs) == 0 {
		return nil
	}
	return hs[len(hs)-1]
}

// totalStops counts stop requests across every handle ever launched.
func (l *fakeLauncher) totalStops() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, hs := range l.handles {
		for _, h := range hs {
			n += h.stopCount()
		}
	}
	return n
}

type fakeBuilder struct {
	fail map[int64]error
}

func (b fakeBuilder) Build(ch model.Channel, purpose model.Purpose) ([]string, error) {
	if err := b.fail[ch.ID]; err != nil {
		return nil, err
	}
	return []string{"ffmpeg", "-i", ch.InputURL, fmt.Sprintf("--purpose=%s", purpose)}, nil
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	ticker *fakeTicker
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, ticker: &fakeTicker{c: make(chan time.Time, 1)}}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) NewTicker(time.Duration) schedule.Ticker { return c.ticker }

type fakeTicker struct {
	c     chan time.Time
	mu    sync.Mutex
	reset []time.Duration
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               {}
func (t *fakeTicker) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset = append(t.reset, d)
}

// flakyReader fails every query while broken is set.
type flakyReader struct {
	store.Reader
	mu     sync.Mutex
	broken bool
}

var errStoreDown = errors.New("database is locked")

func (f *flakyReader) setBroken(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken = b
}

func (f *flakyReader) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return errStoreDown
	}
	return nil
}

func (f *flakyReader) ActiveSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return f.Reader.ActiveSchedules(ctx, now)
}

func (f *flakyReader) EnabledRecurringSchedules(ctx context.Context) ([]model.RecurringSchedule, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return f.Reader.EnabledRecurringSchedules(ctx)
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []Snapshot
	err   error
}

func (p *recordingPublisher) Name() string { return "test" }

func (p *recordingPublisher) Publish(_ context.Context, s Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, s)
	return p.err
}

func (p *recordingPublisher) last() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snaps[len(p.snaps)-1]
}
