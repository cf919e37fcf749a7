// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package enforcer converges running ffmpeg jobs to what the schedules want.
package enforcer

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/iptranscoder/internal/ffmpeg"
	"github.com/ManuGH/iptranscoder/internal/log"
	"github.com/ManuGH/iptranscoder/internal/metrics"
	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/schedule"
	"github.com/ManuGH/iptranscoder/internal/store"
	"github.com/ManuGH/iptranscoder/internal/supervisor"
	"github.com/ManuGH/iptranscoder/internal/telemetry"
)

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 5 * time.Second

// Options configures a Reconciler.
type Options struct {
	Interval   time.Duration
	Clock      schedule.Clock
	Publishers []Publisher
}

// ReapedJob is a job removed from the table because it exited on its own.
type ReapedJob struct {
	Key    model.JobKey
	Status supervisor.Status
}

// TickReport summarises one reconciliation pass.
type TickReport struct {
	TickID       string
	At           time.Time
	Desired      int
	Launched     []model.JobKey
	LaunchFailed []model.JobKey
	Stopped      []model.JobKey
	Reaped       []ReapedJob
	Running      int
}

type entry struct {
	job       DesiredJob
	handle    Handle
	startedAt time.Time
}

// Reconciler owns the table of supervised jobs. Only Tick and Shutdown
// touch the table; readers use Snapshot.
type Reconciler struct {
	store    store.Reader
	builder  CommandBuilder
	launcher Launcher
	clock    schedule.Clock
	pubs     []Publisher
	logger   zerolog.Logger
	tracer   trace.Tracer

	interval atomic.Int64

	mu    sync.Mutex // serialises ticks
	table map[model.JobKey]*entry

	snapshot atomic.Pointer[Snapshot]
}

// New creates a Reconciler.
func New(r store.Reader, b CommandBuilder, l Launcher, opts Options) *Reconciler {
	if opts.Clock == nil {
		opts.Clock = schedule.RealClock{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	rec := &Reconciler{
		store:    r,
		builder:  b,
		launcher: l,
		clock:    opts.Clock,
		pubs:     opts.Publishers,
		logger:   log.WithComponent("enforcer"),
		tracer:   telemetry.Tracer("github.com/ManuGH/iptranscoder/internal/enforcer"),
		table:    make(map[model.JobKey]*entry),
	}
	rec.interval.Store(int64(opts.Interval))
	rec.snapshot.Store(&Snapshot{Jobs: []JobStatus{}})
	return rec
}

// Interval returns the current tick period.
func (r *Reconciler) Interval() time.Duration { return time.Duration(r.interval.Load()) }

// SetInterval changes the tick period; Run picks it up after the next tick.
func (r *Reconciler) SetInterval(d time.Duration) {
	if d > 0 {
		r.interval.Store(int64(d))
	}
}

// Snapshot returns the view published by the last tick.
func (r *Reconciler) Snapshot() Snapshot { return *r.snapshot.Load() }

// Run ticks immediately and then every Interval until ctx is cancelled,
// then stops every supervised job.
func (r *Reconciler) Run(ctx context.Context) error {
	current := r.Interval()
	ticker := r.clock.NewTicker(current)
	defer ticker.Stop()
	defer r.Shutdown()

	r.logger.Info().Dur("interval", current).Msg("enforcer loop started")
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := r.Tick(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("tick skipped: cannot compute desired state")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
		}
		if d := r.Interval(); d != current {
			r.logger.Info().Dur("interval", d).Dur("previous", current).Msg("tick interval changed")
			current = d
			ticker.Reset(d)
		}
	}
}

// Tick performs one reconciliation pass at a single instant: launch missing
// jobs, stop undesired ones, then reap jobs that exited on their own.
// A store failure skips the pass and leaves the table untouched.
func (r *Reconciler) Tick(ctx context.Context) (TickReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	now := r.clock.Now()
	report := TickReport{TickID: uuid.NewString(), At: now}

	ctx = log.ContextWithTickID(ctx, report.TickID)
	ctx, span := r.tracer.Start(ctx, "enforcer.tick", trace.WithAttributes(
		attribute.String(telemetry.TickIDKey, report.TickID),
	))
	defer span.End()
	logger := log.WithContext(ctx, r.logger)

	desired, err := Collect(ctx, r.store, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "collect failed")
		metrics.ObserveTick(metrics.TickStoreError, time.Since(started), now)
		r.publish(ctx, logger, r.buildSnapshot(report.TickID, now, r.snapshot.Load().Desired, true))
		return report, err
	}
	report.Desired = len(desired)

	// Launch pass, in key order so logs and tests are deterministic.
	for _, key := range sortedKeys(desired) {
		if _, running := r.table[key]; running {
			continue
		}
		if r.launch(ctx, logger, key, desired[key]) {
			report.Launched = append(report.Launched, key)
		} else {
			report.LaunchFailed = append(report.LaunchFailed, key)
		}
	}

	// Stop pass: request termination and forget the job immediately.
	for _, key := range sortedKeys(r.table) {
		if _, ok := desired[key]; ok {
			continue
		}
		e := r.table[key]
		delete(r.table, key)
		r.stop(logger, key, e, "undesired")
		report.Stopped = append(report.Stopped, key)
	}

	// Reap pass: jobs that exited on their own are relaunched next tick if
	// still desired.
	for _, key := range sortedKeys(r.table) {
		e := r.table[key]
		st := e.handle.Poll()
		if st.State != supervisor.StateExited {
			continue
		}
		delete(r.table, key)
		r.reap(logger, key, e, st)
		report.Reaped = append(report.Reaped, ReapedJob{Key: key, Status: st})
	}

	report.Running = len(r.table)
	span.SetAttributes(telemetry.TickAttributes(
		report.Desired, len(report.Launched), len(report.LaunchFailed),
		len(report.Stopped), len(report.Reaped), report.Running)...)
	metrics.ObserveTick(metrics.TickOK, time.Since(started), now)
	metrics.SetJobsDesired(report.Desired)
	metrics.SetJobsRunning(r.runningByPurpose())

	if len(report.Launched)+len(report.LaunchFailed)+len(report.Stopped)+len(report.Reaped) > 0 {
		logger.Info().
			Int("desired", report.Desired).
			Int("launched", len(report.Launched)).
			Int("launch_failed", len(report.LaunchFailed)).
			Int("stopped", len(report.Stopped)).
			Int("reaped", len(report.Reaped)).
			Int("running", report.Running).
			Msg("tick converged")
	} else {
		logger.Debug().Int("desired", report.Desired).Int("running", report.Running).Msg("tick: no changes")
	}

	r.publish(ctx, logger, r.buildSnapshot(report.TickID, now, report.Desired, false))
	return report, nil
}

func (r *Reconciler) launch(ctx context.Context, logger zerolog.Logger, key model.JobKey, job DesiredJob) bool {
	jl := logger.With().
		Str(log.FieldJobKey, key.String()).
		Int64(log.FieldChannelID, job.Channel.ID).
		Str(log.FieldChannel, job.Channel.Name).
		Str(log.FieldPurpose, string(job.Purpose)).
		Str(log.FieldSchedule, job.ScheduleName).
		Logger()

	argv, err := r.builder.Build(job.Channel, job.Purpose)
	if err != nil {
		outcome := "build_error"
		if errors.Is(err, ffmpeg.ErrPurposeNotImplemented) {
			outcome = "not_implemented"
		}
		metrics.IncJobLaunch(string(job.Purpose), outcome)
		jl.Error().Err(err).Str(log.FieldEvent, "job.build_failed").Msg("cannot build command")
		return false
	}

	h, err := r.launcher.Launch(ctx, key, argv)
	if err != nil {
		metrics.IncJobLaunch(string(job.Purpose), "launch_error")
		jl.Error().Err(err).Str(log.FieldEvent, "job.launch_failed").Str(log.FieldCommand, ffmpeg.Quote(argv)).Msg("launch failed")
		return false
	}

	r.table[key] = &entry{job: job, handle: h, startedAt: r.clock.Now()}
	attrs := telemetry.JobAttributes(key.String(), string(job.Purpose), job.ScheduleName)
	trace.SpanFromContext(ctx).AddEvent("job.started", trace.WithAttributes(
		append(attrs, telemetry.ChannelAttributes(job.Channel.ID, job.Channel.Name)...)...))
	metrics.IncJobLaunch(string(job.Purpose), "started")
	jl.Info().Str(log.FieldEvent, "job.started").Str(log.FieldCommand, ffmpeg.Quote(argv)).Msg("job started")
	return true
}

func (r *Reconciler) stop(logger zerolog.Logger, key model.JobKey, e *entry, reason string) {
	metrics.IncJobStop(reason)
	jl := logger.With().
		Str(log.FieldJobKey, key.String()).
		Str(log.FieldChannel, e.job.Channel.Name).
		Str(log.FieldSchedule, e.job.ScheduleName).
		Logger()
	if err := e.handle.RequestStop(); err != nil {
		jl.Warn().Err(err).Str(log.FieldEvent, "job.stop_failed").Msg("stop request failed")
		return
	}
	jl.Info().Str(log.FieldEvent, "job.stop_requested").Str("reason", reason).Msg("job stop requested")
}

func (r *Reconciler) reap(logger zerolog.Logger, key model.JobKey, e *entry, st supervisor.Status) {
	outcome := "clean"
	switch {
	case st.Signal != "":
		outcome = "signaled"
	case !st.Clean():
		outcome = "error"
	}
	metrics.IncJobExit(outcome)
	logger.Warn().
		Str(log.FieldJobKey, key.String()).
		Str(log.FieldChannel, e.job.Channel.Name).
		Str(log.FieldSchedule, e.job.ScheduleName).
		Str(log.FieldEvent, "job.exited").
		Int(log.FieldExitCode, st.ExitCode).
		Str("signal", st.Signal).
		Dur("uptime", st.ExitedAt.Sub(e.startedAt)).
		Msg("job exited on its own")
}

// Shutdown requests a stop of every supervised job exactly once and clears
// the table. It does not wait for the jobs to exit.
func (r *Reconciler) Shutdown() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.table)
	for _, key := range sortedKeys(r.table) {
		r.stop(r.logger, key, r.table[key], "shutdown")
	}
	clear(r.table)
	if n > 0 {
		r.logger.Info().Int("stopped", n).Msg("enforcer shut down; stop requested for all jobs")
	}
	metrics.SetJobsRunning(nil)

	prev := r.snapshot.Load()
	r.publish(context.Background(), r.logger, Snapshot{TickID: prev.TickID, At: r.clock.Now(), Jobs: []JobStatus{}})
	return n
}

func (r *Reconciler) runningByPurpose() map[string]int {
	out := make(map[string]int)
	for _, e := range r.table {
		out[string(e.job.Purpose)]++
	}
	return out
}

func (r *Reconciler) buildSnapshot(tickID string, at time.Time, desired int, skipped bool) Snapshot {
	snap := Snapshot{TickID: tickID, At: at, Desired: desired, Skipped: skipped, Jobs: make([]JobStatus, 0, len(r.table))}
	for _, key := range sortedKeys(r.table) {
		e := r.table[key]
		st := e.handle.Poll()
		snap.Jobs = append(snap.Jobs, JobStatus{
			Key:          key,
			ChannelID:    e.job.Channel.ID,
			ChannelName:  e.job.Channel.Name,
			Purpose:      e.job.Purpose,
			ScheduleName: e.job.ScheduleName,
			State:        st.State,
			PID:          st.PID,
			StartedAt:    e.startedAt,
		})
	}
	return snap
}

func (r *Reconciler) publish(ctx context.Context, logger zerolog.Logger, snap Snapshot) {
	r.snapshot.Store(&snap)
	for _, p := range r.pubs {
		if err := p.Publish(ctx, snap); err != nil {
			metrics.IncStatusPublishError(p.Name())
			logger.Warn().Err(err).Str("sink", p.Name()).Msg("status publish failed")
		}
	}
}

func sortedKeys[V any](m map[model.JobKey]V) []model.JobKey {
	keys := make([]model.JobKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b model.JobKey) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return keys
}
