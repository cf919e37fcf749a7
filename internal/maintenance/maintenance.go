// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package maintenance runs periodic store integrity checks.
package maintenance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ManuGH/iptranscoder/internal/health"
	"github.com/ManuGH/iptranscoder/internal/log"
	"github.com/ManuGH/iptranscoder/internal/metrics"
)

// Check outcomes, also used as metric labels.
const (
	OutcomeOK      = "ok"
	OutcomeCorrupt = "corrupt"
	OutcomeError   = "error"
)

// Verifier is a store that can check itself for corruption.
type Verifier interface {
	Verify(ctx context.Context, mode string) ([]string, error)
}

// Result is the outcome of one integrity check.
type Result struct {
	At       time.Time
	Mode     string
	Outcome  string
	Problems []string
	Err      error
}

// Scheduler runs Verify on a cron schedule. Runs never overlap.
type Scheduler struct {
	verifier Verifier
	mode     string
	timeout  time.Duration
	cron     *cron.Cron
	logger   zerolog.Logger

	mu   sync.Mutex
	last Result
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New creates a Scheduler for spec, a five-field cron expression or a
// descriptor like "@daily", evaluated in loc.
func New(v Verifier, spec, mode string, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		verifier: v,
		mode:     mode,
		timeout:  10 * time.Minute,
		logger:   log.WithComponent("maintenance"),
	}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(spec, func() { s.VerifyNow(context.Background()) }); err != nil {
		return nil, fmt.Errorf("verify schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits
// for a running check to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	if entries := s.cron.Entries(); len(entries) > 0 {
		s.logger.Info().Str("mode", s.mode).Time("next", entries[0].Next).Msg("store integrity checks scheduled")
	}
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// VerifyNow runs one integrity check and records its result.
func (s *Scheduler) VerifyNow(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	problems, err := s.verifier.Verify(ctx, s.mode)
	res := Result{At: started, Mode: s.mode, Problems: problems, Err: err}
	switch {
	case err != nil:
		res.Outcome = OutcomeError
		s.logger.Error().Err(err).Str("mode", s.mode).Msg("store integrity check failed to run")
	case len(problems) > 0:
		res.Outcome = OutcomeCorrupt
		s.logger.Error().Str("mode", s.mode).Strs("problems", problems).Msg("store integrity check found problems")
	default:
		res.Outcome = OutcomeOK
		s.logger.Info().Str("mode", s.mode).Dur("took", time.Since(started)).Msg("store integrity check passed")
	}
	metrics.IncStoreCheck(res.Outcome)

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	return res
}

// Last returns the most recent result; the zero Result if none ran yet.
func (s *Scheduler) Last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Name implements health.Checker.
func (s *Scheduler) Name() string { return "store_integrity" }

// Check implements health.Checker. A corrupt store degrades health without
// failing readiness; the enforcer keeps running on what it can read.
func (s *Scheduler) Check(context.Context) health.CheckResult {
	last := s.Last()
	switch last.Outcome {
	case "":
		return health.CheckResult{Status: health.StatusHealthy, Message: "no check run yet"}
	case OutcomeOK:
		return health.CheckResult{Status: health.StatusHealthy, Message: "passed at " + last.At.Format(time.RFC3339)}
	case OutcomeCorrupt:
		return health.CheckResult{Status: health.StatusDegraded, Message: strings.Join(last.Problems, "; ")}
	default:
		return health.CheckResult{Status: health.StatusDegraded, Error: last.Err.Error()}
	}
}
