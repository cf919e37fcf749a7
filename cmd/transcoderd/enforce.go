// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/iptranscoder/internal/api"
	"github.com/ManuGH/iptranscoder/internal/config"
	"github.com/ManuGH/iptranscoder/internal/enforcer"
	"github.com/ManuGH/iptranscoder/internal/ffmpeg"
	"github.com/ManuGH/iptranscoder/internal/health"
	"github.com/ManuGH/iptranscoder/internal/log"
	"github.com/ManuGH/iptranscoder/internal/maintenance"
	"github.com/ManuGH/iptranscoder/internal/schedule"
	"github.com/ManuGH/iptranscoder/internal/status"
	"github.com/ManuGH/iptranscoder/internal/store"
	"github.com/ManuGH/iptranscoder/internal/supervisor"
	"github.com/ManuGH/iptranscoder/internal/telemetry"
)

// staleTicks is how many intervals may pass without a tick before the
// enforcer reports unhealthy.
const staleTicks = 3

func runEnforce(args []string) int {
	fs := flag.NewFlagSet("transcoderd enforce", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := configFlag(fs)
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		printVersion(os.Stdout)
		return 0
	}

	cfg, loader, err := loadConfig(*configPath)
	logger := log.WithComponent("daemon")
	if err != nil {
		logger.Error().Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
		return 1
	}
	logger.Info().
		Str(log.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Interface("config", cfg.Redacted()).
		Msg("starting transcoderd")

	if err := health.PerformStartupChecks(cfg); err != nil {
		logger.Error().Err(err).
			Str(log.FieldEvent, "startup.check_failed").
			Msg("startup checks failed; verify configuration and permissions")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runDaemon(ctx, logger, cfg, loader); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.failed").Msg("daemon failed")
		return 1
	}
	logger.Info().Msg("transcoderd exiting")
	return 0
}

// runDaemon wires every component and blocks until ctx is cancelled or a
// component fails.
func runDaemon(ctx context.Context, logger zerolog.Logger, cfg config.Config, loader *config.Loader) error {
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: version,
		Exporter:       cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	st, err := store.Open(ctx, cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewPingChecker("store", st))

	pubs, closePubs, err := publishers(ctx, cfg, hm)
	if err != nil {
		return err
	}
	defer closePubs()

	loc := cfg.Location()
	clock := schedule.NewRealClock(loc)
	builder := ffmpeg.NewBuilder(cfg.FFmpeg.Bin, cfg.MediaRoot, clock.Now)
	sup := supervisor.New(supervisor.Options{StopKillAfter: cfg.Enforcer.StopKillAfter})
	rec := enforcer.New(st, builder, enforcer.ProcessLauncher{Supervisor: sup}, enforcer.Options{
		Interval:   cfg.Enforcer.Interval,
		Clock:      clock,
		Publishers: pubs,
	})
	hm.RegisterChecker(health.NewTickChecker(
		func() health.TickInfo {
			snap := rec.Snapshot()
			return health.TickInfo{At: snap.At, Skipped: snap.Skipped}
		},
		func() time.Duration { return staleTicks * rec.Interval() },
	))

	var verifier *maintenance.Scheduler
	if cfg.Maintenance.VerifySchedule != "" {
		verifier, err = maintenance.New(st, cfg.Maintenance.VerifySchedule, cfg.Maintenance.VerifyMode, loc)
		if err != nil {
			return err
		}
		hm.RegisterChecker(verifier)
	}

	holder := config.NewConfigHolder(cfg, loader)
	updates := make(chan config.Config, 1)
	holder.RegisterListener(updates)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rec.Run(gctx) })
	g.Go(func() error { return holder.Watch(gctx) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case next := <-updates:
				log.SetLevel(next.Log.Level)
				rec.SetInterval(next.Enforcer.Interval)
			}
		}
	})
	if verifier != nil {
		g.Go(func() error { return verifier.Run(gctx) })
	}
	if cfg.API.ListenAddr != "" {
		srv := api.New(api.Deps{
			Store:       st,
			Jobs:        rec,
			Commands:    builder,
			Health:      hm,
			RateLimit:   cfg.API.RateLimit,
			ServiceName: cfg.Log.Service,
		})
		g.Go(func() error { return srv.Run(gctx, cfg.API.ListenAddr) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// publishers builds the status sinks enabled in cfg. The returned func
// releases them.
func publishers(ctx context.Context, cfg config.Config, hm *health.Manager) ([]enforcer.Publisher, func(), error) {
	var pubs []enforcer.Publisher
	closers := []func() error{}
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	if cfg.Status.File != "" {
		fw, err := status.NewFileWriter(cfg.Status.File)
		if err != nil {
			return nil, closeAll, fmt.Errorf("status file: %w", err)
		}
		pubs = append(pubs, fw)
	}

	if cfg.Status.Redis.Addr != "" {
		rp, err := status.NewRedisPublisher(ctx, status.RedisConfig{
			Addr:     cfg.Status.Redis.Addr,
			Password: cfg.Status.Redis.Password,
			DB:       cfg.Status.Redis.DB,
			Key:      cfg.Status.Redis.Key,
			TTL:      cfg.Status.Redis.TTL,
		})
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("status redis: %w", err)
		}
		closers = append(closers, rp.Close)
		pubs = append(pubs, rp)
		hm.RegisterChecker(health.NewPingChecker("redis", pingFunc(rp.HealthCheck)).Optional())
	}
	return pubs, closeAll, nil
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
