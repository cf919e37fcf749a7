// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ManuGH/iptranscoder/internal/validate"
)

const minInterval = 100 * time.Millisecond

// Validate checks the effective configuration. It creates MediaRoot if it
// does not exist yet.
func Validate(cfg Config) error {
	v := validate.New()

	v.Custom("log.level", cfg.Log.Level, func(any) error {
		_, err := validate.ParseLogLevel(cfg.Log.Level)
		return err
	})

	v.NotEmpty("media_root", cfg.MediaRoot)
	if cfg.MediaRoot != "" {
		v.Directory("media_root", cfg.MediaRoot, false)
	}
	v.Custom("timezone", cfg.Timezone, func(any) error {
		_, err := time.LoadLocation(cfg.Timezone)
		return err
	})
	v.NotEmpty("ffmpeg.bin", cfg.FFmpeg.Bin)

	v.OneOf("store.backend", cfg.Store.Backend, []string{"sqlite", "badger", "memory"})
	if cfg.Store.Backend != "memory" {
		v.NotEmpty("store.path", cfg.Store.Path)
	}

	v.MinDuration("enforcer.interval", cfg.Enforcer.Interval, minInterval)
	if cfg.Enforcer.StopKillAfter < 0 {
		v.AddError("enforcer.stop_kill_after", "must not be negative", cfg.Enforcer.StopKillAfter)
	}

	if cfg.Status.Redis.Addr != "" {
		v.NotEmpty("status.redis.key", cfg.Status.Redis.Key)
		v.NonNegative("status.redis.db", cfg.Status.Redis.DB)
		if cfg.Status.Redis.TTL < 0 {
			v.AddError("status.redis.ttl", "must not be negative", cfg.Status.Redis.TTL)
		}
	}

	v.NonNegative("api.rate_limit", cfg.API.RateLimit)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}
	if r := cfg.Telemetry.SamplingRate; r < 0 || r > 1 {
		v.AddError("telemetry.sampling_rate", fmt.Sprintf("must be between 0 and 1, got %g", r), r)
	}

	if cfg.Maintenance.VerifySchedule != "" {
		v.Custom("maintenance.verify_schedule", cfg.Maintenance.VerifySchedule, func(any) error {
			_, err := cron.ParseStandard(cfg.Maintenance.VerifySchedule)
			return err
		})
	}
	v.OneOf("maintenance.verify_mode", cfg.Maintenance.VerifyMode, []string{"quick", "full"})

	return v.Err()
}
