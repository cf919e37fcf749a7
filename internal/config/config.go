// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads daemon configuration from defaults, a YAML file and
// IPTX_* environment variables, in increasing order of precedence.
package config

import (
	"time"
	_ "time/tzdata" // timezone must resolve on hosts without zoneinfo
)

// EnvPrefix is prepended to every environment key.
const EnvPrefix = "IPTX_"

// Config is the effective daemon configuration.
type Config struct {
	Log         LogConfig         `yaml:"log"`
	MediaRoot   string            `yaml:"media_root"`
	Timezone    string            `yaml:"timezone"`
	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	Store       StoreConfig       `yaml:"store"`
	Enforcer    EnforcerConfig    `yaml:"enforcer"`
	Status      StatusConfig      `yaml:"status"`
	API         APIConfig         `yaml:"api"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`

	// Version is the binary version, never read from the file.
	Version string `yaml:"-"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

type FFmpegConfig struct {
	Bin string `yaml:"bin"`
}

type StoreConfig struct {
	// Backend is sqlite, badger or memory.
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type EnforcerConfig struct {
	Interval time.Duration `yaml:"interval"`
	// StopKillAfter escalates a stop to SIGKILL; zero disables it.
	StopKillAfter time.Duration `yaml:"stop_kill_after"`
}

type StatusConfig struct {
	// File is the JSON status file; empty disables it.
	File  string      `yaml:"file"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis job board. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Key      string        `yaml:"key"`
	TTL      time.Duration `yaml:"ttl"`
}

type APIConfig struct {
	// ListenAddr is the operator API address; empty disables the API.
	ListenAddr string `yaml:"listen_addr"`
	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit int `yaml:"rate_limit"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

type MaintenanceConfig struct {
	// VerifySchedule is a cron expression; empty disables scheduled checks.
	VerifySchedule string `yaml:"verify_schedule"`
	VerifyMode     string `yaml:"verify_mode"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Log:       LogConfig{Level: "info", Service: "transcoderd"},
		MediaRoot: "/var/lib/iptranscoder/media",
		Timezone:  "Local",
		FFmpeg:    FFmpegConfig{Bin: "ffmpeg"},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    "/var/lib/iptranscoder/iptranscoder.db",
		},
		Enforcer: EnforcerConfig{Interval: 5 * time.Second},
		Status: StatusConfig{
			Redis: RedisConfig{Key: "iptranscoder:status", TTL: time.Minute},
		},
		API: APIConfig{ListenAddr: "127.0.0.1:8089", RateLimit: 120},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		Maintenance: MaintenanceConfig{VerifySchedule: "@daily", VerifyMode: "quick"},
	}
}

// Location resolves Timezone. Callers run after Validate, so errors are
// not expected; UTC is returned if one happens anyway.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
