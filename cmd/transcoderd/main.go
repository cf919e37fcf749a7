// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT

// Command transcoderd keeps ffmpeg jobs running for the channels and
// schedules in its store.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/iptranscoder/internal/config"
	"github.com/ManuGH/iptranscoder/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	os.Exit(dispatch(os.Args[1:]))
}

func dispatch(args []string) int {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return runEnforce(args)
	}
	switch args[0] {
	case "enforce":
		return runEnforce(args[1:])
	case "run":
		return runOneShot(args[1:])
	case "command":
		return runCommand(args[1:], os.Stdout)
	case "store":
		return runStoreCLI(args[1:])
	case "version":
		printVersion(os.Stdout)
		return 0
	case "help":
		printUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printUsage(os.Stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  transcoderd [enforce] [--config PATH] [--version]")
	_, _ = fmt.Fprintln(w, "  transcoderd run [--config PATH] [--purpose live_forward|record] <channel-id>")
	_, _ = fmt.Fprintln(w, "  transcoderd command [--config PATH] [--purpose PURPOSE] <channel-id>")
	_, _ = fmt.Fprintln(w, "  transcoderd store verify [--config PATH] [--mode quick|full]")
	_, _ = fmt.Fprintln(w, "  transcoderd store import [--config PATH] -f seed.yaml")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Commands:")
	_, _ = fmt.Fprintln(w, "  enforce   Run the enforcement loop (default)")
	_, _ = fmt.Fprintln(w, "  run       Run one channel job in the foreground until it exits")
	_, _ = fmt.Fprintln(w, "  command   Print the ffmpeg command for a channel")
	_, _ = fmt.Fprintln(w, "  store     Verify or seed the store")
}

func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "%s (commit: %s, built: %s)\n", version, commit, buildDate)
}

// configFlag registers the shared --config flag. IPTX_CONFIG is the default.
func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to config file (YAML)")
}

// loadConfig loads configuration and configures the global logger from it.
// The service name is fixed by the first Configure call, so it is taken
// from the environment before the file is read.
func loadConfig(path string) (config.Config, *config.Loader, error) {
	service := os.Getenv(config.EnvPrefix + "LOG_SERVICE")
	if service == "" {
		service = "transcoderd"
	}
	log.Configure(log.Config{Level: "info", Service: service, Version: version})

	loader := config.NewLoader(strings.TrimSpace(path), version)
	cfg, err := loader.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log.Configure(log.Config{Level: cfg.Log.Level, Service: cfg.Log.Service, Version: version})
	return cfg, loader, nil
}
