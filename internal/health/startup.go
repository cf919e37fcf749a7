// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/ManuGH/iptranscoder/internal/config"
	"github.com/ManuGH/iptranscoder/internal/log"
)

// PerformStartupChecks validates the environment before the enforcer
// starts launching jobs.
func PerformStartupChecks(cfg config.Config) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkWritableDir(cfg.MediaRoot); err != nil {
		return fmt.Errorf("media root check failed: %w", err)
	}
	logger.Info().Str(log.FieldPath, cfg.MediaRoot).Msg("media root is writable")

	bin, err := exec.LookPath(cfg.FFmpeg.Bin)
	if err != nil {
		return fmt.Errorf("ffmpeg binary not found (%s): %w", cfg.FFmpeg.Bin, err)
	}
	logger.Info().Str("ffmpeg", bin).Msg("ffmpeg binary available")

	if cfg.Store.Backend != "memory" {
		dir := filepath.Dir(cfg.Store.Path)
		if cfg.Store.Backend == "badger" {
			dir = cfg.Store.Path
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("store directory %s: %w", dir, err)
		}
	} else {
		logger.Warn().Msg("in-memory store: schedules are lost on restart")
	}

	if cfg.API.ListenAddr != "" {
		_, port, err := net.SplitHostPort(cfg.API.ListenAddr)
		if err != nil {
			return fmt.Errorf("invalid API listen address %q: %w", cfg.API.ListenAddr, err)
		}
		if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
			return fmt.Errorf("invalid API listen port %q in %q", port, cfg.API.ListenAddr)
		}
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkWritableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)
	return nil
}
