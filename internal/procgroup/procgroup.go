// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts children in their own process group and signals
// the whole group, so helpers spawned by ffmpeg go away with it.
package procgroup

import (
	"errors"
	"os/exec"

	"github.com/ManuGH/iptranscoder/internal/metrics"
)

// ErrProcessNotFound is returned when the target group no longer exists.
var ErrProcessNotFound = errors.New("process not found")

// Set configures the command to start in a new process group.
// Mandatory for Terminate and Kill to reach the whole group.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Terminate asks the process group led by pid to exit (SIGTERM).
// It does not wait.
func Terminate(pid int) error {
	err := terminate(pid)
	metrics.IncProcTerminate("SIGTERM", signalResult(err))
	return err
}

// Kill forcibly stops the process group led by pid (SIGKILL).
// It does not wait.
func Kill(pid int) error {
	err := kill(pid)
	metrics.IncProcTerminate("SIGKILL", signalResult(err))
	return err
}

func signalResult(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, ErrProcessNotFound):
		return "esrch"
	default:
		return "error"
	}
}
