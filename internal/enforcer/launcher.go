// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package enforcer

import (
	"context"

	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/supervisor"
)

// Handle is a running job as seen by the reconciler.
type Handle interface {
	// RequestStop asks the job to terminate without waiting.
	RequestStop() error
	// Poll reports the job's state without blocking.
	Poll() supervisor.Status
	// Done is closed once the job has exited.
	Done() <-chan struct{}
}

// Launcher starts jobs.
type Launcher interface {
	Launch(ctx context.Context, key model.JobKey, argv []string) (Handle, error)
}

// CommandBuilder turns a channel and purpose into an argv.
type CommandBuilder interface {
	Build(ch model.Channel, purpose model.Purpose) ([]string, error)
}

// ProcessLauncher adapts a supervisor.Supervisor to Launcher.
type ProcessLauncher struct {
	Supervisor *supervisor.Supervisor
}

// Launch implements Launcher.
func (l ProcessLauncher) Launch(ctx context.Context, key model.JobKey, argv []string) (Handle, error) {
	p, err := l.Supervisor.Launch(ctx, key, argv)
	if err != nil {
		return nil, err
	}
	return p, nil
}
