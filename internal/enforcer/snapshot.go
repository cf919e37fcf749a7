// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package enforcer

import (
	"context"
	"time"

	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/supervisor"
)

// JobStatus describes one supervised job.
type JobStatus struct {
	Key          model.JobKey     `json:"key"`
	ChannelID    int64            `json:"channel_id"`
	ChannelName  string           `json:"channel_name"`
	Purpose      model.Purpose    `json:"purpose"`
	ScheduleName string           `json:"schedule_name"`
	State        supervisor.State `json:"state"`
	PID          int              `json:"pid,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
}

// Snapshot is an immutable view of the process table after a tick.
type Snapshot struct {
	TickID  string      `json:"tick_id"`
	At      time.Time   `json:"at"`
	Desired int         `json:"desired"`
	Jobs    []JobStatus `json:"jobs"`
	// Skipped is set when the tick could not compute desired state.
	Skipped bool `json:"skipped"`
}

// Publisher receives a snapshot after every tick. Publish errors are logged
// and never affect reconciliation.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, snap Snapshot) error
}
