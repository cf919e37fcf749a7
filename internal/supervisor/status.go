// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package supervisor

import "time"

// State is the lifecycle position of a supervised process.
//
//	pending_start -> running -> pending_stop -> exited
//	                 running ----------------> exited
type State string

const (
	StatePendingStart State = "pending_start"
	StateRunning      State = "running"
	StatePendingStop  State = "pending_stop"
	StateExited       State = "exited"
)

// Status is a point-in-time view of a Process.
type Status struct {
	State     State     `json:"state"`
	PID       int       `json:"pid,omitempty"`
	ExitCode  int       `json:"exit_code"`
	Signal    string    `json:"signal,omitempty"`
	Err       error     `json:"-"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
	ExitedAt  time.Time `json:"exited_at,omitempty"`
}

// Alive reports whether the process has not been observed to exit.
func (s Status) Alive() bool { return s.State != StateExited }

// Clean reports whether the process exited with status 0.
func (s Status) Clean() bool {
	return s.State == StateExited && s.ExitCode == 0 && s.Err == nil
}
