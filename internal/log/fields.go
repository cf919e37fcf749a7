// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldTickID    = "tick_id"
	FieldLaunchID  = "launch_id"
	FieldJobKey    = "job_key"
	FieldRequestID = "request_id"

	// Schedule / channel fields
	FieldChannel   = "channel"
	FieldChannelID = "channel_id"
	FieldPurpose   = "purpose"
	FieldSchedule  = "schedule"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"
	FieldCommand   = "command"

	// HTTP fields
	FieldMethod     = "method"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"

	// Path fields
	FieldPath = "path"
)
