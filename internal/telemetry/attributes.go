// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys shared by the enforcer and the supervisor.
const (
	TickIDKey = "tick.id"

	JobKeyKey      = "job.key"
	JobPurposeKey  = "job.purpose"
	JobScheduleKey = "job.schedule"
	JobLaunchIDKey = "job.launch_id"
	JobPIDKey      = "job.pid"

	ChannelIDKey   = "channel.id"
	ChannelNameKey = "channel.name"

	JobsDesiredKey      = "jobs.desired"
	JobsLaunchedKey     = "jobs.launched"
	JobsLaunchFailedKey = "jobs.launch_failed"
	JobsStoppedKey      = "jobs.stopped"
	JobsReapedKey       = "jobs.reaped"
	JobsRunningKey      = "jobs.running"
)

// JobAttributes describes one scheduled job. Empty values are omitted.
func JobAttributes(key, purpose, schedule string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if key != "" {
		attrs = append(attrs, attribute.String(JobKeyKey, key))
	}
	if purpose != "" {
		attrs = append(attrs, attribute.String(JobPurposeKey, purpose))
	}
	if schedule != "" {
		attrs = append(attrs, attribute.String(JobScheduleKey, schedule))
	}
	return attrs
}

// ChannelAttributes describes the channel a job runs for.
func ChannelAttributes(id int64, name string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(ChannelIDKey, id),
		attribute.String(ChannelNameKey, name),
	}
}

// TickAttributes summarises one reconciliation pass.
func TickAttributes(desired, launched, launchFailed, stopped, reaped, running int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(JobsDesiredKey, desired),
		attribute.Int(JobsLaunchedKey, launched),
		attribute.Int(JobsLaunchFailedKey, launchFailed),
		attribute.Int(JobsStoppedKey, stopped),
		attribute.Int(JobsReapedKey, reaped),
		attribute.Int(JobsRunningKey, running),
	}
}
