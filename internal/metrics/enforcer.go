// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes Prometheus metrics for the enforcer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptranscoder_enforcer_ticks_total",
		Help: "Reconciliation ticks by outcome",
	}, []string{"outcome"}) // outcome=ok|store_error

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iptranscoder_enforcer_tick_duration_seconds",
		Help:    "Wall time of one reconciliation tick",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	lastTick = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptranscoder_enforcer_last_tick_timestamp_seconds",
		Help: "Unix time of the last completed tick",
	})

	jobsDesired = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptranscoder_jobs_desired",
		Help: "Jobs the schedules want running (last tick)",
	})

	jobsRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iptranscoder_jobs_running",
		Help: "Supervised jobs by purpose (last tick)",
	}, []string{"purpose"})

	jobLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptranscoder_job_launches_total",
		Help: "Job launch attempts by purpose and outcome",
	}, []string{"purpose", "outcome"}) // outcome=started|build_error|launch_error

	jobStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptranscoder_job_stops_total",
		Help: "Stop requests by reason",
	}, []string{"reason"}) // reason=undesired|shutdown

	jobExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptranscoder_job_exits_total",
		Help: "Jobs reaped after exiting on their own, by outcome",
	}, []string{"outcome"}) // outcome=clean|error|signaled

	procTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptranscoder_proc_signal_total",
		Help: "Signals sent to job process groups",
	}, []string{"signal", "result"}) // result=sent|esrch|error

	storeChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptranscoder_store_integrity_checks_total",
		Help: "Scheduled store integrity checks by outcome",
	}, []string{"outcome"})

	statusPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptranscoder_status_publish_errors_total",
		Help: "Failures publishing the job board",
	}, []string{"sink"})
)

// Outcome labels for ObserveTick.
const (
	TickOK         = "ok"
	TickStoreError = "store_error"
)

// ObserveTick records one reconciliation pass.
func ObserveTick(outcome string, d time.Duration, at time.Time) {
	ticksTotal.WithLabelValues(outcome).Inc()
	tickDuration.Observe(d.Seconds())
	lastTick.Set(float64(at.Unix()))
}

// SetJobsDesired records the size of the desired set.
func SetJobsDesired(n int) { jobsDesired.Set(float64(n)) }

// SetJobsRunning replaces the per-purpose running gauges.
func SetJobsRunning(byPurpose map[string]int) {
	jobsRunning.Reset()
	for purpose, n := range byPurpose {
		jobsRunning.WithLabelValues(purpose).Set(float64(n))
	}
}

// IncJobLaunch counts a launch attempt.
func IncJobLaunch(purpose, outcome string) { jobLaunches.WithLabelValues(purpose, outcome).Inc() }

// IncJobStop counts a stop request.
func IncJobStop(reason string) { jobStops.WithLabelValues(reason).Inc() }

// IncJobExit counts a reaped job.
func IncJobExit(outcome string) { jobExits.WithLabelValues(outcome).Inc() }

// IncProcTerminate counts a signal delivery to a process group.
func IncProcTerminate(signal, result string) { procTerminate.WithLabelValues(signal, result).Inc() }

// IncStoreCheck counts a scheduled integrity check.
func IncStoreCheck(outcome string) { storeChecks.WithLabelValues(outcome).Inc() }

// IncStatusPublishError counts a failed job board publish.
func IncStatusPublishError(sink string) { statusPublishErrors.WithLabelValues(sink).Inc() }
