// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromhttpExposure(t *testing.T) {
	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestObserveTick(t *testing.T) {
	before := testutil.ToFloat64(ticksTotal.WithLabelValues(TickOK))
	at := time.Unix(1_800_000_000, 0)
	ObserveTick(TickOK, 20*time.Millisecond, at)

	assert.Equal(t, before+1, testutil.ToFloat64(ticksTotal.WithLabelValues(TickOK)))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(lastTick))
}

func TestSetJobsRunningResets(t *testing.T) {
	SetJobsRunning(map[string]int{"record": 2, "live_forward": 1})
	assert.Equal(t, 2, testutil.CollectAndCount(jobsRunning))

	SetJobsRunning(map[string]int{"record": 1})
	assert.Equal(t, 1, testutil.CollectAndCount(jobsRunning))
	assert.Equal(t, float64(1), testutil.ToFloat64(jobsRunning.WithLabelValues("record")))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(jobLaunches.WithLabelValues("record", "started"))
	IncJobLaunch("record", "started")
	assert.Equal(t, before+1, testutil.ToFloat64(jobLaunches.WithLabelValues("record", "started")))

	before = testutil.ToFloat64(procTerminate.WithLabelValues("SIGTERM", "esrch"))
	IncProcTerminate("SIGTERM", "esrch")
	assert.Equal(t, before+1, testutil.ToFloat64(procTerminate.WithLabelValues("SIGTERM", "esrch")))
}
