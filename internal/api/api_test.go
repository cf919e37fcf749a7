// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/iptranscoder/internal/enforcer"
	"github.com/ManuGH/iptranscoder/internal/ffmpeg"
	"github.com/ManuGH/iptranscoder/internal/health"
	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/store"
	"github.com/ManuGH/iptranscoder/internal/supervisor"
)

type staticJobs struct{ snap enforcer.Snapshot }

func (s staticJobs) Snapshot() enforcer.Snapshot { return s.snap }

type fixedChecker struct{ status health.Status }

func (c fixedChecker) Name() string { return "store" }
func (c fixedChecker) Check(context.Context) health.CheckResult {
	return health.CheckResult{Status: c.status}
}

type fixture struct {
	srv     *Server
	store   *store.MemoryStore
	channel model.Channel
}

func newFixture(t *testing.T, rateLimit int, ready health.Status) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()

	ch := model.Channel{
		Name:                    "news",
		InputType:               model.InputUDPMulticast,
		InputURL:                "udp://239.0.0.1:1234",
		OutputType:              model.OutputUDPTS,
		OutputTarget:            "udp://10.0.0.1:5000",
		RecordingPathTemplate:   "rec/{channel}/{date}",
		RecordingSegmentMinutes: 30,
		VideoMode:               model.VideoCopy,
		AudioMode:               model.AudioCopy,
	}
	require.NoError(t, st.SaveChannel(ctx, &ch))

	broken := ch
	broken.ID = 0
	broken.Name = "broken"
	broken.RecordingPathTemplate = "rec/{bogus}"
	require.NoError(t, st.SaveChannel(ctx, &broken))

	require.NoError(t, st.SaveTimeShiftProfile(ctx, &model.TimeShiftProfile{
		ChannelID: ch.ID, Enabled: true, DelayMinutes: 30, OutputUDPURL: "udp://239.1.1.1:5000",
	}))
	for _, rs := range []model.RecurringSchedule{
		{ChannelID: ch.ID, Name: "nightly rec", Purpose: model.PurposeRecord},
		{ChannelID: ch.ID, Name: "replay", Purpose: model.PurposePlayback},
		{ChannelID: ch.ID, Name: "relay", Purpose: model.PurposeLiveForward},
	} {
		rs.Enabled = true
		rs.Days = model.Weekdays{Monday: true}
		rs.StartTime = model.Clock(20, 0, 0)
		rs.EndTime = model.Clock(22, 0, 0)
		require.NoError(t, st.SaveRecurringSchedule(ctx, &rs))
	}

	now := time.Date(2026, 6, 6, 20, 0, 0, 0, time.UTC)
	hm := health.NewManager("test")
	hm.RegisterChecker(fixedChecker{status: ready})

	jobs := staticJobs{snap: enforcer.Snapshot{
		TickID: "tick-9", At: now, Desired: 1,
		Jobs: []enforcer.JobStatus{{
			Key: model.OneOffKey(4), ChannelID: ch.ID, ChannelName: "news",
			Purpose: model.PurposeRecord, ScheduleName: "evening",
			State: supervisor.StateRunning, PID: 4242, StartedAt: now,
		}},
	}}

	srv := New(Deps{
		Store:     st,
		Jobs:      jobs,
		Commands:  ffmpeg.NewBuilder("ffmpeg", "/srv/media", func() time.Time { return now }),
		Health:    hm,
		RateLimit: rateLimit,
	})
	return &fixture{srv: srv, store: st, channel: ch}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:5555"
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, 0, health.StatusHealthy)
	assert.Equal(t, http.StatusOK, f.get(t, "/healthz").Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/readyz").Code)

	f = newFixture(t, 0, health.StatusUnhealthy)
	assert.Equal(t, http.StatusOK, f.get(t, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.get(t, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, 0, health.StatusHealthy)
	rec := f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "iptranscoder_jobs_desired")
}

func TestJobs(t *testing.T) {
	f := newFixture(t, 0, health.StatusHealthy)
	rec := f.get(t, "/api/v1/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	snap := decode[enforcer.Snapshot](t, rec)
	assert.Equal(t, "tick-9", snap.TickID)
	require.Len(t, snap.Jobs, 1)
	assert.Equal(t, model.OneOffKey(4), snap.Jobs[0].Key)
	assert.Equal(t, 4242, snap.Jobs[0].PID)
}

func TestOverview(t *testing.T) {
	f := newFixture(t, 0, health.StatusHealthy)
	rec := f.get(t, "/api/v1/overview")
	require.Equal(t, http.StatusOK, rec.Code)

	ov := decode[Overview](t, rec)
	require.Len(t, ov.Channels, 2)
	news := ov.Channels[0]
	assert.Equal(t, "news", news.Channel.Name)
	require.NotNil(t, news.TimeShift)
	assert.Equal(t, 30, news.TimeShift.DelayMinutes)
	require.Len(t, news.Recurring.Record, 1)
	assert.Equal(t, "nightly rec", news.Recurring.Record[0].Name)
	require.Len(t, news.Recurring.Playback, 1)
	require.Len(t, news.Recurring.Other, 1)
	assert.Equal(t, "relay", news.Recurring.Other[0].Name)

	broken := ov.Channels[1]
	assert.Nil(t, broken.TimeShift)
	assert.Empty(t, broken.Recurring.Record)
}

func TestCommand(t *testing.T) {
	f := newFixture(t, 0, health.StatusHealthy)

	rec := f.get(t, "/api/v1/channels/1/command?purpose=record")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cmd := decode[CommandResponse](t, rec)
	assert.Equal(t, model.PurposeRecord, cmd.Purpose)
	assert.Equal(t, "ffmpeg", cmd.Argv[0])
	assert.Contains(t, cmd.Argv, "/srv/media/rec/news/20260606/news_%05d.ts")
	assert.Equal(t, ffmpeg.Quote(cmd.Argv), cmd.Command)
	assert.NoDirExists(t, "/srv/media/rec/news", "preview never creates directories")

	rec = f.get(t, "/api/v1/channels/1/command")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.PurposeLiveForward, decode[CommandResponse](t, rec).Purpose)

	tests := []struct {
		path string
		code int
	}{
		{"/api/v1/channels/abc/command", http.StatusBadRequest},
		{"/api/v1/channels/99/command", http.StatusNotFound},
		{"/api/v1/channels/1/command?purpose=transmogrify", http.StatusBadRequest},
		{"/api/v1/channels/1/command?purpose=playback", http.StatusNotImplemented},
		{"/api/v1/channels/2/command?purpose=record", http.StatusUnprocessableEntity},
		{"/api/v1/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, f.get(t, tt.path).Code, tt.path)
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, 2, health.StatusHealthy)
	assert.Equal(t, http.StatusOK, f.get(t, "/api/v1/jobs").Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/api/v1/jobs").Code)
	rec := f.get(t, "/api/v1/jobs")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Probes are outside the limited group.
	assert.Equal(t, http.StatusOK, f.get(t, "/healthz").Code)
}

func TestRecoverer(t *testing.T) {
	h := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	})))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-1", decode[map[string]string](t, rec)["request_id"])
}

func TestServeShutsDown(t *testing.T) {
	f := newFixture(t, 0, health.StatusHealthy)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}
}
