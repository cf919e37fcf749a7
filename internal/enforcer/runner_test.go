// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package enforcer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/store"
)

func TestRunOnceWaitsForExit(t *testing.T) {
	f := newFixture(t)
	code := 0
	f.launcher.exitAtOnce = &code
	r := NewRunner(f.store, f.builder, f.launcher)

	st, err := r.RunOnce(context.Background(), f.channel.ID, model.PurposeRecord)
	require.NoError(t, err)
	assert.True(t, st.Clean())
	assert.Equal(t, []model.JobKey{model.ManualKey(f.channel.ID)}, f.launcher.launches)
	assert.Contains(t, f.launcher.argv[model.ManualKey(f.channel.ID)], "--purpose=record")
}

func TestRunOnceStopsOnInterrupt(t *testing.T) {
	f := newFixture(t)
	f.launcher.exitOnStop = true
	r := NewRunner(f.store, f.builder, f.launcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.RunOnce(ctx, f.channel.ID, model.PurposeLiveForward)
		done <- err
	}()

	require.Eventually(t, func() bool { return f.launcher.launchCount() == 1 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunOnce did not return")
	}
	assert.Equal(t, 1, f.launcher.latest(model.ManualKey(f.channel.ID)).stopCount())
}

func TestRunOnceErrors(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(f.store, f.builder, f.launcher)
	ctx := context.Background()

	_, err := r.RunOnce(ctx, f.channel.ID, model.PurposePlayback)
	assert.ErrorIs(t, err, ErrUnsupportedPurpose)

	_, err = r.RunOnce(ctx, 999, model.PurposeRecord)
	assert.ErrorIs(t, err, store.ErrNotFound)

	bad := errors.New("unknown placeholder")
	f.builder.fail[f.channel.ID] = bad
	_, err = r.RunOnce(ctx, f.channel.ID, model.PurposeRecord)
	assert.ErrorIs(t, err, bad)

	delete(f.builder.fail, f.channel.ID)
	f.launcher.fail[model.ManualKey(f.channel.ID)] = errors.New("permission denied")
	_, err = r.RunOnce(ctx, f.channel.ID, model.PurposeRecord)
	assert.Error(t, err)

	assert.Equal(t, 1, f.launcher.launchCount())
}
