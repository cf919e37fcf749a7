// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package status

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/iptranscoder/internal/enforcer"
	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/supervisor"
)

func testSnapshot(jobs int) enforcer.Snapshot {
	at := time.Date(2026, 6, 6, 20, 0, 0, 0, time.UTC)
	snap := enforcer.Snapshot{TickID: "tick-1", At: at, Desired: jobs, Jobs: []enforcer.JobStatus{}}
	for i := 1; i <= jobs; i++ {
		snap.Jobs = append(snap.Jobs, enforcer.JobStatus{
			Key:          model.OneOffKey(int64(i)),
			ChannelID:    7,
			ChannelName:  "news",
			Purpose:      model.PurposeRecord,
			ScheduleName: "evening",
			State:        supervisor.StateRunning,
			PID:          4000 + i,
			StartedAt:    at,
		})
	}
	return snap
}

func TestFileWriterPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "status.json")
	w, err := NewFileWriter(path)
	require.NoError(t, err)
	assert.Equal(t, "file", w.Name())

	require.NoError(t, w.Publish(context.Background(), testSnapshot(2)))
	require.NoError(t, w.Publish(context.Background(), testSnapshot(1)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got struct {
		TickID string `json:"tick_id"`
		Jobs   []struct {
			Key   string `json:"key"`
			State string `json:"state"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "tick-1", got.TickID)
	require.Len(t, got.Jobs, 1)
	assert.Equal(t, "oneoff:1", got.Jobs[0].Key)
	assert.Equal(t, "running", got.Jobs[0].State)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func setupMiniRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisPublisher) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, newRedisPublisher(client, RedisConfig{Addr: mr.Addr(), Key: "iptx:test", TTL: ttl})
}

func TestRedisPublisher(t *testing.T) {
	mr, p := setupMiniRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, testSnapshot(2)))
	assert.ElementsMatch(t, []string{"oneoff:1", "oneoff:2"}, hkeys(t, mr, "iptx:test:jobs"))
	assert.Equal(t, time.Minute, mr.TTL("iptx:test"))
	assert.Equal(t, time.Minute, mr.TTL("iptx:test:jobs"))

	raw, err := mr.Get("iptx:test")
	require.NoError(t, err)
	var snap enforcer.Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	assert.Equal(t, "tick-1", snap.TickID)
	assert.Len(t, snap.Jobs, 2)

	// A later tick with fewer jobs replaces the board.
	require.NoError(t, p.Publish(ctx, testSnapshot(1)))
	assert.Equal(t, []string{"oneoff:1"}, hkeys(t, mr, "iptx:test:jobs"))

	require.NoError(t, p.Publish(ctx, testSnapshot(0)))
	assert.False(t, mr.Exists("iptx:test:jobs"))
	assert.True(t, mr.Exists("iptx:test"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("iptx:test"))
}

func TestRedisPublisherUnavailable(t *testing.T) {
	mr, p := setupMiniRedis(t, 0)
	require.NoError(t, p.HealthCheck(context.Background()))
	addr := mr.Addr()
	mr.Close()

	assert.Error(t, p.Publish(context.Background(), testSnapshot(1)))
	assert.Error(t, p.HealthCheck(context.Background()))

	_, err := NewRedisPublisher(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func hkeys(t *testing.T, mr *miniredis.Miniredis, key string) []string {
	t.Helper()
	keys, err := mr.HKeys(key)
	require.NoError(t, err)
	return keys
}
