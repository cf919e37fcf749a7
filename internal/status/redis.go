// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/iptranscoder/internal/enforcer"
	"github.com/ManuGH/iptranscoder/internal/log"
)

// DefaultRedisKey is the snapshot key when none is configured.
const DefaultRedisKey = "iptranscoder:status"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Key receives the full snapshot; Key+":jobs" is a hash of job key to job.
	Key string
	// TTL expires the board if the daemon stops publishing. Zero keeps it.
	TTL time.Duration
}

// RedisPublisher mirrors every snapshot into Redis.
type RedisPublisher struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return newRedisPublisher(client, cfg), nil
}

func newRedisPublisher(client *redis.Client, cfg RedisConfig) *RedisPublisher {
	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}
	p := &RedisPublisher{
		client: client,
		key:    key,
		ttl:    cfg.TTL,
		logger: log.WithComponent("status"),
	}
	p.logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Str("key", key).Msg("publishing status to Redis")
	return p
}

// Name implements enforcer.Publisher.
func (p *RedisPublisher) Name() string { return "redis" }

// JobsKey is the hash holding one field per supervised job.
func (p *RedisPublisher) JobsKey() string { return p.key + ":jobs" }

// Publish implements enforcer.Publisher. The snapshot and the job hash are
// replaced in one transaction.
func (p *RedisPublisher) Publish(ctx context.Context, snap enforcer.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	fields := make(map[string]any, len(snap.Jobs))
	for _, job := range snap.Jobs {
		b, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("encode job %s: %w", job.Key, err)
		}
		fields[job.Key.String()] = b
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.key, data, p.ttl)
		pipe.Del(ctx, p.JobsKey())
		if len(fields) > 0 {
			pipe.HSet(ctx, p.JobsKey(), fields)
			if p.ttl > 0 {
				pipe.Expire(ctx, p.JobsKey(), p.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// HealthCheck checks if Redis is reachable.
func (p *RedisPublisher) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
