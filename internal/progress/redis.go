package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"postroll/internal/config"
	"postroll/internal/logging"
)

// Redis stores progress as one hash per video with a rolling TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisClient connects to the configured server and verifies it with PING.
func NewRedisClient(ctx context.Context, cfg config.Progress) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, now: time.Now}
}

// Open returns the tracker selected by cfg.Progress. When Redis is disabled
// progress is kept in memory and lost on restart.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Tracker, func() error, error) {
	if !cfg.Progress.Enabled {
		return NewMemory(), func() error { return nil }, nil
	}
	client, err := NewRedisClient(ctx, cfg.Progress)
	if err != nil {
		return nil, nil, err
	}
	logging.NewComponentLogger(logger, "progress").Info("redis progress tracker ready",
		logging.String("addr", cfg.Progress.RedisAddr),
		logging.Int("ttl_seconds", cfg.Progress.TTLSeconds),
	)
	return NewRedis(client, time.Duration(cfg.Progress.TTLSeconds)*time.Second), client.Close, nil
}

func (r *Redis) Job(ctx context.Context, videoID int64, jobID string, state State, stage string) error {
	key := Key(videoID)
	current, err := r.client.HGet(ctx, key, fieldJobID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read %s: %w", key, err)
	}
	reset := err == nil && current != jobID
	return r.write(ctx, key, reset, map[string]any{
		fieldJobID: jobID,
		fieldState: string(state),
		fieldStage: stage,
	})
}

func (r *Redis) Subtask(ctx context.Context, videoID int64, name string, state State, detail string) error {
	values := map[string]any{subtaskPrefix + name: string(state)}
	if state == StateFailed && detail != "" {
		values[errorPrefix+name] = detail
	}
	return r.write(ctx, Key(videoID), false, values)
}

func (r *Redis) Get(ctx context.Context, videoID int64) (Snapshot, error) {
	fields, err := r.client.HGetAll(ctx, Key(videoID)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", Key(videoID), err)
	}
	return decode(videoID, fields)
}

func (r *Redis) write(ctx context.Context, key string, reset bool, values map[string]any) error {
	values[fieldUpdatedAt] = r.now().UTC().Format(time.RFC3339Nano)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if reset {
			pipe.Del(ctx, key)
		}
		pipe.HSet(ctx, key, values)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
