package redis

import (
	"context"
	"fmt"

	"github.com/flickroom/client/internal/repository/state"
	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc        *redis.Client
	namespace string
}

// NewRepo stores every key under "client:<namespace>:" so several profiles
// can share one Redis.
func NewRepo(rc *redis.Client, namespace string) *repo {
	return &repo{
		rc:        rc,
		namespace: namespace,
	}
}

func (r repo) getKey(key string) string {
	return "client:" + r.namespace + ":" + key
}

func (r repo) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return nil, state.ErrEmptyKeys
	}

	redisKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		redisKeys = append(redisKeys, r.getKey(key))
	}

	values, err := r.rc.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	result := make(map[string]string, len(keys))
	for i, value := range values {
		if s, ok := value.(string); ok {
			result[keys[i]] = s
		}
	}

	return result, nil
}

func (r repo) Set(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return state.ErrEmptyKeys
	}

	pipe := r.rc.TxPipeline()
	for key, value := range values {
		pipe.Set(ctx, r.getKey(key), value, 0)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set state: %w", err)
	}

	return nil
}

func (r repo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return state.ErrEmptyKeys
	}

	pipe := r.rc.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, r.getKey(key))
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}

	return nil
}

func (r repo) Close() error {
	return r.rc.Close()
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
