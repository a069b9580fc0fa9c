package inmemory

import (
	"context"
	"maps"
	"sync"

	"github.com/flickroom/client/internal/repository/state"
)

type repo struct {
	values map[string]string
	mu     sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		values: make(map[string]string),
	}
}

func (r *repo) Get(_ context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return nil, state.ErrEmptyKeys
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := r.values[key]; ok {
			result[key] = value
		}
	}

	return result, nil
}

func (r *repo) Set(_ context.Context, values map[string]string) error {
	if len(values) == 0 {
		return state.ErrEmptyKeys
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	maps.Copy(r.values, values)
	return nil
}

func (r *repo) Delete(_ context.Context, keys ...string) error {
	if len(keys) == 0 {
		return state.ErrEmptyKeys
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range keys {
		delete(r.values, key)
	}

	return nil
}

func (r *repo) Close() error {
	return nil
}
