package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/flickroom/client/internal/domain"
	"github.com/flickroom/client/internal/repository/state"
)

var ErrInvalidState = errors.New("invalid session state")

type iStateRepo interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Store keeps the session record in memory and writes it through to the
// durable repository. Readers always see a complete record.
type Store struct {
	repo   iStateRepo
	logger *slog.Logger

	// writeMu serializes persist-then-swap sequences.
	writeMu sync.Mutex

	mu    sync.RWMutex
	state domain.SessionState

	watchMu     sync.Mutex
	watchers    map[int]func(domain.SessionState)
	nextWatcher int
}

func NewStore(repo iStateRepo, logger *slog.Logger) *Store {
	return &Store{
		repo:     repo,
		logger:   logger,
		watchers: make(map[int]func(domain.SessionState)),
	}
}

func (s *Store) Read() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Clone()
}

// Replace validates and persists next, then swaps it in. A failed persist
// leaves the in-memory record untouched.
func (s *Store) Replace(ctx context.Context, next domain.SessionState) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.Persist(ctx, next); err != nil {
		return err
	}

	s.swap(next)
	return nil
}

// Persist writes state to durable storage without touching the in-memory
// record. The Idle record is persisted as the absence of all keys.
func (s *Store) Persist(ctx context.Context, st domain.SessionState) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	if !st.InRoom() {
		if err := s.repo.Delete(ctx, state.SessionKeys...); err != nil {
			return fmt.Errorf("failed to clear session state: %w", err)
		}
		return nil
	}

	values, err := encode(st)
	if err != nil {
		return err
	}

	if err := s.repo.Set(ctx, values); err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}

	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Delete(ctx, state.SessionKeys...); err != nil {
		return fmt.Errorf("failed to clear session state: %w", err)
	}

	s.swap(domain.SessionState{})
	return nil
}

// Restore loads the durable record. A record that cannot be decoded or
// violates the session invariants is cleared and Idle is returned.
func (s *Store) Restore(ctx context.Context) (domain.SessionState, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	values, err := s.repo.Get(ctx, state.SessionKeys...)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("failed to restore session state: %w", err)
	}

	restored, err := decode(values)
	if err == nil {
		err = restored.Validate()
	}
	if err != nil {
		s.logger.WarnContext(ctx, "discarding invalid session record", "error", err)
		if err := s.repo.Delete(ctx, state.SessionKeys...); err != nil {
			return domain.SessionState{}, fmt.Errorf("failed to clear invalid session state: %w", err)
		}
		restored = domain.SessionState{}
	}

	s.swap(restored)
	return restored.Clone(), nil
}

// Watch registers fn to be called with the new record after every change.
// The returned func removes it.
func (s *Store) Watch(fn func(domain.SessionState)) func() {
	s.watchMu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	s.watchMu.Unlock()

	return func() {
		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}
}

func (s *Store) swap(next domain.SessionState) {
	s.mu.Lock()
	s.state = next.Clone()
	s.mu.Unlock()

	s.watchMu.Lock()
	fns := make([]func(domain.SessionState), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()

	for _, fn := range fns {
		fn(next.Clone())
	}
}

func encode(st domain.SessionState) (map[string]string, error) {
	recommendations := st.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}

	queue, err := json.Marshal(recommendations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recommendations: %w", err)
	}

	return map[string]string{
		state.RoomIdKey:          st.RoomId,
		state.IsOwnerKey:         strconv.FormatBool(st.IsOwner),
		state.RecommendationsKey: string(queue),
		state.CursorKey:          strconv.Itoa(st.Cursor),
		state.SessionActiveKey:   strconv.FormatBool(st.SessionActive),
	}, nil
}

// decode treats missing keys as their zero value.
func decode(values map[string]string) (domain.SessionState, error) {
	var st domain.SessionState

	st.RoomId = values[state.RoomIdKey]
	if st.RoomId == "" {
		return domain.SessionState{}, nil
	}

	var err error
	if v, ok := values[state.IsOwnerKey]; ok && v != "" {
		if st.IsOwner, err = strconv.ParseBool(v); err != nil {
			return domain.SessionState{}, fmt.Errorf("invalid %s: %w", state.IsOwnerKey, err)
		}
	}

	if v, ok := values[state.SessionActiveKey]; ok && v != "" {
		if st.SessionActive, err = strconv.ParseBool(v); err != nil {
			return domain.SessionState{}, fmt.Errorf("invalid %s: %w", state.SessionActiveKey, err)
		}
	}

	if v, ok := values[state.CursorKey]; ok && v != "" {
		if st.Cursor, err = strconv.Atoi(v); err != nil {
			return domain.SessionState{}, fmt.Errorf("invalid %s: %w", state.CursorKey, err)
		}
	}

	if v, ok := values[state.RecommendationsKey]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &st.Recommendations); err != nil {
			return domain.SessionState{}, fmt.Errorf("invalid %s: %w", state.RecommendationsKey, err)
		}
	}

	if st.SessionActive && st.Recommendations == nil {
		st.Recommendations = []string{}
	}

	return st, nil
}
