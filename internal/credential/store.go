package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flickroom/client/internal/repository/state"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoCredential = errors.New("no credential")
	ErrExpired      = errors.New("credential expired")
)

type iStateRepo interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Store holds the bearer token issued by the backend. It is write-through to
// the durable state repository.
type Store struct {
	repo   iStateRepo
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	token  string
	loaded bool
}

func NewStore(repo iStateRepo, logger *slog.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Store) load(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	values, err := s.repo.Get(ctx, state.CredentialKey)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.token = values[state.CredentialKey]
		s.loaded = true
	}

	return nil
}

// Get returns the stored token. Tokens that carry an exp claim in the past
// are reported as ErrExpired; tokens that are not JWTs are passed through.
func (s *Store) Get(ctx context.Context) (string, error) {
	if err := s.load(ctx); err != nil {
		return "", err
	}

	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return "", ErrNoCredential
	}

	if s.expired(ctx, token) {
		return "", ErrExpired
	}

	return token, nil
}

func (s *Store) Set(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoCredential
	}

	if err := s.repo.Set(ctx, map[string]string{state.CredentialKey: token}); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.loaded = true
	s.mu.Unlock()

	return nil
}

// Clear drops the in-memory token even when the durable delete fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.loaded = true
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, state.CredentialKey); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}

	return nil
}

func (s *Store) expired(ctx context.Context, token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		s.logger.DebugContext(ctx, "credential is not a jwt, skipping expiry check", "error", err)
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return !exp.After(s.now())
}
