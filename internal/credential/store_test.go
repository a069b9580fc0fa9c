package credential

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/flickroom/client/internal/repository/state"
	"github.com/flickroom/client/internal/repository/state/inmemory"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestSetGetClear(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewRepo()
	s := NewStore(repo, slog.Default())

	_, err := s.Get(ctx)
	assert.ErrorIs(t, err, ErrNoCredential)

	token := signed(t, time.Now().Add(time.Hour))
	require.NoError(t, s.Set(ctx, token))

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, got)

	values, err := repo.Get(ctx, state.CredentialKey)
	require.NoError(t, err)
	assert.Equal(t, token, values[state.CredentialKey])

	require.NoError(t, s.Clear(ctx))
	_, err = s.Get(ctx)
	assert.ErrorIs(t, err, ErrNoCredential)

	values, err = repo.Get(ctx, state.CredentialKey)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestLoadsFromRepo(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewRepo()
	require.NoError(t, repo.Set(ctx, map[string]string{state.CredentialKey: "opaque-token"}))

	got, err := NewStore(repo, slog.Default()).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", got)
}

func TestExpiredToken(t *testing.T) {
	ctx := context.Background()
	s := NewStore(inmemory.NewRepo(), slog.Default())
	require.NoError(t, s.Set(ctx, signed(t, time.Now().Add(-time.Minute))))

	_, err := s.Get(ctx)
	assert.ErrorIs(t, err, ErrExpired)

	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	_, err = s.Get(ctx)
	assert.NoError(t, err)
}

func TestSetEmpty(t *testing.T) {
	s := NewStore(inmemory.NewRepo(), slog.Default())
	assert.ErrorIs(t, s.Set(context.Background(), ""), ErrNoCredential)
}
