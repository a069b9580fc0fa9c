package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/flickroom/client/internal/domain"
	"github.com/flickroom/client/internal/repository/state"
	"github.com/flickroom/client/internal/repository/state/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBroken = errors.New("broken storage")

type failingRepo struct {
	iStateRepo
	failSet bool
}

func (r *failingRepo) Set(ctx context.Context, values map[string]string) error {
	if r.failSet {
		return errBroken
	}
	return r.iStateRepo.Set(ctx, values)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func inSession() domain.SessionState {
	return domain.NewRoomState("R1", true).WithRecommendations([]string{"tt1", "tt2", "tt3"}).Advanced()
}

func TestReplacePersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewRepo()

	s := NewStore(repo, discardLogger())
	require.NoError(t, s.Replace(ctx, inSession()))
	assert.True(t, s.Read().Equal(inSession()))

	restarted := NewStore(repo, discardLogger())
	restored, err := restarted.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, restored.Equal(inSession()))
	assert.Equal(t, domain.PhaseInSession, restarted.Read().Phase())
}

func TestAwaitingStartRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewRepo()

	s := NewStore(repo, discardLogger())
	require.NoError(t, s.Replace(ctx, domain.NewRoomState("R9", false)))

	restored, err := NewStore(repo, discardLogger()).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "R9", restored.RoomId)
	assert.False(t, restored.IsOwner)
	assert.Equal(t, domain.PhaseAwaitingStart, restored.Phase())
}

func TestReplaceRejectsInvalidState(t *testing.T) {
	s := NewStore(inmemory.NewRepo(), discardLogger())

	bad := domain.NewRoomState("R1", true)
	bad.Cursor = 5

	err := s.Replace(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, domain.PhaseIdle, s.Read().Phase())
}

func TestFailedPersistKeepsState(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{iStateRepo: inmemory.NewRepo()}

	s := NewStore(repo, discardLogger())
	require.NoError(t, s.Replace(ctx, domain.NewRoomState("R1", true)))

	repo.failSet = true
	err := s.Replace(ctx, inSession())
	assert.ErrorIs(t, err, errBroken)
	assert.Equal(t, domain.PhaseAwaitingStart, s.Read().Phase())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewRepo()

	s := NewStore(repo, discardLogger())
	require.NoError(t, s.Replace(ctx, inSession()))
	require.NoError(t, s.Clear(ctx))

	assert.Equal(t, domain.SessionState{}, s.Read())

	values, err := repo.Get(ctx, state.SessionKeys...)
	require.NoError(t, err)
	assert.Empty(t, values)

	restored, err := NewStore(repo, discardLogger()).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIdle, restored.Phase())
}

func TestRestoreDiscardsInvalidRecord(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{
			name: "cursor out of bounds",
			values: map[string]string{
				state.RoomIdKey:          "R1",
				state.RecommendationsKey: `["tt1"]`,
				state.CursorKey:          "4",
				state.SessionActiveKey:   "true",
			},
		},
		{
			name: "unparsable cursor",
			values: map[string]string{
				state.RoomIdKey: "R1",
				state.CursorKey: "abc",
			},
		},
		{
			name: "queue without started session",
			values: map[string]string{
				state.RoomIdKey:          "R1",
				state.RecommendationsKey: `["tt1","tt2"]`,
				state.CursorKey:          "1",
				state.SessionActiveKey:   "false",
			},
		},
		{
			name: "unparsable queue",
			values: map[string]string{
				state.RoomIdKey:          "R1",
				state.RecommendationsKey: "{",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := inmemory.NewRepo()
			require.NoError(t, repo.Set(ctx, tt.values))

			restored, err := NewStore(repo, discardLogger()).Restore(ctx)
			require.NoError(t, err)
			assert.Equal(t, domain.PhaseIdle, restored.Phase())

			values, err := repo.Get(ctx, state.SessionKeys...)
			require.NoError(t, err)
			assert.Empty(t, values)
		})
	}
}

func TestRestoreEmpty(t *testing.T) {
	restored, err := NewStore(inmemory.NewRepo(), discardLogger()).Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SessionState{}, restored)
}

func TestWatch(t *testing.T) {
	ctx := context.Background()
	s := NewStore(inmemory.NewRepo(), discardLogger())

	var seen []domain.Phase
	cancel := s.Watch(func(st domain.SessionState) {
		seen = append(seen, st.Phase())
	})

	require.NoError(t, s.Replace(ctx, domain.NewRoomState("R1", false)))
	require.NoError(t, s.Clear(ctx))
	cancel()
	require.NoError(t, s.Replace(ctx, domain.NewRoomState("R2", false)))

	assert.Equal(t, []domain.Phase{domain.PhaseAwaitingStart, domain.PhaseIdle}, seen)
}

func TestReadReturnsCopy(t *testing.T) {
	s := NewStore(inmemory.NewRepo(), discardLogger())
	require.NoError(t, s.Replace(context.Background(), inSession()))

	st := s.Read()
	st.Recommendations[0] = "changed"

	assert.Equal(t, "tt1", s.Read().Recommendations[0])
}
