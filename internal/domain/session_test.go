package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase(t *testing.T) {
	var idle SessionState
	assert.Equal(t, PhaseIdle, idle.Phase())
	assert.NoError(t, idle.Validate())

	awaiting := NewRoomState("R1", true)
	assert.Equal(t, PhaseAwaitingStart, awaiting.Phase())

	inSession := awaiting.WithRecommendations([]string{"tt1", "tt2"})
	assert.Equal(t, PhaseInSession, inSession.Phase())
	current, ok := inSession.Current()
	assert.True(t, ok)
	assert.Equal(t, "tt1", current)

	exhausted := inSession.Advanced().Advanced()
	assert.Equal(t, PhaseExhausted, exhausted.Phase())
	_, ok = exhausted.Current()
	assert.False(t, ok)

	empty := awaiting.WithRecommendations(nil)
	assert.Equal(t, PhaseExhausted, empty.Phase())
	assert.NotNil(t, empty.Recommendations)
}

func TestAdvancedNeverPassesEnd(t *testing.T) {
	s := NewRoomState("R1", false).WithRecommendations([]string{"tt1"})
	for range 5 {
		prev := s.Cursor
		s = s.Advanced()
		assert.GreaterOrEqual(t, s.Cursor, prev)
		assert.LessOrEqual(t, s.Cursor, len(s.Recommendations))
		require.NoError(t, s.Validate())
	}
	assert.Equal(t, 0, s.Remaining())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, SessionState{IsOwner: true}.Validate(), ErrIdleNotEmpty)
	assert.ErrorIs(t, SessionState{Cursor: 1}.Validate(), ErrIdleNotEmpty)
	assert.ErrorIs(t, SessionState{RoomId: "R1", Cursor: 3, Recommendations: []string{"a"}}.Validate(), ErrCursorOutOfRange)
	assert.ErrorIs(t, SessionState{RoomId: "R1", Cursor: -1}.Validate(), ErrCursorOutOfRange)
	assert.NoError(t, SessionState{RoomId: "R1", Cursor: 1, Recommendations: []string{"a"}, SessionActive: true}.Validate())
	assert.NoError(t, NewRoomState("R1", false).Validate())
	assert.ErrorIs(t, SessionState{RoomId: "R1", Recommendations: []string{"a"}}.Validate(), ErrNotStarted)
	assert.ErrorIs(t, SessionState{RoomId: "R1", Cursor: 1, Recommendations: []string{"a", "b"}}.Validate(), ErrNotStarted)
}

func TestCloneDoesNotShareQueue(t *testing.T) {
	s := NewRoomState("R1", false).WithRecommendations([]string{"tt1", "tt2"})
	c := s.Clone()
	c.Recommendations[0] = "changed"
	assert.Equal(t, "tt1", s.Recommendations[0])
	assert.False(t, s.Equal(c))
}

func TestGenresUnmarshal(t *testing.T) {
	var m MediaDetail
	require.NoError(t, json.Unmarshal([]byte(`{"tconst":"tt1","genres":["Drama","Crime"]}`), &m))
	assert.Equal(t, Genres{"Drama", "Crime"}, m.Genres)

	require.NoError(t, json.Unmarshal([]byte(`{"tconst":"tt1","genres":"Drama, Crime ,"}`), &m))
	assert.Equal(t, Genres{"Drama", "Crime"}, m.Genres)

	m = MediaDetail{}
	require.NoError(t, json.Unmarshal([]byte(`{"tconst":"tt1","genres":null}`), &m))
	assert.Empty(t, m.Genres)
}
