package domain

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrCursorOutOfRange = errors.New("cursor out of range")
	ErrIdleNotEmpty     = errors.New("idle session has non-default fields")
	ErrNotStarted       = errors.New("session not started but has recommendations")
)

type Phase string

const (
	PhaseIdle          Phase = "IDLE"
	PhaseAwaitingStart Phase = "AWAITING_START"
	PhaseInSession     Phase = "IN_SESSION"
	PhaseExhausted     Phase = "EXHAUSTED"
)

// SessionState is the participant-local record of the room session. The zero
// value is the Idle record.
type SessionState struct {
	RoomId          string   `json:"room_id"`
	IsOwner         bool     `json:"is_owner"`
	Recommendations []string `json:"recommendations"`
	Cursor          int      `json:"cursor"`
	SessionActive   bool     `json:"session_active"`
}

func NewRoomState(roomId string, isOwner bool) SessionState {
	return SessionState{RoomId: roomId, IsOwner: isOwner}
}

func (s SessionState) InRoom() bool {
	return s.RoomId != ""
}

func (s SessionState) Phase() Phase {
	switch {
	case s.RoomId == "":
		return PhaseIdle
	case !s.SessionActive:
		return PhaseAwaitingStart
	case s.Cursor >= len(s.Recommendations):
		return PhaseExhausted
	default:
		return PhaseInSession
	}
}

// Current returns the media id under the cursor.
func (s SessionState) Current() (string, bool) {
	if s.Phase() != PhaseInSession {
		return "", false
	}

	return s.Recommendations[s.Cursor], true
}

func (s SessionState) Remaining() int {
	return max(len(s.Recommendations)-s.Cursor, 0)
}

func (s SessionState) Validate() error {
	if s.RoomId == "" {
		if s.IsOwner || s.SessionActive || s.Cursor != 0 || len(s.Recommendations) != 0 {
			return ErrIdleNotEmpty
		}
		return nil
	}

	if s.Cursor < 0 || s.Cursor > len(s.Recommendations) {
		return fmt.Errorf("%w: %d of %d", ErrCursorOutOfRange, s.Cursor, len(s.Recommendations))
	}

	if !s.SessionActive && (s.Cursor != 0 || len(s.Recommendations) != 0) {
		return ErrNotStarted
	}

	return nil
}

// WithRecommendations starts the session over the given batch.
func (s SessionState) WithRecommendations(ids []string) SessionState {
	next := s.Clone()
	next.Recommendations = slices.Clone(ids)
	if next.Recommendations == nil {
		next.Recommendations = []string{}
	}
	next.Cursor = 0
	next.SessionActive = true
	return next
}

// Advanced moves the cursor one item forward, never past the end.
func (s SessionState) Advanced() SessionState {
	next := s.Clone()
	if next.Cursor < len(next.Recommendations) {
		next.Cursor++
	}
	return next
}

func (s SessionState) Clone() SessionState {
	next := s
	if s.Recommendations != nil {
		next.Recommendations = slices.Clone(s.Recommendations)
	}
	return next
}

func (s SessionState) Equal(other SessionState) bool {
	return s.RoomId == other.RoomId &&
		s.IsOwner == other.IsOwner &&
		s.Cursor == other.Cursor &&
		s.SessionActive == other.SessionActive &&
		slices.Equal(s.Recommendations, other.Recommendations)
}
