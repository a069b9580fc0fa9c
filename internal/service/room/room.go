package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/flickroom/client/internal/domain"
	"github.com/flickroom/client/internal/repository/backend"
)

func (s *service) CreateRoom(ctx context.Context) (domain.SessionState, error) {
	token, epoch, err := s.beginEntry(ctx)
	if err != nil {
		return domain.SessionState{}, err
	}

	roomId, err := s.client.CreateRoom(ctx, token)

	return s.finishEntry(ctx, epoch, token, err, func() domain.SessionState {
		return domain.NewRoomState(roomId, true)
	})
}

func (s *service) JoinRoom(ctx context.Context, roomCode string) (domain.SessionState, error) {
	token, epoch, err := s.beginEntry(ctx)
	if err != nil {
		return domain.SessionState{}, err
	}

	err = s.client.JoinRoom(ctx, token, roomCode)
	if errors.Is(err, backend.ErrNotFound) || errors.Is(err, backend.ErrInvalidInput) {
		err = fmt.Errorf("%w: %w", ErrInvalidRoomCode, err)
	}

	return s.finishEntry(ctx, epoch, token, err, func() domain.SessionState {
		return domain.NewRoomState(roomCode, false)
	})
}

// beginEntry reserves the Idle session for one create or join and returns
// the credential and epoch for the REST call that follows.
func (s *service) beginEntry(ctx context.Context) (string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entering || s.store.Read().InRoom() {
		return "", 0, ErrAlreadyInRoom
	}

	token, err := s.token(ctx)
	if err != nil {
		return "", 0, err
	}

	s.entering = true
	return token, s.epoch, nil
}

// finishEntry applies the outcome of the REST call started by beginEntry. A
// result that arrives after a logout or shutdown is discarded.
func (s *service) finishEntry(ctx context.Context, epoch uint64, token string, callErr error, next func() domain.SessionState) (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		s.logger.InfoContext(ctx, "discarding room entry result", "error", callErr)
		if callErr != nil {
			return domain.SessionState{}, errors.Join(ErrSessionChanged, callErr)
		}
		return domain.SessionState{}, ErrSessionChanged
	}
	s.entering = false

	if callErr != nil {
		return domain.SessionState{}, callErr
	}

	return s.enterRoom(ctx, token, next())
}

// enterRoom announces the room over the realtime channel and persists it. A
// channel that cannot be reached is surfaced but does not undo the REST
// result. Must be called with mu held.
func (s *service) enterRoom(ctx context.Context, token string, next domain.SessionState) (domain.SessionState, error) {
	if err := s.ensureChannel(ctx, token); err != nil {
		s.surface(ctx, err)
	}
	s.channel.JoinRoom(ctx, next.RoomId)

	if err := s.store.Replace(ctx, next); err != nil {
		s.channel.LeaveRoom(ctx, next.RoomId)
		return domain.SessionState{}, err
	}

	s.resetMedia()
	s.setLastAllLiked("")

	s.logger.InfoContext(ctx, "entered room", "room_id", next.RoomId, "is_owner", next.IsOwner)
	return next, nil
}

// StartSession asks the server to start the room. The transition happens
// when the started event arrives.
func (s *service) StartSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.Read()
	if !st.InRoom() {
		return ErrNotInRoom
	}
	if !st.IsOwner {
		return ErrNotOwner
	}
	if st.Phase() != domain.PhaseAwaitingStart {
		return ErrInvalidState
	}

	token, err := s.token(ctx)
	if err != nil {
		return err
	}

	if err := s.ensureChannel(ctx, token); err != nil {
		return err
	}

	s.channel.StartRoom(ctx, st.RoomId)
	return nil
}

// LeaveRoom returns to Idle from any phase. The connection and listeners are
// kept for the next room.
func (s *service) LeaveRoom(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.Read()
	if !st.InRoom() {
		return ErrNotInRoom
	}

	s.invalidate()
	s.channel.LeaveRoom(ctx, st.RoomId)
	s.resetMedia()
	s.setLastAllLiked("")

	if err := s.store.Clear(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "left room", "room_id", st.RoomId)
	return nil
}

// Logout leaves the room if any, drops the realtime connection and clears
// the session record. The record is cleared even if the leave signal could
// not be sent.
func (s *service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.store.Read(); st.InRoom() {
		s.channel.LeaveRoom(ctx, st.RoomId)
	}

	s.invalidate()
	s.dropChannel()
	s.resetMedia()
	s.setLastAllLiked("")

	return s.store.Clear(ctx)
}

// Restore loads the durable record and rejoins its room. Without a credential
// the record is kept and ErrUnauthenticated is returned; Resume reattaches it
// later.
func (s *service) Restore(ctx context.Context) (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.Restore(ctx)
	if err != nil {
		return domain.SessionState{}, err
	}

	if !st.InRoom() {
		return st, nil
	}

	if err := s.attach(ctx); err != nil {
		return st, err
	}

	s.logger.InfoContext(ctx, "restored session", "room_id", st.RoomId, "phase", st.Phase())
	return st, nil
}

// Resume reattaches the held room to a realtime connection opened with the
// current credential. It is the recovery path after a login or after the
// channel could not be reached. Idle sessions are left untouched.
func (s *service) Resume(ctx context.Context) (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.Read()
	if !st.InRoom() {
		return st, nil
	}

	if err := s.attach(ctx); err != nil {
		return st, err
	}

	s.logger.InfoContext(ctx, "resumed session", "room_id", st.RoomId, "phase", st.Phase())
	return st, nil
}

// attach makes sure the held room is announced on a connection carrying the
// current credential. Must be called with mu held.
func (s *service) attach(ctx context.Context) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}

	if s.conn != nil && s.connToken != token {
		s.logger.InfoContext(ctx, "credential changed, reopening realtime channel")
		s.dropChannel()
	}

	return s.ensureChannel(ctx, token)
}

// Shutdown releases the realtime connection and keeps the durable record for
// the next Restore.
func (s *service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidate()
	s.dropChannel()
}
