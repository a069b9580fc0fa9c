package room

import (
	"context"
	"log/slog"

	"github.com/flickroom/client/internal/domain"
	"github.com/flickroom/client/internal/repository/channel"
	"github.com/flickroom/client/pkg/ctxlogger"
)

// handleStarted moves AwaitingStart into the session. Duplicates and events
// for other rooms are ignored. The batch is fetched with mu released and is
// dropped if the room was left meanwhile.
func (s *service) handleStarted(ctx context.Context, event channel.StartedEvent) {
	s.mu.Lock()

	st := s.store.Read()
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", st.RoomId))

	if st.Phase() != domain.PhaseAwaitingStart {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "ignoring started event", "phase", st.Phase())
		return
	}
	if event.RoomId != "" && event.RoomId != st.RoomId {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "ignoring started event for other room", "event_room_id", event.RoomId)
		return
	}
	if s.starting {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "ignoring started event, recommendations already requested")
		return
	}

	token, err := s.token(ctx)
	if err != nil {
		s.mu.Unlock()
		s.surface(ctx, err)
		return
	}

	s.starting = true
	epoch := s.epoch
	s.mu.Unlock()

	ids, err := s.client.FetchRecommendations(ctx, token, st.RoomId)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		s.logger.InfoContext(ctx, "discarding recommendations for abandoned room", "error", err)
		return
	}
	s.starting = false

	if err != nil {
		s.surface(ctx, err)
		return
	}

	cur := s.store.Read()
	if cur.RoomId != st.RoomId || cur.Phase() != domain.PhaseAwaitingStart {
		s.logger.InfoContext(ctx, "discarding recommendations", "phase", cur.Phase())
		return
	}

	next := cur.WithRecommendations(ids)
	if err := s.store.Replace(ctx, next); err != nil {
		s.surface(ctx, err)
		return
	}

	s.resetMedia()
	s.logger.InfoContext(ctx, "session started", "recommendations", len(ids))
}

func (s *service) handleError(ctx context.Context, err error) {
	s.surface(ctx, err)
}

func (s *service) handleAllLiked(ctx context.Context, event channel.AllLikedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.Read()
	if !st.InRoom() || (event.RoomId != "" && event.RoomId != st.RoomId) {
		return
	}

	s.setLastAllLiked(event.MediaId)
	s.logger.InfoContext(ctx, "everyone liked", "room_id", st.RoomId, "media_id", event.MediaId)
}

// handleReconnect rejoins the held room after the transport came back.
func (s *service) handleReconnect(ctx context.Context, conn *channel.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn = conn
	if st := s.store.Read(); st.InRoom() {
		s.channel.JoinRoom(ctx, st.RoomId)
	}
}
