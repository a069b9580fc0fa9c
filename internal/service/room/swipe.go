package room

import (
	"context"

	"github.com/flickroom/client/internal/domain"
)

func (s *service) Like(ctx context.Context) (domain.SessionState, error) {
	return s.advance(ctx, true)
}

func (s *service) Dislike(ctx context.Context) (domain.SessionState, error) {
	return s.advance(ctx, false)
}

func (s *service) advance(ctx context.Context, liked bool) (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.Read()
	if !st.InRoom() {
		return domain.SessionState{}, ErrNotInRoom
	}

	mediaId, ok := st.Current()
	if !ok {
		return domain.SessionState{}, ErrInvalidState
	}

	if liked {
		s.channel.LikeMedia(ctx, st.RoomId, mediaId)
	}

	next := st.Advanced()
	if err := s.store.Replace(ctx, next); err != nil {
		return domain.SessionState{}, err
	}

	s.logger.DebugContext(ctx, "swiped", "room_id", st.RoomId, "media_id", mediaId, "liked", liked, "cursor", next.Cursor)
	return next, nil
}

// CurrentMedia returns the detail of the item under the cursor, or nil when
// there is none. Details are cached per id for the lifetime of the room.
func (s *service) CurrentMedia(ctx context.Context) (*domain.MediaDetail, error) {
	st := s.store.Read()
	mediaId, ok := st.Current()
	if !ok {
		return nil, nil
	}

	s.mediaMu.Lock()
	detail, cached := s.media[mediaId]
	s.mediaMu.Unlock()
	if cached {
		return &detail, nil
	}

	// Media details are public; a missing credential is not an error here.
	token, _ := s.credentials.Get(ctx)

	detail, err := s.client.FetchMediaDetail(ctx, token, mediaId)
	if err != nil {
		return nil, err
	}

	if s.store.Read().RoomId == st.RoomId {
		s.mediaMu.Lock()
		s.media[mediaId] = detail
		s.mediaMu.Unlock()
	}

	return &detail, nil
}
