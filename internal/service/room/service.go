package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flickroom/client/internal/credential"
	"github.com/flickroom/client/internal/domain"
	"github.com/flickroom/client/internal/repository/backend"
	"github.com/flickroom/client/internal/repository/channel"
)

var (
	ErrAlreadyInRoom   = errors.New("already in a room")
	ErrNotInRoom       = errors.New("not in a room")
	ErrNotOwner        = errors.New("only the room owner can start the session")
	ErrInvalidState    = errors.New("operation not allowed in current phase")
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrSessionChanged  = errors.New("room session changed while the request was in flight")
)

const errorsBufferSize = 16

type iRoomClient interface {
	CreateRoom(ctx context.Context, token string) (string, error)
	JoinRoom(ctx context.Context, token, roomCode string) error
	FetchRecommendations(ctx context.Context, token, roomId string) ([]string, error)
	FetchMediaDetail(ctx context.Context, token, tconst string) (domain.MediaDetail, error)
}

type iChannel interface {
	Connect(ctx context.Context, token string) (*channel.Connection, error)
	JoinRoom(ctx context.Context, roomId string)
	LeaveRoom(ctx context.Context, roomId string)
	StartRoom(ctx context.Context, roomId string)
	LikeMedia(ctx context.Context, roomId, mediaId string)
	Subscribe(listeners channel.Listeners) *channel.Subscription
	Disconnect()
}

type iSessionStore interface {
	Read() domain.SessionState
	Replace(ctx context.Context, next domain.SessionState) error
	Restore(ctx context.Context) (domain.SessionState, error)
	Clear(ctx context.Context) error
}

type iCredentialStore interface {
	Get(ctx context.Context) (string, error)
}

// service is the room session state machine. Every transition, including the
// ones triggered by realtime events, runs under mu. REST calls run with mu
// released; their results are applied only if epoch did not move meanwhile.
type service struct {
	client      iRoomClient
	channel     iChannel
	store       iSessionStore
	credentials iCredentialStore
	logger      *slog.Logger

	mu  sync.Mutex
	sub *channel.Subscription
	// conn is the connection the held room was last announced on, connToken
	// the credential it was opened with.
	conn      *channel.Connection
	connToken string
	// epoch moves on every leave, logout and shutdown.
	epoch    uint64
	entering bool
	starting bool

	// hintMu guards lastAllLiked so it can be read from store watchers.
	hintMu       sync.Mutex
	lastAllLiked string

	mediaMu sync.Mutex
	media   map[string]domain.MediaDetail

	errs chan error
}

func NewService(client iRoomClient, ch iChannel, store iSessionStore, credentials iCredentialStore, logger *slog.Logger) *service {
	return &service{
		client:      client,
		channel:     ch,
		store:       store,
		credentials: credentials,
		logger:      logger,
		media:       make(map[string]domain.MediaDetail),
		errs:        make(chan error, errorsBufferSize),
	}
}

func (s *service) State() domain.SessionState {
	return s.store.Read()
}

func (s *service) Phase() domain.Phase {
	return s.store.Read().Phase()
}

// LastAllLiked is the most recent media every participant liked. It is only a
// hint; cursors advance independently.
func (s *service) LastAllLiked() string {
	s.hintMu.Lock()
	defer s.hintMu.Unlock()

	return s.lastAllLiked
}

func (s *service) setLastAllLiked(mediaId string) {
	s.hintMu.Lock()
	s.lastAllLiked = mediaId
	s.hintMu.Unlock()
}

// Errors delivers failures that have no caller to return to: realtime errors
// and failed reactions to realtime events.
func (s *service) Errors() <-chan error {
	return s.errs
}

func (s *service) surface(ctx context.Context, err error) {
	s.logger.InfoContext(ctx, "session error", "error", err)

	select {
	case s.errs <- err:
	default:
		s.logger.WarnContext(ctx, "error sink full, dropping error", "error", err)
	}
}

func (s *service) token(ctx context.Context) (string, error) {
	token, err := s.credentials.Get(ctx)
	if err != nil {
		if errors.Is(err, credential.ErrNoCredential) || errors.Is(err, credential.ErrExpired) {
			return "", fmt.Errorf("%w: %w", backend.ErrUnauthenticated, err)
		}
		return "", err
	}

	return token, nil
}

// ensureChannel connects and installs this controller's listeners unless
// they are already active. A connection the held room was never announced on
// gets a join first. Must be called with mu held.
func (s *service) ensureChannel(ctx context.Context, token string) error {
	conn, err := s.channel.Connect(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to connect realtime channel: %w", err)
	}

	if s.sub == nil || s.sub.Revoked() {
		s.sub = s.channel.Subscribe(channel.Listeners{
			OnStarted:   s.handleStarted,
			OnError:     s.handleError,
			OnAllLiked:  s.handleAllLiked,
			OnReconnect: s.handleReconnect,
		})
	}

	if conn == s.conn {
		return nil
	}
	s.conn = conn
	s.connToken = token

	if st := s.store.Read(); st.InRoom() {
		s.channel.JoinRoom(ctx, st.RoomId)
		s.logger.InfoContext(ctx, "announced room on new connection", "room_id", st.RoomId)
	}

	return nil
}

// dropChannel disconnects and forgets the connection and listeners. Must be
// called with mu held.
func (s *service) dropChannel() {
	s.channel.Disconnect()
	s.sub = nil
	s.conn = nil
	s.connToken = ""
}

// invalidate abandons every in-flight request. Must be called with mu held.
func (s *service) invalidate() {
	s.epoch++
	s.entering = false
	s.starting = false
}

func (s *service) resetMedia() {
	s.mediaMu.Lock()
	clear(s.media)
	s.mediaMu.Unlock()
}
