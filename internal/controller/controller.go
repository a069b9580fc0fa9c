package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/flickroom/client/internal/domain"
	"github.com/flickroom/client/internal/service/account"
	"github.com/flickroom/client/pkg/validator"
	"github.com/gorilla/websocket"
)

type iRoomService interface {
	CreateRoom(ctx context.Context) (domain.SessionState, error)
	JoinRoom(ctx context.Context, roomCode string) (domain.SessionState, error)
	StartSession(ctx context.Context) error
	Like(ctx context.Context) (domain.SessionState, error)
	Dislike(ctx context.Context) (domain.SessionState, error)
	LeaveRoom(ctx context.Context) error
	Resume(ctx context.Context) (domain.SessionState, error)
	CurrentMedia(ctx context.Context) (*domain.MediaDetail, error)
	State() domain.SessionState
	LastAllLiked() string
	Errors() <-chan error
}

type iAccountService interface {
	Login(ctx context.Context, params *account.CredentialsParams) error
	Register(ctx context.Context, params *account.CredentialsParams) error
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, newPassword string) error
	UserDetails(ctx context.Context) (domain.User, error)
	AddPreference(ctx context.Context, params *account.AddPreferenceParams) error
	RemovePreference(ctx context.Context, tconst string) error
	Preferences(ctx context.Context) ([]domain.Preference, error)
}

type iSessionWatcher interface {
	Watch(fn func(domain.SessionState)) func()
}

type controller struct {
	roomService    iRoomService
	accountService iAccountService
	sessions       iSessionWatcher
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	logger         *slog.Logger

	streamsMu sync.Mutex
	streams   map[chan Output]struct{}
}

func NewController(roomService iRoomService, accountService iAccountService, sessions iSessionWatcher, logger *slog.Logger) *controller {
	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService:    roomService,
		accountService: accountService,
		sessions:       sessions,
		validate:       validator.NewValidator(),
		logger:         logger,
		streams:        make(map[chan Output]struct{}),
	}
}

// Run forwards surfaced session errors to every open session stream until
// ctx is done.
func (c *controller) Run(ctx context.Context) error {
	errs := c.roomService.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			c.broadcast(ctx, Output{
				Type:    "ERROR",
				Payload: errorPayload{Status: errorStatus(err), Error: err.Error()},
			})
		}
	}
}
