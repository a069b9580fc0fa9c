package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flickroom/client/internal/credential"
	"github.com/flickroom/client/internal/domain"
	"github.com/flickroom/client/internal/repository/backend"
)

type iAccountClient interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password string) (string, error)
	ChangePassword(ctx context.Context, token, newPassword string) error
	UserDetails(ctx context.Context, token string) (domain.User, error)
	AddPreference(ctx context.Context, token, tconst string, rating float64) error
	RemovePreference(ctx context.Context, token, tconst string) error
	Preferences(ctx context.Context, token string) ([]domain.Preference, error)
}

type iCredentialStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type iRoomService interface {
	Resume(ctx context.Context) (domain.SessionState, error)
	Logout(ctx context.Context) error
}

type service struct {
	client      iAccountClient
	credentials iCredentialStore
	room        iRoomService
	logger      *slog.Logger
}

func NewService(client iAccountClient, credentials iCredentialStore, room iRoomService, logger *slog.Logger) *service {
	return &service{
		client:      client,
		credentials: credentials,
		room:        room,
		logger:      logger,
	}
}

type CredentialsParams struct {
	Email    string
	Password string
}

func (s service) Login(ctx context.Context, params *CredentialsParams) error {
	token, err := s.client.Login(ctx, params.Email, params.Password)
	if err != nil {
		return err
	}

	if err := s.credentials.Set(ctx, token); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	s.logger.InfoContext(ctx, "logged in")
	s.resumeRoom(ctx)
	return nil
}

func (s service) Register(ctx context.Context, params *CredentialsParams) error {
	token, err := s.client.Register(ctx, params.Email, params.Password)
	if err != nil {
		return err
	}

	if err := s.credentials.Set(ctx, token); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	s.logger.InfoContext(ctx, "registered")
	s.resumeRoom(ctx)
	return nil
}

// resumeRoom reattaches a held room under the new credential. Failures do not
// undo the login; the room can be resumed again later.
func (s service) resumeRoom(ctx context.Context) {
	if _, err := s.room.Resume(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to resume room session", "error", err)
	}
}

// Logout tears down the room session and always clears the credential.
func (s service) Logout(ctx context.Context) error {
	roomErr := s.room.Logout(ctx)
	if roomErr != nil {
		s.logger.WarnContext(ctx, "failed to clear room session on logout", "error", roomErr)
	}

	if err := s.credentials.Clear(ctx); err != nil {
		return errors.Join(roomErr, fmt.Errorf("failed to clear credential: %w", err))
	}

	s.logger.InfoContext(ctx, "logged out")
	return roomErr
}

func (s service) token(ctx context.Context) (string, error) {
	token, err := s.credentials.Get(ctx)
	if err != nil {
		if errors.Is(err, credential.ErrNoCredential) || errors.Is(err, credential.ErrExpired) {
			return "", fmt.Errorf("%w: %w", backend.ErrUnauthenticated, err)
		}
		return "", err
	}

	return token, nil
}

func (s service) ChangePassword(ctx context.Context, newPassword string) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}

	return s.client.ChangePassword(ctx, token, newPassword)
}

func (s service) UserDetails(ctx context.Context) (domain.User, error) {
	token, err := s.token(ctx)
	if err != nil {
		return domain.User{}, err
	}

	return s.client.UserDetails(ctx, token)
}
