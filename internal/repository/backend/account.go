package backend

import (
	"context"
	"fmt"

	"github.com/flickroom/client/internal/domain"
)

type authRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Jwt string `json:"jwt"`
}

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	return c.auth(ctx, "auth/login", email, password)
}

func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	return c.auth(ctx, "auth/register", email, password)
}

func (c *Client) auth(ctx context.Context, path, email, password string) (string, error) {
	req := authRequest{Email: email, Password: password}
	if err := c.check(req); err != nil {
		return "", err
	}

	var resp authResponse
	if err := c.post(ctx, path, "", req, &resp); err != nil {
		return "", fmt.Errorf("failed to authenticate: %w", err)
	}

	if resp.Jwt == "" {
		return "", fmt.Errorf("failed to authenticate: %w: empty token", ErrServer)
	}

	return resp.Jwt, nil
}

type changePasswordRequest struct {
	Jwt         string `json:"jwt"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func (c *Client) ChangePassword(ctx context.Context, token, newPassword string) error {
	if err := requireToken(token); err != nil {
		return err
	}

	req := changePasswordRequest{Jwt: token, NewPassword: newPassword}
	if err := c.check(req); err != nil {
		return err
	}

	if err := c.post(ctx, "user/change_password", token, req, nil); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	return nil
}

func (c *Client) UserDetails(ctx context.Context, token string) (domain.User, error) {
	if err := requireToken(token); err != nil {
		return domain.User{}, err
	}

	var user domain.User
	if err := c.post(ctx, "user_data", token, tokenRequest{Jwt: token}, &user); err != nil {
		return domain.User{}, fmt.Errorf("failed to get user details: %w", err)
	}

	return user, nil
}
