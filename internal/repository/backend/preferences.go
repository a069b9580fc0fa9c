package backend

import (
	"context"
	"fmt"

	"github.com/flickroom/client/internal/domain"
)

type addPreferenceRequest struct {
	Jwt    string  `json:"jwt"`
	Tconst string  `json:"tconst" validate:"required,alphanum,max=32"`
	Rating float64 `json:"rating" validate:"gte=0,lte=10"`
}

func (c *Client) AddPreference(ctx context.Context, token, tconst string, rating float64) error {
	if err := requireToken(token); err != nil {
		return err
	}

	req := addPreferenceRequest{Jwt: token, Tconst: tconst, Rating: rating}
	if err := c.check(req); err != nil {
		return err
	}

	if err := c.post(ctx, "preferences/add", token, req, nil); err != nil {
		return fmt.Errorf("failed to add preference: %w", err)
	}

	return nil
}

type removePreferenceRequest struct {
	Jwt    string `json:"jwt"`
	Tconst string `json:"tconst" validate:"required,alphanum,max=32"`
}

func (c *Client) RemovePreference(ctx context.Context, token, tconst string) error {
	if err := requireToken(token); err != nil {
		return err
	}

	req := removePreferenceRequest{Jwt: token, Tconst: tconst}
	if err := c.check(req); err != nil {
		return err
	}

	if err := c.post(ctx, "preferences/delete", token, req, nil); err != nil {
		return fmt.Errorf("failed to remove preference: %w", err)
	}

	return nil
}

type preferencesResponse struct {
	Preferences []domain.Preference `json:"preferences"`
}

func (c *Client) Preferences(ctx context.Context, token string) ([]domain.Preference, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}

	var resp preferencesResponse
	if err := c.post(ctx, "preferences/get_all", token, tokenRequest{Jwt: token}, &resp); err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	if resp.Preferences == nil {
		return []domain.Preference{}, nil
	}

	return resp.Preferences, nil
}
