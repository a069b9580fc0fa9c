package account

import (
	"context"

	"github.com/flickroom/client/internal/domain"
)

type AddPreferenceParams struct {
	Tconst string
	Rating float64
}

func (s service) AddPreference(ctx context.Context, params *AddPreferenceParams) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}

	return s.client.AddPreference(ctx, token, params.Tconst, params.Rating)
}

func (s service) RemovePreference(ctx context.Context, tconst string) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}

	return s.client.RemovePreference(ctx, token, tconst)
}

func (s service) Preferences(ctx context.Context) ([]domain.Preference, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	return s.client.Preferences(ctx, token)
}
