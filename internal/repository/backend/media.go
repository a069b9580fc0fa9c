package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/flickroom/client/internal/domain"
)

type mediaRequest struct {
	Jwt    string `json:"jwt,omitempty"`
	Tconst string `json:"-" validate:"required,alphanum,max=32"`
}

type mediaResponse struct {
	Media *domain.MediaDetail `json:"media"`
}

// FetchMediaDetail does not require a credential; the token is forwarded when
// present.
func (c *Client) FetchMediaDetail(ctx context.Context, token, tconst string) (domain.MediaDetail, error) {
	req := mediaRequest{Jwt: token, Tconst: tconst}
	if err := c.check(req); err != nil {
		return domain.MediaDetail{}, err
	}

	var resp mediaResponse
	if err := c.post(ctx, "media/"+url.PathEscape(tconst), token, req, &resp); err != nil {
		return domain.MediaDetail{}, fmt.Errorf("failed to fetch media %s: %w", tconst, err)
	}

	if resp.Media == nil {
		return domain.MediaDetail{}, fmt.Errorf("failed to fetch media %s: %w", tconst, ErrNotFound)
	}

	if resp.Media.Tconst == "" {
		resp.Media.Tconst = tconst
	}

	return *resp.Media, nil
}
