package backend

import (
	"context"
	"fmt"
)

type tokenRequest struct {
	Jwt string `json:"jwt"`
}

type createRoomResponse struct {
	RoomId string `json:"room_id"`
}

func (c *Client) CreateRoom(ctx context.Context, token string) (string, error) {
	if err := requireToken(token); err != nil {
		return "", err
	}

	var resp createRoomResponse
	if err := c.post(ctx, "rooms/create", token, tokenRequest{Jwt: token}, &resp); err != nil {
		return "", fmt.Errorf("failed to create room: %w", err)
	}

	if resp.RoomId == "" {
		return "", fmt.Errorf("failed to create room: %w: empty room id", ErrServer)
	}

	return resp.RoomId, nil
}

type roomRequest struct {
	Jwt    string `json:"jwt"`
	RoomId string `json:"room_id" validate:"required,max=64"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (c *Client) JoinRoom(ctx context.Context, token, roomCode string) error {
	if err := requireToken(token); err != nil {
		return err
	}

	req := roomRequest{Jwt: token, RoomId: roomCode}
	if err := c.check(req); err != nil {
		return err
	}

	var resp messageResponse
	if err := c.post(ctx, "rooms/join", token, req, &resp); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	c.logger.DebugContext(ctx, "joined room", "room_id", roomCode, "message", resp.Message)
	return nil
}

type recommendationsResponse struct {
	RecommendedMedia []string `json:"recommended_media"`
}

// FetchRecommendations returns the room's ordered batch. The server only
// serves it after the session was started.
func (c *Client) FetchRecommendations(ctx context.Context, token, roomId string) ([]string, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}

	req := roomRequest{Jwt: token, RoomId: roomId}
	if err := c.check(req); err != nil {
		return nil, err
	}

	var resp recommendationsResponse
	if err := c.post(ctx, "rooms/recommendations", token, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch recommendations: %w", err)
	}

	if resp.RecommendedMedia == nil {
		return []string{}, nil
	}

	return resp.RecommendedMedia, nil
}
