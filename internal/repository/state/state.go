package state

import "errors"

// Durable keys. Each is readable and writable on its own; the session keys
// are always cleared together.
const (
	RoomIdKey          = "room_id"
	IsOwnerKey         = "is_owner"
	RecommendationsKey = "recommendations"
	CursorKey          = "cursor"
	SessionActiveKey   = "session_active"
	CredentialKey      = "jwt"
)

var SessionKeys = []string{
	RoomIdKey,
	IsOwnerKey,
	RecommendationsKey,
	CursorKey,
	SessionActiveKey,
}

var ErrEmptyKeys = errors.New("no keys provided")
