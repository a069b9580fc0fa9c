package channel

import "context"

const (
	joinType     = "join"
	leaveType    = "leave"
	startType    = "message-start"
	likeType     = "message-like"
	startedType  = "message-started"
	errorType    = "error"
	allLikedType = "all-liked"
)

type roomPayload struct {
	RoomId string `json:"room_id"`
	Jwt    string `json:"jwt"`
}

type likePayload struct {
	RoomId  string `json:"room_id"`
	Jwt     string `json:"jwt"`
	MediaId string `json:"media_id"`
}

type StartedEvent struct {
	RoomId string `json:"room_id"`
}

type ErrorEvent struct {
	RoomId  string `json:"room_id,omitempty"`
	Message string `json:"message"`
}

type AllLikedEvent struct {
	RoomId  string `json:"room_id"`
	MediaId string `json:"media_id"`
}

// Listeners is the set of callbacks installed by Subscribe. Nil callbacks are
// skipped. Callbacks run on the connection's read goroutine. OnReconnect
// receives the connection that replaced the lost one.
type Listeners struct {
	OnStarted   func(ctx context.Context, event StartedEvent)
	OnError     func(ctx context.Context, err error)
	OnAllLiked  func(ctx context.Context, event AllLikedEvent)
	OnReconnect func(ctx context.Context, conn *Connection)
}
