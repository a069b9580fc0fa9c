package channel

import (
	"errors"

	"github.com/flickroom/client/internal/repository/backend"
)

var (
	ErrChannel         = errors.New("realtime channel error")
	ErrUnauthenticated = backend.ErrUnauthenticated
)

// ChannelError is delivered to OnError for server error events and for
// transport failures the manager could not recover from.
type ChannelError struct {
	RoomId  string
	Message string
}

func (e *ChannelError) Error() string {
	if e.RoomId != "" {
		return "realtime channel: room " + e.RoomId + ": " + e.Message
	}

	return "realtime channel: " + e.Message
}

func (e *ChannelError) Is(target error) bool {
	return target == ErrChannel
}
