package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown message type")

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func NewMessage(messageType string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", messageType, err)
	}

	return Message{Type: messageType, Payload: raw}, nil
}

type HandlerFunc func(ctx context.Context, payload json.RawMessage)

type Reader interface {
	ReadMessage() (messageType int, p []byte, err error)
}

type WSRouter struct {
	routes map[string]HandlerFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// Dispatch decodes a single frame and routes it by its type.
func (r *WSRouter) Dispatch(ctx context.Context, data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	handler, exists := r.routes[msg.Type]
	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}

	handler(context.WithValue(ctx, messageTypeKey, msg.Type), msg.Payload)
	return nil
}

// ServeConn reads frames until the reader fails. Frames that cannot be routed
// are passed to onDispatchErr and do not stop the loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn Reader, onDispatchErr func(error)) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if err := r.Dispatch(ctx, data); err != nil && onDispatchErr != nil {
			onDispatchErr(err)
		}
	}
}
