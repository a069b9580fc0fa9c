package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/flickroom/client/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	streamBufferSize = 16
	streamWriteWait  = 5 * time.Second
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (c *controller) addStream() chan Output {
	out := make(chan Output, streamBufferSize)

	c.streamsMu.Lock()
	c.streams[out] = struct{}{}
	c.streamsMu.Unlock()

	return out
}

func (c *controller) removeStream(out chan Output) {
	c.streamsMu.Lock()
	delete(c.streams, out)
	c.streamsMu.Unlock()
}

func (c *controller) broadcast(ctx context.Context, output Output) {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()

	for out := range c.streams {
		select {
		case out <- output:
		default:
			c.logger.WarnContext(ctx, "session stream is slow, dropping output", "type", output.Type)
		}
	}
}

// sessionStream pushes SESSION_UPDATED on every session change and ERROR for
// surfaced errors. The current session is sent right after the upgrade.
func (c *controller) sessionStream(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := c.addStream()
	defer c.removeStream(out)

	unwatch := c.sessions.Watch(func(st domain.SessionState) {
		select {
		case out <- Output{Type: "SESSION_UPDATED", Payload: c.view(st)}:
		default:
			c.logger.WarnContext(ctx, "session stream is slow, dropping update")
		}
	})
	defer unwatch()

	// The UI only listens; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := c.write(conn, Output{Type: "SESSION_UPDATED", Payload: c.view(c.roomService.State())}); err != nil {
		c.logger.InfoContext(ctx, "failed to write session", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case output := <-out:
			if err := c.write(conn, output); err != nil {
				c.logger.InfoContext(ctx, "failed to write output", "error", err)
				return
			}
		}
	}
}

func (c *controller) write(conn *websocket.Conn, output Output) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}

	return conn.WriteJSON(&output)
}
