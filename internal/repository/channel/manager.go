package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/flickroom/client/pkg/ctxlogger"
	"github.com/flickroom/client/pkg/wsrouter"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Config struct {
	URL               string
	ReconnectInterval time.Duration
	ReconnectAttempts int
	// PingInterval of zero disables keepalive pings and read deadlines.
	PingInterval time.Duration
}

// Manager owns the process's realtime connection. It is created once by the
// composition root and shared by everything that emits or listens.
type Manager struct {
	cfg    Config
	dialer *websocket.Dialer
	router *wsrouter.WSRouter
	logger *slog.Logger

	// connectMu serializes dials so at most one is in flight.
	connectMu sync.Mutex

	mu     sync.Mutex
	conn   *Connection
	token  string
	sub    *Subscription
	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(cfg Config, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		router: wsrouter.New(),
		logger: logger,
	}

	m.router.Handle(startedType, m.handleStarted)
	m.router.Handle(errorType, m.handleError)
	m.router.Handle(allLikedType, m.handleAllLiked)

	return m
}

// Connect establishes the connection if there is none and returns the
// current one otherwise.
func (m *Manager) Connect(ctx context.Context, token string) (*Connection, error) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	m.mu.Lock()
	if m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	if token == "" {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to connect: %w", ErrUnauthenticated)
	}
	if m.cancel == nil {
		m.ctx, m.cancel = context.WithCancel(context.Background())
	}
	lifeCtx := m.ctx
	m.mu.Unlock()

	conn, err := m.dial(ctx, token)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if lifeCtx.Err() != nil {
		m.mu.Unlock()
		conn.close()
		return nil, fmt.Errorf("%w: disconnected while connecting", ErrChannel)
	}
	m.conn = conn
	m.token = token
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "realtime channel connected", "connection_id", conn.Id())
	go m.run(lifeCtx, conn)

	return conn, nil
}

func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.conn != nil
}

func (m *Manager) dial(ctx context.Context, token string) (*Connection, error) {
	u, err := url.Parse(m.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url: %w", ErrChannel, err)
	}
	q := u.Query()
	q.Set("jwt", token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	wsConn, resp, err := m.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("failed to connect: %w", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: failed to dial: %w", ErrChannel, err)
	}

	return newConnection(uuid.NewString(), wsConn), nil
}

func (m *Manager) run(ctx context.Context, conn *Connection) {
	ctx = ctxlogger.AppendCtx(ctx, slog.String("connection_id", conn.Id()))

	if m.cfg.PingInterval > 0 {
		pongWait := m.cfg.PingInterval * 2
		_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.conn.SetPongHandler(func(string) error {
			return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go m.keepalive(ctx, conn)
	}

	err := m.router.ServeConn(ctx, conn.conn, func(err error) {
		m.logger.InfoContext(ctx, "ignoring inbound frame", "error", err)
	})
	conn.close()

	m.mu.Lock()
	if m.conn != conn {
		// Replaced or disconnected on purpose.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	token := m.token
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "realtime channel lost", "error", err)
	m.reconnect(ctx, token)
}

func (m *Manager) keepalive(ctx context.Context, conn *Connection) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-conn.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				m.logger.DebugContext(ctx, "ping failed", "error", err)
				conn.close()
				return
			}
		}
	}
}

func (m *Manager) reconnect(ctx context.Context, token string) {
	for attempt := 1; attempt <= m.cfg.ReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.cfg.ReconnectInterval):
		}

		conn, done := m.redial(ctx, token)
		if done {
			if conn != nil {
				m.logger.InfoContext(ctx, "realtime channel reconnected", "attempt", attempt, "new_connection_id", conn.Id())
				if sub := m.current(); sub != nil && sub.listeners.OnReconnect != nil {
					sub.listeners.OnReconnect(ctx, conn)
				}
			}
			return
		}

		m.logger.InfoContext(ctx, "reconnect attempt failed", "attempt", attempt)
	}

	if ctx.Err() != nil {
		return
	}

	m.logger.WarnContext(ctx, "giving up on realtime channel", "attempts", m.cfg.ReconnectAttempts)
	m.notifyError(ctx, &ChannelError{Message: "connection lost"})
}

// redial reports done when no further attempts are needed: either it
// connected or someone else already did.
func (m *Manager) redial(ctx context.Context, token string) (*Connection, bool) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	m.mu.Lock()
	if ctx.Err() != nil || m.conn != nil {
		m.mu.Unlock()
		return nil, true
	}
	m.mu.Unlock()

	conn, err := m.dial(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			m.notifyError(ctx, err)
			return nil, true
		}
		m.logger.DebugContext(ctx, "redial failed", "error", err)
		return nil, false
	}

	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		conn.close()
		return nil, true
	}
	m.conn = conn
	m.mu.Unlock()

	go m.run(ctx, conn)
	return conn, true
}

// Disconnect stops reconnection, clears listeners and closes the socket. It
// does not wait for the read goroutine.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
		m.ctx = nil
	}
	conn := m.conn
	m.conn = nil
	m.token = ""
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()

	if sub != nil {
		sub.revoked.Store(true)
	}

	if conn != nil {
		m.logger.Info("realtime channel disconnected", "connection_id", conn.Id())
		conn.close()
	}
}

// Subscribe revokes the active listener set and installs a new one.
func (m *Manager) Subscribe(listeners Listeners) *Subscription {
	sub := &Subscription{listeners: listeners, manager: m}

	m.mu.Lock()
	if m.sub != nil {
		m.sub.revoked.Store(true)
	}
	m.sub = sub
	m.mu.Unlock()

	return sub
}

func (m *Manager) current() *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sub == nil || m.sub.revoked.Load() {
		return nil
	}

	return m.sub
}

func (m *Manager) JoinRoom(ctx context.Context, roomId string) {
	m.emitRoom(ctx, joinType, roomId)
}

func (m *Manager) LeaveRoom(ctx context.Context, roomId string) {
	m.emitRoom(ctx, leaveType, roomId)
}

func (m *Manager) StartRoom(ctx context.Context, roomId string) {
	m.emitRoom(ctx, startType, roomId)
}

func (m *Manager) LikeMedia(ctx context.Context, roomId, mediaId string) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	m.emit(ctx, likeType, likePayload{RoomId: roomId, Jwt: token, MediaId: mediaId})
}

func (m *Manager) emitRoom(ctx context.Context, messageType, roomId string) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	m.emit(ctx, messageType, roomPayload{RoomId: roomId, Jwt: token})
}

// emit never fails the caller: signals sent while disconnected are dropped.
func (m *Manager) emit(ctx context.Context, messageType string, payload any) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		m.logger.InfoContext(ctx, "dropping signal, realtime channel not connected", "type", messageType)
		return
	}

	msg, err := wsrouter.NewMessage(messageType, payload)
	if err != nil {
		m.logger.WarnContext(ctx, "dropping signal", "type", messageType, "error", err)
		return
	}

	if err := conn.writeJSON(msg); err != nil {
		m.logger.InfoContext(ctx, "dropping signal, write failed", "type", messageType, "error", err)
		conn.close()
		return
	}

	m.logger.DebugContext(ctx, "signal sent", "type", messageType, "connection_id", conn.Id())
}

func (m *Manager) handleStarted(ctx context.Context, payload json.RawMessage) {
	var event StartedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		m.logger.InfoContext(ctx, "malformed event", "type", wsrouter.GetMessageTypeFromCtx(ctx), "error", err)
		return
	}

	if sub := m.current(); sub != nil && sub.listeners.OnStarted != nil {
		sub.listeners.OnStarted(ctx, event)
	}
}

func (m *Manager) handleError(ctx context.Context, payload json.RawMessage) {
	var event ErrorEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		event.Message = string(payload)
	}

	m.notifyError(ctx, &ChannelError{RoomId: event.RoomId, Message: event.Message})
}

func (m *Manager) handleAllLiked(ctx context.Context, payload json.RawMessage) {
	var event AllLikedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		m.logger.InfoContext(ctx, "malformed event", "type", wsrouter.GetMessageTypeFromCtx(ctx), "error", err)
		return
	}

	if sub := m.current(); sub != nil && sub.listeners.OnAllLiked != nil {
		sub.listeners.OnAllLiked(ctx, event)
	}
}

func (m *Manager) notifyError(ctx context.Context, err error) {
	if sub := m.current(); sub != nil && sub.listeners.OnError != nil {
		sub.listeners.OnError(ctx, err)
		return
	}

	m.logger.InfoContext(ctx, "realtime error without listener", "error", err)
}
