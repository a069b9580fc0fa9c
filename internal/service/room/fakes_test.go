package room

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/flickroom/client/internal/credential"
	"github.com/flickroom/client/internal/domain"
	"github.com/flickroom/client/internal/repository/backend"
	"github.com/flickroom/client/internal/repository/channel"
	"github.com/flickroom/client/internal/repository/state/inmemory"
	"github.com/flickroom/client/internal/service/session"
)

type fakeBackend struct {
	// Gates hold the matching call until closed. The call is counted first.
	createGate chan struct{}
	fetchGate  chan struct{}

	mu          sync.Mutex
	rooms       map[string][]string
	nextRoom    int
	createErr   error
	createCalls int
	fetchErr    error
	fetchCalls  int
	media       map[string]domain.MediaDetail
	mediaCalls  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		rooms: make(map[string][]string),
		media: make(map[string]domain.MediaDetail),
	}
}

func (b *fakeBackend) CreateRoom(_ context.Context, token string) (string, error) {
	if b.createGate != nil {
		b.mu.Lock()
		b.createCalls++
		b.mu.Unlock()
		<-b.createGate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if token == "" {
		return "", backend.ErrUnauthenticated
	}
	if b.createErr != nil {
		return "", b.createErr
	}

	b.nextRoom++
	roomId := fmt.Sprintf("ROOM%d", b.nextRoom)
	b.rooms[roomId] = []string{"tt1", "tt2", "tt3"}
	return roomId, nil
}

func (b *fakeBackend) JoinRoom(_ context.Context, _ string, roomCode string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.rooms[roomCode]; !ok {
		return fmt.Errorf("failed to join room: %w", backend.ErrNotFound)
	}
	return nil
}

func (b *fakeBackend) FetchRecommendations(_ context.Context, _ string, roomId string) ([]string, error) {
	b.mu.Lock()
	b.fetchCalls++
	b.mu.Unlock()

	if b.fetchGate != nil {
		<-b.fetchGate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	ids, ok := b.rooms[roomId]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return append([]string(nil), ids...), nil
}

func (b *fakeBackend) calls() (create, fetch int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.createCalls, b.fetchCalls
}

func (b *fakeBackend) FetchMediaDetail(_ context.Context, _ string, tconst string) (domain.MediaDetail, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mediaCalls++
	detail, ok := b.media[tconst]
	if !ok {
		return domain.MediaDetail{}, backend.ErrNotFound
	}
	return detail, nil
}

type signal struct {
	Type    string
	RoomId  string
	MediaId string
}

// fakeHub stands in for the realtime server: start signals are broadcast as
// started events to every channel that joined the room.
type fakeHub struct {
	mu      sync.Mutex
	members map[string][]*fakeChannel
}

func newFakeHub() *fakeHub {
	return &fakeHub{members: make(map[string][]*fakeChannel)}
}

func (h *fakeHub) join(roomId string, c *fakeChannel) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.members[roomId] = append(h.members[roomId], c)
}

func (h *fakeHub) start(roomId string) {
	h.mu.Lock()
	members := append([]*fakeChannel(nil), h.members[roomId]...)
	h.mu.Unlock()

	for _, c := range members {
		go c.deliverStarted(roomId)
	}
}

type fakeChannel struct {
	hub *fakeHub

	mu          sync.Mutex
	connected   bool
	conn        *channel.Connection
	tokens      []string
	connects    int
	connectErr  error
	subscribes  int
	listeners   channel.Listeners
	signals     []signal
	disconnects int
}

func newFakeChannel(hub *fakeHub) *fakeChannel {
	return &fakeChannel{hub: hub}
}

func (c *fakeChannel) Connect(_ context.Context, token string) (*channel.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token == "" {
		return nil, channel.ErrUnauthenticated
	}
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	if !c.connected {
		c.connected = true
		c.connects++
		c.conn = &channel.Connection{}
		c.tokens = append(c.tokens, token)
	}
	return c.conn, nil
}

func (c *fakeChannel) record(s signal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return false
	}
	c.signals = append(c.signals, s)
	return true
}

func (c *fakeChannel) JoinRoom(_ context.Context, roomId string) {
	if c.record(signal{Type: "join", RoomId: roomId}) && c.hub != nil {
		c.hub.join(roomId, c)
	}
}

func (c *fakeChannel) LeaveRoom(_ context.Context, roomId string) {
	c.record(signal{Type: "leave", RoomId: roomId})
}

func (c *fakeChannel) StartRoom(_ context.Context, roomId string) {
	if c.record(signal{Type: "start", RoomId: roomId}) && c.hub != nil {
		c.hub.start(roomId)
	}
}

func (c *fakeChannel) LikeMedia(_ context.Context, roomId, mediaId string) {
	c.record(signal{Type: "like", RoomId: roomId, MediaId: mediaId})
}

func (c *fakeChannel) Subscribe(listeners channel.Listeners) *channel.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscribes++
	c.listeners = listeners
	return &channel.Subscription{}
}

func (c *fakeChannel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	c.conn = nil
	c.disconnects++
	c.listeners = channel.Listeners{}
}

func (c *fakeChannel) current() channel.Listeners {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.listeners
}

// drop simulates the transport going away without a disconnect call.
func (c *fakeChannel) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	c.conn = nil
}

// redial simulates the manager reconnecting on its own and firing the hook.
func (c *fakeChannel) redial() {
	c.mu.Lock()
	c.connected = true
	c.connects++
	c.conn = &channel.Connection{}
	conn := c.conn
	l := c.listeners
	c.mu.Unlock()

	if l.OnReconnect != nil {
		l.OnReconnect(context.Background(), conn)
	}
}

func (c *fakeChannel) deliverStarted(roomId string) {
	if l := c.current(); l.OnStarted != nil {
		l.OnStarted(context.Background(), channel.StartedEvent{RoomId: roomId})
	}
}

func (c *fakeChannel) sent() []signal {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]signal(nil), c.signals...)
}

func (c *fakeChannel) sentOfType(t string) []signal {
	var out []signal
	for _, s := range c.sent() {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

type fakeCredentials struct {
	mu    sync.Mutex
	token string
}

func (f *fakeCredentials) Get(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.token == "" {
		return "", credential.ErrNoCredential
	}
	return f.token, nil
}

func (f *fakeCredentials) set(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

type stateRepo interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// participant is one client process: its own channel, durable state and
// credential.
type participant struct {
	svc     *service
	channel *fakeChannel
	repo    stateRepo
	creds   *fakeCredentials
	backend *fakeBackend
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newParticipant(t *testing.T, b *fakeBackend, hub *fakeHub) *participant {
	t.Helper()

	p := &participant{
		channel: newFakeChannel(hub),
		repo:    inmemory.NewRepo(),
		creds:   &fakeCredentials{token: "token"},
		backend: b,
	}
	p.svc = NewService(b, p.channel, session.NewStore(p.repo, discardLogger()), p.creds, discardLogger())
	return p
}

// restart simulates a process restart over the same durable storage.
func (p *participant) restart(t *testing.T) *participant {
	t.Helper()

	next := &participant{
		channel: newFakeChannel(p.channel.hub),
		repo:    p.repo,
		creds:   p.creds,
		backend: p.backend,
	}
	next.svc = NewService(p.backend, next.channel, session.NewStore(next.repo, discardLogger()), next.creds, discardLogger())
	return next
}
