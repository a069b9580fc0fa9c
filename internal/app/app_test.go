package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *AppConfig {
	return &AppConfig{
		APIURL:            "http://localhost:8000",
		WSURL:             "ws://localhost:8000/ws",
		Host:              "127.0.0.1",
		Port:              7070,
		LogLevel:          "info",
		RequestTimeout:    10 * time.Second,
		ReconnectInterval: time.Second,
		ReconnectAttempts: 5,
		PingInterval:      30 * time.Second,
		StateBackend:      StateBackendMemory,
		StateNamespace:    "default",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *AppConfig)
		wantErr bool
	}{
		{"valid", func(*AppConfig) {}, false},
		{"missing api url", func(cfg *AppConfig) { cfg.APIURL = "" }, true},
		{"bad port", func(cfg *AppConfig) { cfg.Port = 0 }, true},
		{"unknown backend", func(cfg *AppConfig) { cfg.StateBackend = "postgres" }, true},
		{"sqlite without path", func(cfg *AppConfig) { cfg.StateBackend = StateBackendSQLite }, true},
		{"redis without host", func(cfg *AppConfig) {
			cfg.StateBackend = StateBackendRedis
			cfg.RedisPort = 6379
		}, true},
		{"bad log level", func(cfg *AppConfig) { cfg.LogLevel = "LOUD" }, true},
		{"zero timeout", func(cfg *AppConfig) { cfg.RequestTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// fakeBackend serves the REST API and the realtime endpoint of the server.
func fakeBackend(t *testing.T, joins chan string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	r := chi.NewRouter()
	r.Post("/rooms/create", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"room_id":"ROOM1"}`))
	})
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var msg struct {
				Type    string `json:"type"`
				Payload struct {
					RoomId string `json:"room_id"`
				} `json:"payload"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "join" {
				joins <- msg.Payload.RoomId
			}
		}
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApplication(t *testing.T, cfg *AppConfig) *application {
	t.Helper()

	a, err := newApplication(context.Background(), cfg, newLogger(io.Discard, cfg.LogLevel))
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func TestApplicationServesControlAPI(t *testing.T) {
	joins := make(chan string, 4)
	be := fakeBackend(t, joins)

	cfg := validConfig()
	cfg.APIURL = be.URL
	cfg.WSURL = "ws" + strings.TrimPrefix(be.URL, "http") + "/ws"

	a := newTestApplication(t, cfg)
	require.NoError(t, a.repo.Set(context.Background(), map[string]string{"jwt": "token"}))

	api := httptest.NewServer(a.handler)
	t.Cleanup(api.Close)

	resp, err := http.Post(api.URL+"/api/v1/room/create", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Phase string `json:"phase"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "AWAITING_START", body.Data.Phase)

	select {
	case roomId := <-joins:
		assert.Equal(t, "ROOM1", roomId)
	case <-time.After(2 * time.Second):
		t.Fatal("join not received")
	}
}

func TestRestoreRejoinsFromSQLite(t *testing.T) {
	joins := make(chan string, 4)
	be := fakeBackend(t, joins)

	cfg := validConfig()
	cfg.APIURL = be.URL
	cfg.WSURL = "ws" + strings.TrimPrefix(be.URL, "http") + "/ws"
	cfg.StateBackend = StateBackendSQLite
	cfg.StatePath = filepath.Join(t.TempDir(), "state.db")

	first := newTestApplication(t, cfg)
	require.NoError(t, first.repo.Set(context.Background(), map[string]string{
		"jwt":            "token",
		"room_id":        "ROOM1",
		"is_owner":       "false",
		"session_active": "false",
	}))
	first.close()

	second := newTestApplication(t, cfg)
	second.restore(context.Background())

	select {
	case roomId := <-joins:
		assert.Equal(t, "ROOM1", roomId)
	case <-time.After(2 * time.Second):
		t.Fatal("rejoin not received")
	}
}

func TestRedisBackend(t *testing.T) {
	s := miniredis.RunT(t)

	cfg := validConfig()
	cfg.StateBackend = StateBackendRedis
	cfg.RedisHost = s.Host()
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)
	cfg.RedisPort = port

	a := newTestApplication(t, cfg)
	require.NoError(t, a.repo.Set(context.Background(), map[string]string{"room_id": "R1"}))

	values, err := a.repo.Get(context.Background(), "room_id")
	require.NoError(t, err)
	assert.Equal(t, "R1", values["room_id"])
}
