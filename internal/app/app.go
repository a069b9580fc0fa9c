package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/flickroom/client/internal/controller"
	"github.com/flickroom/client/internal/credential"
	"github.com/flickroom/client/internal/domain"
	"github.com/flickroom/client/internal/repository/backend"
	"github.com/flickroom/client/internal/repository/channel"
	"github.com/flickroom/client/internal/repository/state/inmemory"
	stateRedis "github.com/flickroom/client/internal/repository/state/redis"
	"github.com/flickroom/client/internal/repository/state/sqlite"
	"github.com/flickroom/client/internal/service/account"
	"github.com/flickroom/client/internal/service/room"
	"github.com/flickroom/client/internal/service/session"
	"github.com/flickroom/client/pkg/ctxlogger"
	"github.com/flickroom/client/pkg/redisclient"
	"github.com/flickroom/client/pkg/validator"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

const (
	StateBackendSQLite = "sqlite"
	StateBackendRedis  = "redis"
	StateBackendMemory = "memory"
)

type AppConfig struct {
	APIURL            string        `json:"api_url" validate:"required,url"`
	WSURL             string        `json:"ws_url" validate:"required,url"`
	Host              string        `json:"host" validate:"required"`
	Port              int           `json:"port" validate:"gte=1,lte=65535"`
	LogLevel          string        `json:"log_level" validate:"required"`
	RequestTimeout    time.Duration `json:"request_timeout" validate:"gt=0"`
	ReconnectInterval time.Duration `json:"reconnect_interval" validate:"gt=0"`
	ReconnectAttempts int           `json:"reconnect_attempts" validate:"gte=0"`
	PingInterval      time.Duration `json:"ping_interval" validate:"gte=0"`
	StateBackend      string        `json:"state_backend" validate:"oneof=sqlite redis memory"`
	StatePath         string        `json:"state_path"`
	StateNamespace    string        `json:"state_namespace" validate:"required,max=64"`
	RedisHost         string        `json:"redis_host"`
	RedisPort         int           `json:"redis_port"`
	RedisPassword     string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if err := validator.NewValidator().Struct(cfg); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	switch cfg.StateBackend {
	case StateBackendSQLite:
		if cfg.StatePath == "" {
			return errors.New("state path is required for the sqlite backend")
		}
	case StateBackendRedis:
		if cfg.RedisHost == "" || cfg.RedisPort < 1 {
			return errors.New("redis host and port are required for the redis backend")
		}
	}

	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	logLevel := slog.LevelInfo
	_ = logLevel.UnmarshalText([]byte(strings.ToUpper(level)))

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(h)
}

type stateRepo interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

func openStateRepo(ctx context.Context, cfg *AppConfig) (stateRepo, error) {
	switch cfg.StateBackend {
	case StateBackendRedis:
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		return stateRedis.NewRepo(rc, cfg.StateNamespace), nil
	case StateBackendMemory:
		return inmemory.NewRepo(), nil
	default:
		repo, err := sqlite.Open(ctx, cfg.StatePath, cfg.StateNamespace)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

type iRoomLifecycle interface {
	Restore(ctx context.Context) (domain.SessionState, error)
	Shutdown()
}

type iRunner interface {
	Run(ctx context.Context) error
}

type application struct {
	handler http.Handler
	room    iRoomLifecycle
	runner  iRunner
	repo    stateRepo
	logger  *slog.Logger
}

func newApplication(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (*application, error) {
	repo, err := openStateRepo(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open state storage: %w", err)
	}

	client, err := backend.NewClient(&backend.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.RequestTimeout,
	}, logger)
	if err != nil {
		repo.Close()
		return nil, err
	}

	manager := channel.NewManager(channel.Config{
		URL:               cfg.WSURL,
		ReconnectInterval: cfg.ReconnectInterval,
		ReconnectAttempts: cfg.ReconnectAttempts,
		PingInterval:      cfg.PingInterval,
	}, logger)

	credentials := credential.NewStore(repo, logger)
	sessions := session.NewStore(repo, logger)
	roomService := room.NewService(client, manager, sessions, credentials, logger)
	accountService := account.NewService(client, credentials, roomService, logger)
	ctrl := controller.NewController(roomService, accountService, sessions, logger)

	return &application{
		handler: ctrl.GetMux(),
		room:    roomService,
		runner:  ctrl,
		repo:    repo,
		logger:  logger,
	}, nil
}

// restore brings back the previous session. A missing credential is not
// fatal: the UI asks for login and the record is kept.
func (a *application) restore(ctx context.Context) {
	st, err := a.room.Restore(ctx)
	switch {
	case errors.Is(err, backend.ErrUnauthenticated):
		a.logger.InfoContext(ctx, "login required to resume session", "room_id", st.RoomId)
	case err != nil:
		a.logger.WarnContext(ctx, "failed to restore session", "error", err)
	default:
		a.logger.InfoContext(ctx, "session restored", "phase", st.Phase())
	}
}

func (a *application) close() {
	a.room.Shutdown()
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("failed to close state storage", "error", err)
	}
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logger := newLogger(os.Stdout, cfg.LogLevel)

	a, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	a.restore(ctx)

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: a.handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "starting control api", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.runner.Run(gctx)
	})
	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
