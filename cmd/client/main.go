package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/flickroom/client/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	apiURL = configVar[string]{
		envKey:       "CLIENT_API_URL",
		flagKey:      "api-url",
		defaultValue: "http://localhost:8000",
		usage:        "Backend REST base url",
	}
	wsURL = configVar[string]{
		envKey:       "CLIENT_WS_URL",
		flagKey:      "ws-url",
		defaultValue: "ws://localhost:8000/ws",
		usage:        "Backend realtime channel url",
	}
	host = configVar[string]{
		envKey:       "CLIENT_HOST",
		flagKey:      "host",
		defaultValue: "127.0.0.1",
		usage:        "Control API host",
	}
	port = configVar[int]{
		envKey:       "CLIENT_PORT",
		flagKey:      "port",
		defaultValue: 7070,
		usage:        "Control API port",
	}
	logLevel = configVar[string]{
		envKey:       "CLIENT_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	requestTimeout = configVar[time.Duration]{
		envKey:       "CLIENT_REQUEST_TIMEOUT",
		flagKey:      "request-timeout",
		defaultValue: 10 * time.Second,
		usage:        "Timeout of a single backend request",
	}
	reconnectInterval = configVar[time.Duration]{
		envKey:       "CLIENT_RECONNECT_INTERVAL",
		flagKey:      "reconnect-interval",
		defaultValue: 2 * time.Second,
		usage:        "Delay between realtime reconnect attempts",
	}
	reconnectAttempts = configVar[int]{
		envKey:       "CLIENT_RECONNECT_ATTEMPTS",
		flagKey:      "reconnect-attempts",
		defaultValue: 5,
		usage:        "Realtime reconnect attempts before giving up",
	}
	pingInterval = configVar[time.Duration]{
		envKey:       "CLIENT_PING_INTERVAL",
		flagKey:      "ping-interval",
		defaultValue: 25 * time.Second,
		usage:        "Realtime keepalive interval, 0 disables",
	}
	stateBackend = configVar[string]{
		envKey:       "CLIENT_STATE_BACKEND",
		flagKey:      "state-backend",
		defaultValue: app.StateBackendSQLite,
		usage:        "Durable state backend: sqlite, redis or memory",
	}
	statePath = configVar[string]{
		envKey:       "CLIENT_STATE_PATH",
		flagKey:      "state-path",
		defaultValue: "./data/client-state.db",
		usage:        "SQLite state file",
	}
	stateNamespace = configVar[string]{
		envKey:       "CLIENT_STATE_NAMESPACE",
		flagKey:      "state-namespace",
		defaultValue: "default",
		usage:        "Namespace of this client's durable keys",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
)

func bindString(v configVar[string]) {
	pflag.String(v.flagKey, v.defaultValue, v.usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func bindInt(v configVar[int]) {
	pflag.Int(v.flagKey, v.defaultValue, v.usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func bindDuration(v configVar[time.Duration]) {
	pflag.Duration(v.flagKey, v.defaultValue, v.usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	// .env is optional
	_ = godotenv.Load()

	for _, v := range []configVar[string]{apiURL, wsURL, host, logLevel, stateBackend, statePath, stateNamespace, redisHost, redisPassword} {
		bindString(v)
	}
	for _, v := range []configVar[int]{port, reconnectAttempts, redisPort} {
		bindInt(v)
	}
	for _, v := range []configVar[time.Duration]{requestTimeout, reconnectInterval, pingInterval} {
		bindDuration(v)
	}
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	config := &app.AppConfig{
		APIURL:            viper.GetString(apiURL.flagKey),
		WSURL:             viper.GetString(wsURL.flagKey),
		Host:              viper.GetString(host.flagKey),
		Port:              viper.GetInt(port.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		RequestTimeout:    viper.GetDuration(requestTimeout.flagKey),
		ReconnectInterval: viper.GetDuration(reconnectInterval.flagKey),
		ReconnectAttempts: viper.GetInt(reconnectAttempts.flagKey),
		PingInterval:      viper.GetDuration(pingInterval.flagKey),
		StateBackend:      viper.GetString(stateBackend.flagKey),
		StatePath:         viper.GetString(statePath.flagKey),
		StateNamespace:    viper.GetString(stateNamespace.flagKey),
		RedisHost:         viper.GetString(redisHost.flagKey),
		RedisPort:         viper.GetInt(redisPort.flagKey),
		RedisPassword:     viper.GetString(redisPassword.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting client with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
