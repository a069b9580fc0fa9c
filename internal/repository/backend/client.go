package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flickroom/client/pkg/validator"
)

const maxResponseBytes = 4 << 20

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a stateless wrapper over the backend REST API. Calls are never
// retried here.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	validate   *validator.Validator
	logger     *slog.Logger
}

func NewClient(cfg *Config, logger *slog.Logger) (*Client, error) {
	baseURL, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid api url: %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.NewValidator(),
		logger:     logger,
	}, nil
}

func (c *Client) check(req any) error {
	if errs, ok := c.validate.Validate(req); !ok {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errs)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.InfoContext(ctx, "backend request failed", "path", path, "error", err)
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "backend request",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody errorResponse
		_ = json.Unmarshal(data, &errBody)
		return statusError(resp.StatusCode, errBody)
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w: malformed response body: %w", ErrServer, err)
		}
		return fmt.Errorf("%w: unexpected response body: %w", ErrServer, err)
	}

	return nil
}

func requireToken(token string) error {
	if token == "" {
		return fmt.Errorf("%w: no credential", ErrUnauthenticated)
	}

	return nil
}
