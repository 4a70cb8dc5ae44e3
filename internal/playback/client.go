package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gdrive/internal/config"
	"gdrive/internal/logging"
	"gdrive/internal/services"
)

// Client posts payloads to the local helper server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the helper server address.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// NewClient builds a client for the helper server configured in cfg.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...ClientOption) *Client {
	timeout := 10 * time.Second
	baseURL := "http://localhost:8011"
	if cfg != nil {
		baseURL = cfg.PlaybackBaseURL()
		if cfg.Playback.RequestTimeout > 0 {
			timeout = time.Duration(cfg.Playback.RequestTimeout) * time.Second
		}
	}
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "playback"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Post sends payload to path on the helper server.
func (c *Client) Post(ctx context.Context, path string, payload Payload) error {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return services.Wrap(services.ErrValidation, "playback", "post", "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return services.Wrap(services.ErrTimeout, "playback", "post", fmt.Sprintf("helper server did not answer %s", path), err)
		}
		return services.Wrap(services.ErrTransient, "playback", "post", fmt.Sprintf("helper server unreachable at %s", c.baseURL), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return services.Wrap(services.ErrTransient, "playback", "post", fmt.Sprintf("%s returned %d", path, resp.StatusCode), nil)
	}
	c.logger.Debug("payload delivered",
		logging.String("path", path),
		logging.Int("status", resp.StatusCode))
	return nil
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
