package gdrive

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"

	"gdrive/internal/accounts"
	"gdrive/internal/config"
	"gdrive/internal/logging"
	"gdrive/internal/services"
)

const (
	defaultAPIEndpoint  = "https://www.googleapis.com/drive/v3/"
	defaultVideoInfoURL = "https://drive.google.com/get_video_info"
)

// Client talks to the Google Drive API on behalf of stored accounts.
type Client struct {
	tokenURL     string
	scopes       []string
	apiEndpoint  string
	videoInfoURL string
	httpClient   *http.Client
	logger       *slog.Logger
}

var _ accounts.Refresher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the base HTTP client used for token and API requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIEndpoint points the Drive API at a different base URL.
func WithAPIEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			c.apiEndpoint = strings.TrimRight(endpoint, "/") + "/"
		}
	}
}

// WithVideoInfoURL overrides the endpoint queried for transcoded streams.
func WithVideoInfoURL(endpoint string) Option {
	return func(c *Client) {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			c.videoInfoURL = endpoint
		}
	}
}

// NewClient builds a Drive client from the drive section of cfg.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		tokenURL:     google.Endpoint.TokenURL,
		scopes:       []string{"https://www.googleapis.com/auth/drive"},
		apiEndpoint:  defaultAPIEndpoint,
		videoInfoURL: defaultVideoInfoURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logging.NewComponentLogger(logger, "gdrive"),
	}
	if cfg != nil {
		if cfg.Drive.TokenURL != "" {
			client.tokenURL = cfg.Drive.TokenURL
		}
		WithAPIEndpoint(cfg.Drive.APIEndpoint)(client)
		if len(cfg.Drive.Scopes) > 0 {
			client.scopes = append([]string(nil), cfg.Drive.Scopes...)
		}
		if cfg.Drive.RequestTimeout > 0 {
			client.httpClient = &http.Client{Timeout: time.Duration(cfg.Drive.RequestTimeout) * time.Second}
		}
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// DownloadURL returns the media download URL for fileID.
func (c *Client) DownloadURL(fileID string) string {
	return c.apiEndpoint + "files/" + strings.TrimSpace(fileID) + "?alt=media"
}

// RefreshToken exchanges the account's service-account key for a new access
// token and returns its expiry.
func (c *Client) RefreshToken(ctx context.Context, account accounts.Account) (time.Time, error) {
	conf, err := c.jwtConfig(account)
	if err != nil {
		return time.Time{}, err
	}
	token, err := conf.TokenSource(c.oauthContext(ctx)).Token()
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch token for %s: %w", account.Email, err)
	}
	if !token.Valid() {
		return time.Time{}, fmt.Errorf("token endpoint returned an unusable token for %s", account.Email)
	}
	c.logger.Debug("token refreshed",
		logging.String(logging.FieldAccount, account.Name),
		logging.String("expiry", token.Expiry.UTC().Format(time.RFC3339)))
	return token.Expiry, nil
}

func (c *Client) jwtConfig(account accounts.Account) (*jwt.Config, error) {
	if account.Type != "" && account.Type != accounts.TypeService {
		return nil, services.Wrap(services.ErrValidation, "gdrive", "token", fmt.Sprintf("account %q is not a service account", account.Name), nil)
	}
	if strings.TrimSpace(account.Email) == "" || strings.TrimSpace(account.Key) == "" {
		return nil, services.Wrap(services.ErrValidation, "gdrive", "token", fmt.Sprintf("account %q has no email or private key", account.Name), nil)
	}
	return &jwt.Config{
		Email:      account.Email,
		PrivateKey: []byte(account.Key),
		Scopes:     c.scopes,
		TokenURL:   c.tokenURL,
	}, nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// authorizedClient returns an HTTP client that signs requests as account.
func (c *Client) authorizedClient(ctx context.Context, account accounts.Account) (*http.Client, error) {
	conf, err := c.jwtConfig(account)
	if err != nil {
		return nil, err
	}
	return conf.Client(c.oauthContext(ctx)), nil
}

func (c *Client) serviceOptions(httpClient *http.Client) []option.ClientOption {
	return []option.ClientOption{
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(c.apiEndpoint),
	}
}
