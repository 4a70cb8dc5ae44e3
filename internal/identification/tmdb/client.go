package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// MediaType selects the TMDB search endpoint.
type MediaType string

const (
	Movie MediaType = "movie"
	TV    MediaType = "tv"
)

// yearParam is the filter each endpoint understands.
func (m MediaType) yearParam() string {
	if m == TV {
		return "first_air_date_year"
	}
	return "primary_release_year"
}

// Query is one title search. Year is optional.
type Query struct {
	Type MediaType
	Text string
	Year int
}

// Key identifies the query for memoization.
func (q Query) Key() string {
	return fmt.Sprintf("%s|%s|%d", q.Type, strings.ToLower(strings.TrimSpace(q.Text)), q.Year)
}

// Result is a single search match. Movies carry Title and ReleaseDate, shows
// carry Name and FirstAirDate.
type Result struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
}

// Year returns the four-digit release or first-air year, or "" when TMDB
// has no usable date.
func (r Result) Year() string {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return ""
	}
	if _, err := strconv.Atoi(date[:4]); err != nil {
		return ""
	}
	return date[:4]
}

// Response is the first page of a search.
type Response struct {
	Results      []Result `json:"results"`
	TotalResults int      `json:"total_results"`
}

// Searcher runs title searches.
type Searcher interface {
	Search(ctx context.Context, q Query) (*Response, error)
}

// StatusError reports a non-200 TMDB response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	retryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb %s returned %d", e.Endpoint, e.StatusCode)
}

// Temporary reports whether retrying later may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// maxRetryAfter caps how long a throttled request waits before its single retry.
const maxRetryAfter = 5 * time.Second

// Client searches TMDB with an optional request rate cap.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithRateLimit caps outgoing requests per second. Naming a whole folder
// issues one search per distinct title, which TMDB throttles in bursts.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search queries the movie or TV endpoint. A 429 is retried once after the
// server's Retry-After delay.
func (c *Client) Search(ctx context.Context, q Query) (*Response, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, errors.New("query must not be empty")
	}
	if q.Type == "" {
		q.Type = Movie
	}
	path := "/search/" + string(q.Type)
	params := url.Values{"query": {text}, "api_key": {c.apiKey}}
	if c.language != "" {
		params.Set("language", c.language)
	}
	if q.Year > 0 {
		params.Set(q.Type.yearParam(), strconv.Itoa(q.Year))
	}
	endpoint := c.baseURL + path + "?" + params.Encode()

	resp, err := c.get(ctx, path, endpoint)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(statusErr.retryAfter):
		}
		resp, err = c.get(ctx, path, endpoint)
	}
	return resp, err
}

func (c *Client) get(ctx context.Context, path, endpoint string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("tmdb rate limit wait: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode tmdb response: %w", err)
	}
	return &payload, nil
}

func parseRetryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return time.Second
	}
	if wait := time.Duration(seconds) * time.Second; wait < maxRetryAfter {
		return wait
	}
	return maxRetryAfter
}
