package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Config configures the TMDb client.
type Config struct {
	BaseURL        string
	APIKey         string
	Language       string
	Timeout        time.Duration
	RequestsPer10s int
	MaxAttempts    int
}

// Client talks to the TMDb v3 API.
type Client struct {
	baseURL        string
	apiKey         string
	language       string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

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

// WithBackoff overrides the retry delays.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = initial
		c.maxBackoff = max
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	perTen := cfg.RequestsPer10s
	if perTen <= 0 {
		perTen = 40
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	c := &Client{
		baseURL:        baseURL,
		apiKey:         apiKey,
		language:       strings.TrimSpace(cfg.Language),
		httpClient:     &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(rate.Limit(float64(perTen)/10), perTen),
		maxAttempts:    attempts,
		initialBackoff: time.Second,
		maxBackoff:     8 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SearchResult is a single TMDb search match. Movies fill Title and
// ReleaseDate, series fill Name and FirstAirDate.
type SearchResult struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
}

type SearchResponse struct {
	Page         int            `json:"page"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

type MovieDetails struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	IMDbID      string `json:"imdb_id"`
}

type ExternalIDs struct {
	ID     int64  `json:"id"`
	IMDbID string `json:"imdb_id"`
	TVDbID int64  `json:"tvdb_id"`
}

type Episode struct {
	Name          string `json:"name"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
}

type SeasonDetails struct {
	ID           int64     `json:"id"`
	SeasonNumber int       `json:"season_number"`
	Episodes     []Episode `json:"episodes"`
}

// SearchMovie searches movies, narrowing by primary release year when
// year is positive.
func (c *Client) SearchMovie(ctx context.Context, query string, year int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("query", strings.TrimSpace(query))
	if year > 0 {
		params.Set("primary_release_year", strconv.Itoa(year))
	}
	var resp SearchResponse
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchTV searches series, narrowing by first air year when year is
// positive.
func (c *Client) SearchTV(ctx context.Context, query string, year int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("query", strings.TrimSpace(query))
	if year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(year))
	}
	var resp SearchResponse
	if err := c.get(ctx, "/search/tv", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MovieDetails(ctx context.Context, id int64) (*MovieDetails, error) {
	var details MovieDetails
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", id), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *Client) TVExternalIDs(ctx context.Context, id int64) (*ExternalIDs, error) {
	var ids ExternalIDs
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/external_ids", id), nil, &ids); err != nil {
		return nil, err
	}
	return &ids, nil
}

func (c *Client) SeasonDetails(ctx context.Context, showID int64, season int) (*SeasonDetails, error) {
	var details SeasonDetails
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", showID, season), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// statusError carries a non-200 response.
type statusError struct {
	code       int
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("tmdb returned status %d", e.code)
}

func (e *statusError) retriable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// get performs a rate-limited GET, retrying rate limits, server errors and
// network failures with capped exponential backoff.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	attempt := 0
	for {
		attempt++
		err := c.do(ctx, endpoint, params, result)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrResolverUnavailable, ctx.Err())
		}

		var se *statusError
		retriable := true
		if errors.As(err, &se) {
			if se.code == http.StatusNotFound {
				return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
			}
			retriable = se.retriable()
		} else if errors.Is(err, errDecode) {
			retriable = false
		}

		if !retriable || attempt >= c.maxAttempts {
			return fmt.Errorf("%w: %s after %d attempt(s): %v", ErrResolverUnavailable, endpoint, attempt, err)
		}

		backoff := c.initialBackoff * time.Duration(1<<uint(attempt-1))
		if se != nil && se.retryAfter > backoff {
			backoff = se.retryAfter
		}
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
		if err := sleepContext(ctx, backoff); err != nil {
			return fmt.Errorf("%w: %v", ErrResolverUnavailable, err)
		}
	}
}

var errDecode = errors.New("decoding response")

func (c *Client) do(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}

	fullURL := c.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &statusError{code: resp.StatusCode, retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
