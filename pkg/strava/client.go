// Package strava talks to the Strava API: OAuth exchanges, activity listing
// and the credential-refreshing Fetcher used by the sync engine.
package strava

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

	"github.com/quatton/podium/pkg/metrics"
	"github.com/quatton/podium/pkg/perr"
	"github.com/quatton/podium/pkg/sport"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://www.strava.com/api/v3"
	DefaultAuthURL  = "https://www.strava.com/oauth/authorize"
	DefaultTokenURL = "https://www.strava.com/oauth/token"
	DefaultPerPage  = 100
	Scope           = "activity:read_all"
)

// Config configures a Client. Zero values fall back to the public endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	BaseURL  string
	AuthURL  string
	TokenURL string

	Timeout           time.Duration
	RequestsPerSecond float64
	PerPage           int
}

// Client is a thin Strava API client.
type Client struct {
	http    *http.Client
	oauth   *oauth2.Config
	baseURL string
	limiter *rate.Limiter
	perPage int
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{Scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(limit, 1),
		perPage: cfg.PerPage,
	}
}

// PerPage returns the configured page size.
func (c *Client) PerPage() int { return c.perPage }

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("strava: status %d: %s", e.StatusCode, e.Body)
}

// ActivityQuery selects a page of the athlete's activities.
type ActivityQuery struct {
	After   *time.Time
	Before  *time.Time
	Page    int
	PerPage int
}

func (q ActivityQuery) values() url.Values {
	v := url.Values{}
	if q.After != nil {
		v.Set("after", strconv.FormatInt(q.After.Unix(), 10))
	}
	if q.Before != nil {
		v.Set("before", strconv.FormatInt(q.Before.Unix(), 10))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return v
}

// ListActivities returns one page of activities. Failures carry perr.CodeFetch.
func (c *Client) ListActivities(ctx context.Context, accessToken string, q ActivityQuery) ([]sport.Record, error) {
	if q.PerPage <= 0 {
		q.PerPage = c.perPage
	}
	body, err := c.get(ctx, "list", accessToken, "/athlete/activities", q.values())
	if err != nil {
		return nil, err
	}

	var page []json.RawMessage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, perr.New(perr.CodeFetch, fmt.Errorf("decode activity page: %w", err))
	}
	out := make([]sport.Record, 0, len(page))
	for _, raw := range page {
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, perr.New(perr.CodeFetch, fmt.Errorf("decode activity: %w", err))
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetActivity fetches a single activity. An activity that no longer exists
// returns nil, nil.
func (c *Client) GetActivity(ctx context.Context, accessToken string, id int64) (*sport.Record, error) {
	body, err := c.get(ctx, "get", accessToken, "/activities/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	rec, err := decodeRecord(body)
	if err != nil {
		return nil, perr.New(perr.CodeFetch, fmt.Errorf("decode activity %d: %w", id, err))
	}
	return &rec, nil
}

func (c *Client) get(ctx context.Context, endpoint, accessToken, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, perr.New(perr.CodeFetch, err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, perr.New(perr.CodeFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(endpoint, 0)
		return nil, perr.New(perr.CodeFetch, fmt.Errorf("GET %s: %w", path, err))
	}
	defer resp.Body.Close()
	metrics.RecordAPIRequest(endpoint, resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, perr.New(perr.CodeFetch, fmt.Errorf("read %s: %w", path, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, perr.New(perr.CodeFetch, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)})
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
