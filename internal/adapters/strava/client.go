// Package strava talks to the Strava v3 API: OAuth token exchange and
// refresh, plus authenticated activity and athlete reads.
//
// All outbound calls share a rate limiter (Strava enforces strict
// per-app quotas) and a circuit breaker so a provider outage degrades
// to soft failures instead of piling up blocked workers.
package strava

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/mlunde/adventpace/internal/domain/model"
	"github.com/mlunde/adventpace/pkg/logger"
	"github.com/mlunde/adventpace/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultAPIBase     = "https://www.strava.com/api/v3"
	defaultHTTPTimeout = 30 * time.Second
	defaultPerPage     = 50
	defaultRateRPS     = 2
	defaultRateBurst   = 10
	breakerMaxRequests = 3
	breakerInterval    = 60 * time.Second
	breakerTimeout     = 30 * time.Second
	breakerMinRequests = 5
	breakerFailureRate = 0.6
)

// Athlete is the athlete summary returned by token grants and the
// athlete endpoint.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// TokenGrant is the response of the OAuth token endpoint for both the
// authorization-code and refresh-token grants.
type TokenGrant struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresAt    int64    `json:"expires_at"`
	Athlete      *Athlete `json:"athlete,omitempty"`
}

type response struct {
	status int
	body   []byte
}

// Client is the Strava API client.
type Client struct {
	httpClient   *http.Client
	apiBase      string
	tokenURL     string
	clientID     string
	clientSecret string
	perPage      int
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[response]
	log          logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithAPIBase overrides the API base URL. Used by tests.
func WithAPIBase(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.apiBase = strings.TrimRight(base, "/")
			c.tokenURL = c.apiBase + "/oauth/token"
		}
	}
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.tokenURL = u
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithPerPage sets the page size for activity listings.
func WithPerPage(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.perPage = n
		}
	}
}

// WithRateLimit sets the outbound request rate and burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a Strava client for the given application
// credentials.
func NewClient(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		apiBase:      defaultAPIBase,
		tokenURL:     defaultAPIBase + "/oauth/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		perPage:      defaultPerPage,
		limiter:      rate.NewLimiter(defaultRateRPS, defaultRateBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("strava")
	}
	c.breaker = gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:        "strava-api",
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= breakerFailureRate
		},
	})
	return c
}

// do sends the request through the limiter and breaker. Server errors
// and transport failures count against the breaker; client errors are
// passed through to the caller.
func (c *Client) do(ctx context.Context, req *http.Request) (response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return response{}, fmt.Errorf("rate limit wait: %w", err)
	}
	resp, err := c.breaker.Execute(func() (response, error) {
		res, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordStravaCallError()
			return response{}, err
		}
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		if err != nil {
			metrics.RecordStravaCallError()
			return response{}, err
		}
		if res.StatusCode >= http.StatusInternalServerError {
			metrics.RecordStravaCallError()
			return response{}, fmt.Errorf("%w: status %d", ErrUpstream, res.StatusCode)
		}
		metrics.RecordStravaCall()
		return response{status: res.StatusCode, body: body}, nil
	})
	if err != nil {
		return response{}, err
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path, token string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if resp.status != http.StatusOK {
		return fmt.Errorf("%w: GET %s: status %d", ErrUpstream, path, resp.status)
	}
	return json.Unmarshal(resp.body, v)
}

// Activity fetches one activity by id.
func (c *Client) Activity(ctx context.Context, token string, id int64) (model.Activity, error) {
	var act model.Activity
	if err := c.get(ctx, "/activities/"+strconv.FormatInt(id, 10), token, &act); err != nil {
		return model.Activity{}, err
	}
	return act, nil
}

// Activities lists the athlete's most recent activities.
func (c *Client) Activities(ctx context.Context, token string) ([]model.Activity, error) {
	var acts []model.Activity
	path := "/athlete/activities?per_page=" + strconv.Itoa(c.perPage)
	if err := c.get(ctx, path, token, &acts); err != nil {
		return nil, err
	}
	return acts, nil
}

// Athlete fetches the authenticated athlete's profile.
func (c *Client) Athlete(ctx context.Context, token string) (Athlete, error) {
	var a Athlete
	if err := c.get(ctx, "/athlete", token, &a); err != nil {
		return Athlete{}, err
	}
	return a, nil
}

// Refresh exchanges a refresh token for a new token pair. A non-2xx
// response or a grant without an access token is ErrUpstream; the
// caller must leave its stored credential untouched in that case.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenGrant, error) {
	return c.tokenGrant(ctx, url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// Exchange trades an authorization code for the initial token pair.
// The grant carries the athlete summary used to index webhook owners.
func (c *Client) Exchange(ctx context.Context, code string) (TokenGrant, error) {
	return c.tokenGrant(ctx, url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
	})
}

func (c *Client) tokenGrant(ctx context.Context, form url.Values) (TokenGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenGrant{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.do(ctx, req)
	if err != nil {
		return TokenGrant{}, err
	}
	if resp.status < http.StatusOK || resp.status >= http.StatusMultipleChoices {
		return TokenGrant{}, fmt.Errorf("%w: token grant status %d", ErrUpstream, resp.status)
	}
	var grant TokenGrant
	if err := json.Unmarshal(resp.body, &grant); err != nil {
		return TokenGrant{}, err
	}
	if grant.AccessToken == "" {
		return TokenGrant{}, fmt.Errorf("%w: grant missing access token", ErrUpstream)
	}
	return grant, nil
}
