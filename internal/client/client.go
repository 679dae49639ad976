// Package client talks to a MealVibe server over HTTP. It lets a wizard
// session run locally while recommendations and photo scans happen remotely.
package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"resty.dev/v3"

	"MealVibe/internal/meals"
	"MealVibe/internal/models"
	"MealVibe/internal/wizard"
)

const defaultTimeout = 45 * time.Second

// ErrServerFallback is returned when the server answered with its canned
// suggestions, so the local session can show them with its own advisory.
var ErrServerFallback = errors.New("server returned fallback suggestions")

// Client implements wizard.Recommender and wizard.Scanner against a server.
type Client struct {
	http *resty.Client
}

var (
	_ wizard.Recommender = (*Client)(nil)
	_ wizard.Scanner     = (*Client)(nil)
)

// Option configures a Client.
type Option func(*resty.Client)

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetries retries failed requests n times.
func WithRetries(n int) Option {
	return func(c *resty.Client) { c.SetRetryCount(n) }
}

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(c *resty.Client) { c.SetAuthToken(token) }
}

func New(baseURL string, opts ...Option) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return &Client{http: c}
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

type apiError struct {
	Error string `json:"error"`
}

// Recommend posts the compiled request to /api/recommendations.
func (c *Client) Recommend(ctx context.Context, req wizard.Request) (models.SuggestionSet, error) {
	var (
		out    models.SuggestionSet
		errOut apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req.Wire()).
		SetResult(&out).
		SetError(&errOut).
		Post("/api/recommendations")
	if err != nil {
		return models.SuggestionSet{}, fmt.Errorf("recommendation request failed: %w", err)
	}
	if resp.IsError() {
		return models.SuggestionSet{}, statusError(resp.StatusCode(), errOut)
	}
	if resp.Header().Get(meals.FallbackHeader) == "true" {
		return models.SuggestionSet{}, ErrServerFallback
	}
	if err := wizard.ValidateSuggestions(out); err != nil {
		return models.SuggestionSet{}, err
	}
	return out, nil
}

// Scan posts a JPEG to /api/scan-fridge.
func (c *Client) Scan(ctx context.Context, image []byte) (string, error) {
	var (
		out    models.ScanResponse
		errOut apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(models.ScanRequest{Image: base64.StdEncoding.EncodeToString(image)}).
		SetResult(&out).
		SetError(&errOut).
		Post("/api/scan-fridge")
	if err != nil {
		return "", fmt.Errorf("scan request failed: %w", err)
	}
	if resp.IsError() {
		return "", statusError(resp.StatusCode(), errOut)
	}
	if !out.Success {
		return "", wizard.ErrNoIngredients
	}
	return out.Ingredients, nil
}

// Auth runs a signup, signin or complete-setup action. A returned token is
// used for the following requests.
func (c *Client) Auth(ctx context.Context, req models.AuthRequest) (*models.AuthResponse, error) {
	var (
		out    models.AuthResponse
		errOut apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&errOut).
		Post("/api/auth")
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", err)
	}
	if resp.IsError() {
		return nil, statusError(resp.StatusCode(), errOut)
	}
	if out.Token != "" {
		c.http.SetAuthToken(out.Token)
	}
	log.Debug().Str("user_id", out.ID).Str("action", req.Action).Msg("authenticated with server")
	return &out, nil
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Message)
}

func statusError(code int, body apiError) error {
	return &StatusError{Code: code, Message: body.Error}
}
