package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/nimbus/internal/models"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the OpenWeather 2.5 API root every endpoint is resolved against.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/"

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ObserveFunc receives the duration of every request, labelled by endpoint kind ("weather", "forecast").
type ObserveFunc func(kind string, took time.Duration)

// Client issues GET requests against templated OpenWeather endpoints and decodes the JSON replies.
type Client struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL *url.URL      // Base URL every endpoint is resolved against
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter shared by both endpoints
	observe ObserveFunc   // Optional request duration hook
}

// errorBody is the error payload OpenWeather sends with non-200 replies.
type errorBody struct {
	Cod     any    `json:"cod"` // int or string depending on the endpoint
	Message string `json:"message"`
}

// minBurst lets the current and forecast requests of one cycle go out together.
const minBurst = 2

// NewClient creates a client with its own http.Client and a limiter allowing rateLimit requests per second.
// A non-positive rateLimit disables limiting.
func NewClient(baseURL string, timeout time.Duration, rateLimit int, log *slog.Logger) (*Client, error) {
	return NewClientWithHTTPClient(&http.Client{Timeout: timeout}, baseURL, newLimiter(rateLimit), log)
}

// newLimiter allows rateLimit requests per second with a burst of at least minBurst.
func newLimiter(rateLimit int) *rate.Limiter {
	if rateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	return rate.NewLimiter(rate.Limit(rateLimit), max(rateLimit, minBurst))
}

// NewClientWithHTTPClient allows injecting a custom HTTP client and limiter.
func NewClientWithHTTPClient(
	client HTTPClient,
	baseURL string,
	limiter *rate.Limiter,
	log *slog.Logger,
) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	return &Client{client: client, baseURL: base, log: log, limiter: limiter}, nil
}

// SetObserver installs a hook called after every request.
func (c *Client) SetObserver(fn ObserveFunc) {
	c.observe = fn
}

// CurrentWeather fetches the current conditions for a relative endpoint such as
// "weather?lat=0.0&lon=0.0&appid=KEY&units=imperial".
func (c *Client) CurrentWeather(ctx context.Context, endpoint string) (*models.CurrentWeather, error) {
	var current models.CurrentWeather
	if err := c.get(ctx, endpoint, &current); err != nil {
		return nil, err
	}

	return &current, nil
}

// ForecastWeather fetches the forecast for a relative endpoint such as
// "forecast?lat=0.0&lon=0.0&appid=KEY&units=imperial".
func (c *Client) ForecastWeather(ctx context.Context, endpoint string) (*models.ForecastWeather, error) {
	var forecast models.ForecastWeather
	if err := c.get(ctx, endpoint, &forecast); err != nil {
		return nil, err
	}

	return &forecast, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if endpoint == "" {
		return ErrEmptyEndpoint
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}

	ref, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse endpoint: %w", err)
	}
	reqURL := c.baseURL.ResolveReference(ref)
	kind := strings.TrimSuffix(ref.Path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.DebugContext(ctx, "OpenWeather request", "kind", kind, "host", reqURL.Host)

	start := time.Now()
	resp, err := c.client.Do(req)
	if c.observe != nil {
		c.observe(kind, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.ErrorContext(ctx, "OpenWeather API error", "kind", kind, "status", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	if err = json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", kind, err)
	}

	return nil
}

// errorMessage extracts the provider message from an error body, falling back to the raw text.
func errorMessage(body []byte) string {
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}

	return strings.TrimSpace(string(body))
}
