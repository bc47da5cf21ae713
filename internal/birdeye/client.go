// Package birdeye adapts the BirdEye REST and WebSocket APIs to the source
// contracts: token discovery and enrichment, OHLCV history, spot prices, top
// traders and holder concentration. Every call goes through the shared rate
// limiter and a circuit breaker, and failures are normalized to the typed
// source errors before they leave the package.
package birdeye

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"solana-revival-scanner/internal/observability"
	"solana-revival-scanner/internal/ratelimit"
	"solana-revival-scanner/internal/source"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://public-api.birdeye.so"

// Default configuration values.
const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

const chainSolana = "solana"

// errRateLimited marks a 429 that survived all retries.
var errRateLimited = errors.New("rate limited (429)")

// errMalformedResponse marks a payload that failed to decode.
var errMalformedResponse = errors.New("malformed response")

// errRejected marks a response the provider flagged with success=false.
var errRejected = errors.New("request rejected")

// BreakerConfig tunes the circuit breaker in front of the API.
type BreakerConfig struct {
	FailureThreshold uint32        // consecutive failures that open the circuit
	SuccessThreshold uint32        // half-open probes needed to close it again
	Timeout          time.Duration // open-state dwell before probing
}

// DefaultBreakerConfig returns the breaker settings used in production.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// Client is the BirdEye REST client. One instance is shared by the pipeline
// and the monitor loop; the per-source limiter keeps the combined request
// rate inside the plan budget.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64

	limiter    *ratelimit.Limiter
	breaker    *gobreaker.CircuitBreaker
	breakerCfg BreakerConfig
	log        zerolog.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(cfg BreakerConfig) ClientOption {
	return func(c *Client) {
		c.breakerCfg = cfg
	}
}

// WithLogger sets the logger used for breaker state transitions.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

// NewClient creates a new BirdEye REST client.
func NewClient(apiKey string, limiter *ratelimit.Limiter, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		limiter:     limiter,
		breakerCfg:  DefaultBreakerConfig(),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        source.BirdEye.String(),
		MaxRequests: c.breakerCfg.SuccessThreshold,
		Timeout:     c.breakerCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.breakerCfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// Local cancellation says nothing about provider health.
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
	})

	return c
}

// BreakerState reports the current circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// apiResponse is the envelope shared by all endpoints. The meme list endpoint
// omits the success field, hence the pointer.
type apiResponse struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// get runs one rate-limited, breaker-guarded GET and decodes the data
// payload into result.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx, source.BirdEye); err != nil {
		return err
	}

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, path, query, result)
	})
	cerr := classify(err)
	observability.RecordSourceCall(source.BirdEye.String(), path, time.Since(start).Seconds(), cerr)
	return cerr
}

// do performs a GET with retries and exponential backoff.
func (c *Client) do(ctx context.Context, path string, query url.Values, result interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-API-KEY", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = errRateLimited
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			// Client errors are not retried
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		var env apiResponse
		if err := json.Unmarshal(respBody, &env); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if env.Success != nil && !*env.Success {
			return fmt.Errorf("%w: %s", errRejected, env.Message)
		}

		if result != nil {
			if env.Data == nil {
				return fmt.Errorf("%w: missing data", errMalformedResponse)
			}
			if err := json.Unmarshal(env.Data, result); err != nil {
				return fmt.Errorf("%w: %v", errMalformedResponse, err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// classify maps transport failures onto the shared source error taxonomy.
// Context cancellation passes through untouched.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, errRateLimited):
		return source.RateLimited(source.BirdEye, err)
	case errors.Is(err, errMalformedResponse):
		return source.Malformed(source.BirdEye, err)
	default:
		return source.Unavailable(source.BirdEye, err)
	}
}
