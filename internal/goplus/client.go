// Package goplus adapts the GoPlus token security API to the SecuritySource
// contract. The vendor reports scam heuristics per mint (honeypot, live mint
// authority, blacklist and freeze capability); Inspect folds them into a
// penalty-scored SecurityReport. A mint the vendor does not know yields a
// fail-open report rather than an error; transport trouble surfaces as a
// typed source error so the pipeline can apply its own fail-open policy.
package goplus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/observability"
	"solana-revival-scanner/internal/ratelimit"
	"solana-revival-scanner/internal/source"
)

// DefaultBaseURL is the public API endpoint. Works without a key at a lower
// rate limit.
const DefaultBaseURL = "https://api.gopluslabs.io"

const tokenSecurityPath = "/api/v1/token_security/sol"

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// DefaultMinRiskScore is the lowest penalty score that still passes.
	DefaultMinRiskScore = 60
)

// Penalty weights per finding. A honeypot zeroes the score outright.
const (
	penaltyHoneypot  = 100
	penaltyMintable  = 50
	penaltyBlacklist = 30
	penaltyFreeze    = 20
)

// errRateLimited marks a 429 that survived all retries.
var errRateLimited = errors.New("rate limited (429)")

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

// Client is the GoPlus REST client.
type Client struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
	maxDelay     time.Duration
	backoffMult  float64
	minRiskScore int

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

// WithAPIKey sets the bearer token. The API works without one.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
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

// WithMinRiskScore overrides the pass threshold.
func WithMinRiskScore(score int) ClientOption {
	return func(c *Client) {
		c.minRiskScore = score
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

// NewClient creates a new GoPlus REST client.
func NewClient(limiter *ratelimit.Limiter, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		client:       &http.Client{Timeout: DefaultTimeout},
		maxRetries:   DefaultMaxRetries,
		retryDelay:   DefaultRetryDelay,
		maxDelay:     DefaultMaxDelay,
		backoffMult:  DefaultBackoffMult,
		minRiskScore: DefaultMinRiskScore,
		limiter:      limiter,
		breakerCfg:   DefaultBreakerConfig(),
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        source.GoPlus.String(),
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

// securityEnvelope is the raw vendor response. Result is keyed by the mint
// exactly as queried.
type securityEnvelope struct {
	Code    int                      `json:"code"`
	Message string                   `json:"message"`
	Result  map[string]securityEntry `json:"result"`
}

type securityEntry struct {
	Honeypot  boolFlag `json:"is_honeypot"`
	Mintable  boolFlag `json:"is_mintable"`
	Blacklist boolFlag `json:"is_blacklisted"`
	Freeze    boolFlag `json:"can_take_back_ownership"`
}

// boolFlag decodes the vendor's "0"/"1" string flags, tolerating the bare
// numbers some response variants use.
type boolFlag bool

func (f *boolFlag) UnmarshalJSON(b []byte) error {
	*f = boolFlag(strings.Trim(string(b), `"`) == "1")
	return nil
}

// Inspect runs the scam heuristics for one mint. The report starts at score
// 100 and pays a penalty per finding; a honeypot or live mint authority
// fails outright, other findings fail only once the score drops below the
// threshold.
func (c *Client) Inspect(ctx context.Context, mint string) (*domain.SecurityReport, error) {
	if err := c.limiter.Wait(ctx, source.GoPlus); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("contract_addresses", mint)

	start := time.Now()
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, tokenSecurityPath, q)
	})
	cerr := classify(err)
	observability.RecordSourceCall(source.GoPlus.String(), tokenSecurityPath, time.Since(start).Seconds(), cerr)
	if cerr != nil {
		return nil, cerr
	}
	env := res.(*securityEnvelope)

	entry, ok := env.Result[mint]
	if !ok {
		// The vendor does not know this mint. Let it through flagged
		// instead of dropping it.
		return &domain.SecurityReport{
			RiskScore:   100,
			Passed:      true,
			Unavailable: true,
			CheckedAt:   time.Now().UnixMilli(),
		}, nil
	}

	report := &domain.SecurityReport{
		Honeypot:        bool(entry.Honeypot),
		MintableSupply:  bool(entry.Mintable),
		Blacklist:       bool(entry.Blacklist),
		FreezeAuthority: bool(entry.Freeze),
		CheckedAt:       time.Now().UnixMilli(),
	}

	penalty := 0
	if report.Honeypot {
		penalty += penaltyHoneypot
	}
	if report.MintableSupply {
		penalty += penaltyMintable
	}
	if report.Blacklist {
		penalty += penaltyBlacklist
	}
	if report.FreezeAuthority {
		penalty += penaltyFreeze
	}

	score := 100 - penalty
	if score < 0 {
		score = 0
	}
	report.RiskScore = score
	report.Passed = !report.Honeypot && !report.MintableSupply && score >= c.minRiskScore

	return report, nil
}

// do performs a GET with retries and exponential backoff.
func (c *Client) do(ctx context.Context, path string, query url.Values) (*securityEnvelope, error) {
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
				return nil, ctx.Err()
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
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

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
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		var env securityEnvelope
		if err := json.Unmarshal(respBody, &env); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		return &env, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
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
		return source.RateLimited(source.GoPlus, err)
	default:
		return source.Unavailable(source.GoPlus, err)
	}
}

// Compile-time interface check.
var _ source.SecuritySource = (*Client)(nil)
