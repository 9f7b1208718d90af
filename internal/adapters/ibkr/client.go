package ibkr

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://localhost:5001/v1/api"

	// The gateway documents ~10 req/s across iserver endpoints; stay under it.
	defaultRatePerSec = 8
	defaultBurst      = 4

	defaultMaxRetries     = 3
	baseRetryWait         = 500 * time.Millisecond
	defaultPreflightDelay = 500 * time.Millisecond
	defaultTimeout        = 15 * time.Second

	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
)

// Config holds the Client Portal gateway settings.
type Config struct {
	BaseURL            string
	InsecureSkipVerify bool // the local gateway serves a self-signed cert
	RatePerSec         float64
	Burst              int
	MaxRetries         int
	PreflightDelay     time.Duration
	Timeout            time.Duration
	BreakerFailures    uint32
	BreakerTimeout     time.Duration
}

// DefaultConfig points at a gateway on localhost:5001.
func DefaultConfig() Config {
	return Config{
		BaseURL:            defaultBaseURL,
		InsecureSkipVerify: true,
		RatePerSec:         defaultRatePerSec,
		Burst:              defaultBurst,
		MaxRetries:         defaultMaxRetries,
		PreflightDelay:     defaultPreflightDelay,
		Timeout:            defaultTimeout,
		BreakerFailures:    defaultBreakerFailures,
		BreakerTimeout:     defaultBreakerTimeout,
	}
}

// statusError is a non-retryable HTTP response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.Code, e.Body)
}

// Client is the HTTP client for the IBKR Client Portal gateway, with rate
// limiting, retries and a circuit breaker over the whole request.
type Client struct {
	http    *http.Client
	cfg     Config
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient builds a Client. Unset URL, rate, timeout and breaker fields take
// their defaults; MaxRetries and PreflightDelay are used as given.
func NewClient(cfg Config) *Client {
	cfg = withDefaults(cfg)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // local gateway
	}

	c := &Client{
		http:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "ibkr-gateway",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = def.RatePerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	cfg.MaxRetries = max(cfg.MaxRetries, 0)
	cfg.PreflightDelay = max(cfg.PreflightDelay, 0)
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	return cfg
}

// breakerSuccess keeps caller mistakes (4xx) and cancellations from tripping
// the breaker; only transport and server failures count.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *statusError
	return errors.As(err, &se)
}

// get issues a GET to path with query and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doWithRetry(ctx, u)
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doWithRetry runs the request with exponential backoff.
func (c *Client) doWithRetry(ctx context.Context, u string) ([]byte, error) {
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt == c.cfg.MaxRetries {
				return nil, fmt.Errorf("request failed after %d retries: %w", c.cfg.MaxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by gateway", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == c.cfg.MaxRetries {
				return nil, fmt.Errorf("server error %d after %d retries", resp.StatusCode, c.cfg.MaxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return nil, &statusError{Code: resp.StatusCode, Body: string(body)}
		}
		return body, nil
	}
	return nil, fmt.Errorf("exhausted %d retries", c.cfg.MaxRetries)
}

// sleep waits with exponential backoff, honouring the context.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	c.pause(ctx, wait)
}

func (c *Client) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
