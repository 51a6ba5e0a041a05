package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Kaglioster-hub/vrabo/infrastructure/circuitbreaker"
	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/infrastructure/retry"
)

const maxBodyBytes = 4 << 20

// Observer receives call outcomes, typically Prometheus collectors.
type Observer interface {
	ObserveUpstream(upstream, outcome string, elapsed time.Duration)
	ObserveBreakerState(upstream string, state circuitbreaker.State)
}

type nopObserver struct{}

func (nopObserver) ObserveUpstream(string, string, time.Duration)    {}
func (nopObserver) ObserveBreakerState(string, circuitbreaker.State) {}

// Config configures a Client.
type Config struct {
	Retry          retry.Config
	AttemptTimeout time.Duration
	Breaker        circuitbreaker.Config
}

// Client performs GET requests against named upstreams. Each name gets its
// own breaker, created on first use.
type Client struct {
	http     *http.Client
	cfg      Config
	log      logger.Logger
	observer Observer

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithObserver reports outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// New creates a Client.
func New(httpClient *http.Client, cfg Config, log logger.Logger, opts ...Option) *Client {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 4 * time.Second
	}
	c := &Client{
		http:     httpClient,
		cfg:      cfg,
		log:      log,
		observer: nopObserver{},
		breakers: make(map[string]*circuitbreaker.Breaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) breaker(name string) *circuitbreaker.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.breakers[name]; ok {
		return b
	}

	bcfg := c.cfg.Breaker
	bcfg.OnStateChange = func(from, to circuitbreaker.State) {
		c.log.Warn("Upstream breaker state changed",
			logger.String("upstream", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
		c.observer.ObserveBreakerState(name, to)
	}
	b := circuitbreaker.New(bcfg)
	c.breakers[name] = b
	return b
}

// BreakerState returns the state of name's breaker.
func (c *Client) BreakerState(name string) circuitbreaker.State {
	return c.breaker(name).State()
}

// GetJSON fetches rawURL and decodes the JSON body into out. Failures are
// returned as *Error; retryable kinds are retried with backoff before the
// call counts as one breaker failure.
func (c *Client) GetJSON(ctx context.Context, name, rawURL string, out any) error {
	start := time.Now()

	retryCfg := c.cfg.Retry
	retryCfg.IsRetryable = isRetryable
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.FromContext(ctx).Debug("Retrying upstream call",
			logger.String("upstream", name),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
	}

	var body []byte
	err := c.breaker(name).Execute(func() error {
		return retry.Do(ctx, retryCfg, func(ctx context.Context, _ int) error {
			b, attemptErr := c.attempt(ctx, name, rawURL)
			if attemptErr != nil {
				return attemptErr
			}
			body = b
			return nil
		})
	})

	if err == nil {
		if decodeErr := json.Unmarshal(body, out); decodeErr != nil {
			err = &Error{Kind: KindDecode, Upstream: name, Err: decodeErr}
		}
	}

	err = classifyFinal(name, err)
	c.observer.ObserveUpstream(name, outcome(err), time.Since(start))
	return err
}

func (c *Client) attempt(ctx context.Context, name, rawURL string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &Error{Kind: KindConfig, Upstream: name, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() != nil {
			return nil, &Error{Kind: KindTimeout, Upstream: name, Err: err}
		}
		return nil, &Error{Kind: KindNetwork, Upstream: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, statusError(name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if attemptCtx.Err() != nil {
			return nil, &Error{Kind: KindTimeout, Upstream: name, Err: err}
		}
		return nil, &Error{Kind: KindNetwork, Upstream: name, Err: err}
	}
	return body, nil
}

func statusError(name string, status int) *Error {
	kind := KindHTTPStatus
	switch {
	case status == http.StatusTooManyRequests:
		kind = KindRateLimit
	case status >= 500:
		kind = KindUpstream5xx
	}
	return &Error{Kind: kind, Upstream: name, Status: status, Err: fmt.Errorf("HTTP %d", status)}
}

func isRetryable(err error) bool {
	var uErr *Error
	return errors.As(err, &uErr) && uErr.Retryable()
}

// classifyFinal makes sure every returned error is an *Error.
func classifyFinal(name string, err error) error {
	if err == nil {
		return nil
	}

	var uErr *Error
	if errors.As(err, &uErr) {
		if errors.Is(err, retry.ErrMaxAttemptsExceeded) {
			return &Error{Kind: uErr.Kind, Upstream: name, Status: uErr.Status, Err: err}
		}
		return uErr
	}

	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return &Error{Kind: KindCircuitOpen, Upstream: name, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Upstream: name, Err: err}
	default:
		return &Error{Kind: KindNetwork, Upstream: name, Err: err}
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var uErr *Error
	if errors.As(err, &uErr) {
		return string(uErr.Kind)
	}
	return "error"
}
