package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/angeloszaimis/clientid-rotator/internal/identity"
	"github.com/angeloszaimis/clientid-rotator/internal/metrics"
)

const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxBodyBytes = 10 << 20
)

// Selector is the part of identity.Pool the client needs.
type Selector interface {
	Select() (identity.Identity, error)
	ReportSuccess(id identity.Identity) error
	ReportFailure(id identity.Identity, authFailure bool) error
	Len() int
}

// Client performs SoundCloud API requests, picking a client ID from the pool
// for every attempt and reporting each attempt's outcome exactly once.
type Client struct {
	pool         Selector
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	maxAttempts  int
	retryBackoff time.Duration
	logger       *slog.Logger
	events       chan<- metrics.MetricEvent
}

func New(pool Selector, opts ...Option) (*Client, error) {
	if pool == nil {
		return nil, errors.New("upstream: identity pool is required")
	}

	c := &Client{
		pool:         pool,
		baseURL:      DefaultBaseURL,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		retryBackoff: DefaultRetryBackoff,
		logger:       slog.Default(),
	}
	WithRateLimit(DefaultRateLimit)(c)

	for _, opt := range opts {
		opt(c)
	}

	base, err := url.Parse(c.baseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("upstream: invalid base URL %q", c.baseURL)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")

	return c, nil
}

func (c *Client) attempts() int {
	if c.maxAttempts > 0 {
		return c.maxAttempts
	}
	return c.pool.Len() + 1
}

// Do issues GET endpoint with params and decodes a successful JSON body into
// out, which may be nil. endpoint is either a path below the base URL or an
// absolute URL.
//
// A 401 or 403 quarantines the identity and retries at once with the next
// one. A 429, a 5xx or a transport error is retried after the backoff. Any
// other status is returned as *APIError without retry. Pool exhaustion and
// context cancellation end the loop immediately.
func (c *Client) Do(ctx context.Context, endpoint string, params url.Values, out any) error {
	target, err := c.resolve(endpoint, params)
	if err != nil {
		return err
	}

	attempts := c.attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}

		id, err := c.pool.Select()
		if err != nil {
			if errors.Is(err, identity.ErrAllIdentitiesExhausted) {
				metrics.Emit(c.events, metrics.MetricEvent{Type: metrics.EventPoolExhausted})
			}
			return fmt.Errorf("selecting client ID: %w", err)
		}

		metrics.Emit(c.events, metrics.MetricEvent{
			Type:     metrics.EventIdentitySelected,
			Identity: id.String(),
		})

		logger := c.logger.With(
			slog.String("request_id", uuid.NewString()),
			slog.Any("identity", id),
			slog.Int("attempt", attempt),
		)

		retry, err := c.attempt(ctx, logger, id, target, endpoint, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		if !errors.As(err, new(*authError)) {
			if err := c.sleep(ctx); err != nil {
				return fmt.Errorf("waiting to retry: %w", err)
			}
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, lastErr)
}

// authError marks an attempt rejected for its credential so the next one
// goes out without a backoff.
type authError struct {
	*APIError
}

func (e *authError) Unwrap() error {
	return e.APIError
}

func (c *Client) attempt(ctx context.Context, logger *slog.Logger, id identity.Identity, target *url.URL, endpoint string, out any) (bool, error) {
	u := *target
	q := u.Query()
	q.Set("client_id", id.Value())
	u.RawQuery = q.Encode()

	start := time.Now()
	status, body, err := c.send(ctx, u.String())
	elapsed := time.Since(start)

	if err != nil {
		c.fail(logger, id, 0, elapsed, false)
		logger.Warn("Upstream request failed", slog.String("endpoint", endpoint), slog.String("error", err.Error()))

		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, fmt.Errorf("request to %s: %w", endpoint, ctxErr)
		}
		return true, fmt.Errorf("request to %s: %w", endpoint, err)
	}

	if status >= 200 && status < 300 {
		c.report(logger, c.pool.ReportSuccess(id))
		metrics.Emit(c.events, metrics.MetricEvent{
			Type:       metrics.EventRequestSucceeded,
			Identity:   id.String(),
			Duration:   elapsed,
			StatusCode: status,
		})
		logger.Debug("Upstream request succeeded",
			slog.String("endpoint", endpoint),
			slog.Int("status", status),
			slog.Duration("duration", elapsed))

		if out == nil {
			return false, nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return false, fmt.Errorf("decoding response from %s: %w", endpoint, err)
		}
		return false, nil
	}

	apiErr := &APIError{StatusCode: status, Status: statusText(status), Endpoint: endpoint}

	switch {
	case IsAuthFailure(status):
		c.fail(logger, id, status, elapsed, true)
		logger.Warn("Client ID rejected by upstream", slog.String("endpoint", endpoint), slog.Int("status", status))
		return true, &authError{apiErr}

	case IsTransient(status):
		c.fail(logger, id, status, elapsed, false)
		logger.Warn("Upstream returned a transient error", slog.String("endpoint", endpoint), slog.Int("status", status))
		return true, apiErr

	default:
		c.fail(logger, id, status, elapsed, false)
		logger.Info("Upstream rejected the request", slog.String("endpoint", endpoint), slog.Int("status", status))
		return false, apiErr
	}
}

func (c *Client) fail(logger *slog.Logger, id identity.Identity, status int, elapsed time.Duration, authFailure bool) {
	c.report(logger, c.pool.ReportFailure(id, authFailure))

	metrics.Emit(c.events, metrics.MetricEvent{
		Type:        metrics.EventRequestFailed,
		Identity:    id.String(),
		Duration:    elapsed,
		StatusCode:  status,
		AuthFailure: authFailure,
	})

	if authFailure {
		metrics.Emit(c.events, metrics.MetricEvent{
			Type:     metrics.EventIdentityQuarantined,
			Identity: id.String(),
		})
	}
}

func (c *Client) report(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("Failed to report client ID outcome", slog.String("error", err.Error()))
	}
}

func (c *Client) send(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, redactURLError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, body, nil
}

func (c *Client) resolve(endpoint string, params url.Values) (*url.URL, error) {
	raw := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		raw = c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("building request URL for %s: %w", endpoint, err)
	}

	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	q.Del("client_id")
	u.RawQuery = q.Encode()

	return u, nil
}

func (c *Client) sleep(ctx context.Context) error {
	if c.retryBackoff <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(c.retryBackoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// redactURLError strips the query string from *url.Error so the client ID
// never ends up in an error message.
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}

	if u, perr := url.Parse(urlErr.URL); perr == nil {
		u.RawQuery = ""
		urlErr.URL = u.String()
	}
	return urlErr
}

func statusText(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
