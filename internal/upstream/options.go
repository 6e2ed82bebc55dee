package upstream

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/angeloszaimis/clientid-rotator/internal/metrics"
)

const (
	DefaultBaseURL      = "https://api-v2.soundcloud.com"
	DefaultTimeout      = 30 * time.Second
	DefaultRateLimit    = 60
	DefaultRetryBackoff = 500 * time.Millisecond
)

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRateLimit caps outbound requests per minute across all identities.
// A non-positive value disables limiting.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
}

// WithMaxAttempts bounds the attempts made by one Do call. Zero keeps the
// default of one more attempt than there are identities.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxAttempts = n
		}
	}
}

func WithRetryBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.retryBackoff = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithEvents(events chan<- metrics.MetricEvent) Option {
	return func(c *Client) {
		c.events = events
	}
}
