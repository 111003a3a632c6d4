package httpfetch

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Option configures the fetcher.
type Option func(*options)

type options struct {
	client    *http.Client
	limiter   *rate.Limiter
	header    http.Header
	dataField string
	timeout   time.Duration
	maxBody   int64
}

func defaultOptions() *options {
	return &options{
		client:  http.DefaultClient,
		header:  make(http.Header),
		timeout: 10 * time.Second,
		maxBody: 4 << 20, // 4MB
	}
}

// WithHTTPClient sets the HTTP client.
// Default: http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithRateLimit throttles requests to rps per second with the given burst.
// Waiting for a token counts against the request timeout.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithHeader adds a header to every request, e.g. an API token.
func WithHeader(key, value string) Option {
	return func(o *options) {
		o.header.Add(key, value)
	}
}

// WithDataField decodes the value from a field of a JSON object response,
// e.g. "data" for {"data": [...]}.
func WithDataField(name string) Option {
	return func(o *options) {
		o.dataField = name
	}
}

// WithTimeout bounds each request including rate limit waits.
// Default: 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxBodySize caps the number of response bytes read.
// Default: 4MB.
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBody = n
		}
	}
}
