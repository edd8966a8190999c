package atlas

import (
	"net/http"
	"time"
)

// Option configures the Client.
type Option func(*options)

type options struct {
	timeout    time.Duration
	baseURL    string
	pageSize   int
	httpClient *http.Client
}

// WithTimeout sets the timeout for every API call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithBaseURL overrides the Admin API endpoint. The URL must end with a slash.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithPageSize sets the items per page of paginated listings.
func WithPageSize(n int) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

// WithHTTPClient replaces the digest-authenticated HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}
