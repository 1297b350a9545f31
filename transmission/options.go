package transmission

import (
	"net/http"
	"time"
)

// DefaultTimeout is the HTTP client timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	observer   Observer
}

func defaultOptions() clientOptions {
	return clientOptions{
		timeout: DefaultTimeout,
	}
}

// WithHTTPClient sets the HTTP client used for RPC calls. It takes precedence over WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		o.userAgent = userAgent
	}
}

// WithObserver installs a trace observer, replacing the one selected by Config.Debug.
func WithObserver(observer Observer) Option {
	return func(o *clientOptions) {
		o.observer = observer
	}
}
