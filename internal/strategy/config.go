package strategy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/markitup/internal/retry"
)

// DefaultBaseURL is the root of the generation backend API.
const DefaultBaseURL = "http://localhost:8001/api/ai"

// DefaultTimeout is the per-call client timeout.
const DefaultTimeout = 30 * time.Second

// DefaultMaxResponseBytes caps the body read from any backend response.
const DefaultMaxResponseBytes int64 = 4 << 20

// Config configures a Client. It is passed explicitly at construction so tests
// can point the client at a local stub server.
type Config struct {
	// BaseURL is the endpoint root, e.g. http://localhost:8001/api/ai
	BaseURL string
	// Timeout bounds every HTTP call; an expired call is a transport failure
	Timeout time.Duration
	// Retry is used by the read endpoints (list, get, templates)
	Retry retry.Options
	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client
	// Now overrides the clock used for GeneratedAt
	Now func() time.Time
	// MaxResponseBytes bounds a response body; a larger body is malformed
	MaxResponseBytes int64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		Retry:   retry.DefaultOptions(),
	}
}

// normalize fills zero values with defaults and validates the base URL.
func (c *Config) normalize() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid base URL %q", c.BaseURL)
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = retry.DefaultMaxAttempts
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = DefaultMaxResponseBytes
	}
	return nil
}
