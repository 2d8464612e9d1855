package mindenit

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linerds/timetable-go/timetable"
)

// Option defines a functional option for configuring Client.
type Option func(*Client) error

// WithBaseURL replaces the API root, e.g. "http://localhost:8080/api". A trailing slash is dropped.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return errors.Join(ErrInvalidBaseURL, err)
		}

		if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return errors.Join(ErrInvalidBaseURL, errors.New(baseURL))
		}

		c.baseURL = strings.TrimRight(baseURL, "/")

		return nil
	}
}

// WithHTTPClient replaces the default http.Client. The client is never modified,
// WithTimeout applies to a copy.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		if httpClient == nil {
			return ErrNilHTTPClient
		}

		c.httpClient = httpClient

		return nil
	}
}

// WithTimeout limits a whole request including reading the body.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout <= 0 {
			return ErrInvalidTimeout
		}

		c.timeout = timeout

		return nil
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) error {
		if strings.TrimSpace(userAgent) == "" {
			return ErrEmptyUserAgent
		}

		c.userAgent = userAgent

		return nil
	}
}

// WithMaxBodySize limits how many bytes of a response body are read.
func WithMaxBodySize(limit int64) Option {
	return func(c *Client) error {
		if limit <= 0 {
			return ErrInvalidBodyLimit
		}

		c.maxBodySize = limit

		return nil
	}
}

// WithLogger sets the logger for the Client.
//
// Debug level: every request with status code, body size and timing
// Warn level: failed requests.
func WithLogger(logger timetable.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}
