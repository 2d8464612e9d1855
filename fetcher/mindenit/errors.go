package mindenit

import "errors"

var ErrRequestFailed = errors.New("upstream request failed")
var ErrUpstreamUnavailable = errors.New("upstream unavailable")
var ErrBadResponse = errors.New("bad upstream response")
var ErrDecodingFailed = errors.New("decoding upstream response failed")
var ErrResponseTooLarge = errors.New("upstream response exceeds the size limit")

var ErrInvalidBaseURL = errors.New("invalid base url supplied")
var ErrNilHTTPClient = errors.New("http client is nil")
var ErrInvalidTimeout = errors.New("timeout must be positive")
var ErrEmptyUserAgent = errors.New("empty user agent supplied")
var ErrInvalidBodyLimit = errors.New("body size limit must be positive")
