package mindenit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/linerds/timetable-go/timetable"
)

const (
	DefaultBaseURL     = "https://sh.mindenit.org/api"
	DefaultUserAgent   = "LinerdsTimetable/0.1.0"
	DefaultMaxBodySize = 42 << 20

	defaultTimeout        = 60 * time.Second
	defaultConnectTimeout = 10 * time.Second
)

const (
	logMsgRequestCompleted = "upstream request completed"
	logMsgRequestFailed    = "upstream request failed"
	logAttrEndpoint        = "endpoint"
	logAttrStatusCode      = "status_code"
	logAttrBytes           = "bytes"
	logAttrDurationMS      = "duration_ms"
	logAttrError           = "error"
)

// Client talks to the schedule API. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
	logger      timetable.Logger
}

// NewClient creates a Client for DefaultBaseURL unless WithBaseURL says otherwise.
// The default http.Client honors HTTP(S)_PROXY from the environment.
func NewClient(options ...Option) (Client, error) {
	c := Client{
		baseURL:     DefaultBaseURL,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, option := range options {
		if err := option(&c); err != nil {
			return Client{}, err
		}
	}

	if c.httpClient == nil {
		c.httpClient = defaultHTTPClient()
	}

	if c.timeout > 0 {
		withTimeout := *c.httpClient
		withTimeout.Timeout = c.timeout
		c.httpClient = &withTimeout
	}

	return c, nil
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: defaultConnectTimeout}).DialContext,
			TLSHandshakeTimeout: defaultConnectTimeout,
			MaxIdleConnsPerHost: 4,
		},
	}
}

func (c Client) BaseURL() string {
	return c.baseURL
}

// Health queries the unwrapped health endpoint.
func (c Client) Health(ctx context.Context) (Health, error) {
	body, err := c.get(ctx, "health")
	if err != nil {
		return Health{}, err
	}

	var health Health
	if err = jsoniter.ConfigFastest.Unmarshal(body, &health); err != nil {
		return Health{}, errors.Join(ErrDecodingFailed, err)
	}

	return health, nil
}

func (c Client) Groups(ctx context.Context) (map[timetable.GroupID]timetable.Group, error) {
	raw, err := fetch[[]rawGroup](ctx, c, "groups")
	if err != nil {
		return nil, err
	}

	return normalizeGroups(raw), nil
}

func (c Client) Teachers(ctx context.Context) (map[timetable.TeacherID]timetable.Teacher, error) {
	raw, err := fetch[[]rawTeacher](ctx, c, "teachers")
	if err != nil {
		return nil, err
	}

	return normalizeTeachers(raw), nil
}

func (c Client) Auditoriums(ctx context.Context) (map[timetable.AuditoriumID]timetable.Auditorium, error) {
	raw, err := fetch[[]rawAuditorium](ctx, c, "auditoriums")
	if err != nil {
		return nil, err
	}

	return normalizeAuditoriums(raw), nil
}

// GroupTeachers lists the teachers who teach the group.
func (c Client) GroupTeachers(ctx context.Context, id timetable.GroupID) (map[timetable.TeacherID]timetable.Teacher, error) {
	raw, err := fetch[[]rawTeacher](ctx, c, fmt.Sprintf("groups/%d/teachers", id))
	if err != nil {
		return nil, err
	}

	return normalizeTeachers(raw), nil
}

// GroupSubjects lists the subjects the group studies.
func (c Client) GroupSubjects(ctx context.Context, id timetable.GroupID) (map[timetable.SubjectID]timetable.Subject, error) {
	raw, err := fetch[[]rawSubject](ctx, c, fmt.Sprintf("groups/%d/subjects", id))
	if err != nil {
		return nil, err
	}

	return normalizeSubjects(raw), nil
}

// Timetable fetches the schedule of one source as a self-contained batch.
func (c Client) Timetable(ctx context.Context, source Source) (timetable.Timetable, error) {
	raw, err := fetch[[]rawEvent](ctx, c, source.endpoint())
	if err != nil {
		return timetable.Timetable{}, err
	}

	return normalizeTimetable(raw), nil
}

func fetch[T any](ctx context.Context, c Client, endpoint string) (T, error) {
	var zero T

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return zero, err
	}

	var response envelope[T]
	if err = jsoniter.ConfigFastest.Unmarshal(body, &response); err != nil {
		return zero, errors.Join(ErrDecodingFailed, fmt.Errorf("%s: %w", endpoint, err))
	}

	return response.unwrap()
}

// get performs the request and reads the body up to the size limit.
// Any status outside 2xx is a failure.
func (c Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint, nil)
	if err != nil {
		return nil, errors.Join(ErrRequestFailed, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logFailure(endpoint, err)

		if ctx.Err() != nil {
			return nil, errors.Join(ErrRequestFailed, err)
		}

		return nil, errors.Join(ErrRequestFailed, ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		c.logFailure(endpoint, err)
		return nil, errors.Join(ErrRequestFailed, ErrUpstreamUnavailable, err)
	}

	if int64(len(body)) > c.maxBodySize {
		c.logFailure(endpoint, ErrResponseTooLarge)
		return nil, errors.Join(ErrResponseTooLarge, fmt.Errorf("%s: more than %d bytes", endpoint, c.maxBodySize))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := fmt.Errorf("%s: %s", endpoint, statusDetail(resp.StatusCode, body))
		c.logFailure(endpoint, statusErr)

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, errors.Join(ErrRequestFailed, ErrUpstreamUnavailable, statusErr)
		}

		return nil, errors.Join(ErrRequestFailed, statusErr)
	}

	if c.logger != nil {
		c.logger.Debug(logMsgRequestCompleted,
			logAttrEndpoint, endpoint,
			logAttrStatusCode, resp.StatusCode,
			logAttrBytes, len(body),
			logAttrDurationMS, toMilliseconds(time.Since(start)),
		)
	}

	return body, nil
}

// statusDetail adds the envelope's explanation to the status when the error body carries one.
func statusDetail(statusCode int, body []byte) string {
	status := fmt.Sprintf("status %d", statusCode)

	var response envelope[jsoniter.RawMessage]
	if jsoniter.ConfigFastest.Unmarshal(body, &response) != nil {
		return status
	}

	if response.Message == nil && response.Error == nil {
		return status
	}

	return status + ": " + response.detail()
}

func (c Client) logFailure(endpoint string, err error) {
	if c.logger != nil {
		c.logger.Warn(logMsgRequestFailed, logAttrEndpoint, endpoint, logAttrError, err.Error())
	}
}

func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
