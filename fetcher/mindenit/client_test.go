package mindenit_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linerds/timetable-go/fetcher/mindenit"
	"github.com/linerds/timetable-go/testutil/sqlengine/helper"
	"github.com/linerds/timetable-go/timetable"
)

const groupScheduleJSON = `{
  "success": true,
  "data": [
    {
      "id": 9001,
      "startedAt": 1756709100,
      "endedAt": 1756714800,
      "numberPair": 1,
      "type": "Лк",
      "groups": [{"id": 12, "name": "KI-24-1"}, {"id": 11, "name": "KI-24-2"}],
      "teachers": [{"id": 7, "fullName": "Ada Lovelace", "shortName": "A. Lovelace"}],
      "subject": {"id": 3, "title": "Analytical Engines", "brief": "AE"},
      "auditorium": {"id": 285, "name": "287"}
    },
    {
      "id": 9002,
      "startedAt": 1756716300,
      "endedAt": 1756722000,
      "numberPair": 2,
      "type": "Something new",
      "groups": [{"id": 12, "name": "KI-24-1"}],
      "teachers": [],
      "subject": {"id": 4, "title": "Difference Engines", "brief": "DE"},
      "auditorium": {"id": 286, "name": "288"}
    }
  ]
}`

type recordedRequest struct {
	path      string
	accept    string
	userAgent string
}

func givenServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, recordedRequest{
			path:      r.URL.Path,
			accept:    r.Header.Get("Accept"),
			userAgent: r.Header.Get("User-Agent"),
		})
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func respondWith(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func givenClient(t *testing.T, server *httptest.Server, options ...mindenit.Option) mindenit.Client {
	t.Helper()

	client, err := mindenit.NewClient(append([]mindenit.Option{mindenit.WithBaseURL(server.URL + "/api/")}, options...)...)
	require.NoError(t, err)

	return client
}

func Test_Timetable_NormalizesNestedEntities(t *testing.T) {
	// setup
	server, requests := givenServer(t, respondWith(http.StatusOK, groupScheduleJSON))
	client := givenClient(t, server)

	// act
	tt, err := client.Timetable(context.Background(), mindenit.GroupSource(12))

	// assert
	require.NoError(t, err)
	require.Len(t, *requests, 1)
	assert.Equal(t, "/api/groups/12/schedule", (*requests)[0].path)
	assert.Equal(t, "application/json", (*requests)[0].accept)
	assert.Equal(t, mindenit.DefaultUserAgent, (*requests)[0].userAgent)

	require.Len(t, tt.Events, 2)
	lecture := tt.Events[9001]
	assert.Equal(t, timetable.Lecture, lecture.Kind)
	assert.Equal(t, 1, lecture.NumberPair)
	assert.Equal(t, []timetable.GroupID{11, 12}, lecture.Groups.Values())
	assert.Equal(t, []timetable.TeacherID{7}, lecture.Teachers.Values())
	assert.Equal(t, timetable.SubjectID(3), lecture.Subject)
	assert.Equal(t, timetable.AuditoriumID(285), lecture.Auditorium)
	assert.Equal(t, time.Unix(1756709100, 0).UTC(), lecture.StartedAt)
	assert.Equal(t, time.Unix(1756714800, 0).UTC(), lecture.EndedAt)

	assert.Equal(t, timetable.UnknownKind, tt.Events[9002].Kind)
	assert.True(t, tt.Events[9002].Teachers.IsEmpty())

	assert.Equal(t, timetable.Group{ID: 11, Name: "KI-24-2"}, tt.Groups[11])
	assert.Equal(t, timetable.Teacher{ID: 7, FullName: "Ada Lovelace", ShortName: "A. Lovelace"}, tt.Teachers[7])
	assert.Equal(t, timetable.Subject{ID: 4, Title: "Difference Engines", Brief: "DE"}, tt.Subjects[4])
	assert.Equal(t, timetable.Auditorium{ID: 286, Name: "288"}, tt.Auditoriums[286])
}

func Test_Timetable_SourceEndpoints(t *testing.T) {
	testCases := []struct {
		name   string
		source mindenit.Source
		path   string
		str    string
	}{
		{name: "group", source: mindenit.GroupSource(1), path: "/api/groups/1/schedule", str: "group:1"},
		{name: "teacher", source: mindenit.TeacherSource(2), path: "/api/teachers/2/schedule", str: "teacher:2"},
		{name: "auditorium", source: mindenit.AuditoriumSource(3), path: "/api/auditoriums/3/schedule", str: "auditorium:3"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			server, requests := givenServer(t, respondWith(http.StatusOK, `{"data": []}`))
			client := givenClient(t, server)

			// act
			tt, err := client.Timetable(context.Background(), tc.source)

			// assert
			require.NoError(t, err)
			assert.True(t, tt.IsEmpty())
			require.Len(t, *requests, 1)
			assert.Equal(t, tc.path, (*requests)[0].path)
			assert.Equal(t, tc.str, tc.source.String())
		})
	}
}

func Test_ReferenceLists(t *testing.T) {
	// setup
	server, _ := givenServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/groups":
			respondWith(http.StatusOK, `{"data": [{"id": 1, "name": "KI-24-1", "directionId": 5, "specialityId": null}]}`)(w, r)
		case "/api/teachers", "/api/groups/1/teachers":
			respondWith(http.StatusOK, `{"data": [{"id": 7, "fullName": "Ada Lovelace", "shortName": "A. Lovelace", "departmentId": 3}]}`)(w, r)
		case "/api/groups/1/subjects":
			respondWith(http.StatusOK, `{"data": [{"id": 3, "name": "Analytical Engines", "brief": "AE"}]}`)(w, r)
		case "/api/auditoriums":
			respondWith(http.StatusOK, `{"data": [{"id": 285, "name": "287", "floor": 2, "hasPower": true, "buildingId": "main"}]}`)(w, r)
		case "/api/health":
			respondWith(http.StatusOK, `{"uptime": 12.5, "message": "OK", "date": "2025-09-01"}`)(w, r)
		default:
			http.NotFound(w, r)
		}
	})
	client := givenClient(t, server)
	ctx := context.Background()

	// act
	groups, groupsErr := client.Groups(ctx)
	teachers, teachersErr := client.Teachers(ctx)
	groupTeachers, groupTeachersErr := client.GroupTeachers(ctx, 1)
	groupSubjects, groupSubjectsErr := client.GroupSubjects(ctx, 1)
	auditoriums, auditoriumsErr := client.Auditoriums(ctx)
	health, healthErr := client.Health(ctx)

	// assert
	require.NoError(t, errors.Join(groupsErr, teachersErr, groupTeachersErr, groupSubjectsErr, auditoriumsErr, healthErr))

	assert.Equal(t, timetable.Group{ID: 1, Name: "KI-24-1", DirectionID: helper.Int64Ptr(5)}, groups[1])
	assert.Equal(t, timetable.Teacher{ID: 7, FullName: "Ada Lovelace", ShortName: "A. Lovelace", DepartmentID: helper.Int64Ptr(3)}, teachers[7])
	assert.Equal(t, teachers, groupTeachers)
	assert.Equal(t, timetable.Subject{ID: 3, Title: "Analytical Engines", Brief: "AE"}, groupSubjects[3])
	assert.Equal(t, timetable.Auditorium{ID: 285, Name: "287", Floor: helper.Int64Ptr(2), HasPower: true, BuildingID: "main"}, auditoriums[285])
	assert.Equal(t, mindenit.Health{Uptime: 12.5, Message: "OK", Date: "2025-09-01"}, health)
}

func Test_Errors(t *testing.T) {
	testCases := []struct {
		name            string
		handler         http.HandlerFunc
		wantErr         error
		wantUnavailable bool
		wantDetail      string
	}{
		{
			name:       "envelope without data reports the message",
			handler:    respondWith(http.StatusOK, `{"success": false, "error": "Not Found", "message": "Group not found", "statusCode": 404}`),
			wantErr:    mindenit.ErrBadResponse,
			wantDetail: "Group not found",
		},
		{
			name:       "envelope without data falls back to the error",
			handler:    respondWith(http.StatusOK, `{"success": false, "error": "Not Found"}`),
			wantErr:    mindenit.ErrBadResponse,
			wantDetail: "Not Found",
		},
		{
			name:       "envelope without data falls back to the status code",
			handler:    respondWith(http.StatusOK, `{"statusCode": 418}`),
			wantErr:    mindenit.ErrBadResponse,
			wantDetail: "Status code 418",
		},
		{
			name:       "empty envelope",
			handler:    respondWith(http.StatusOK, `{}`),
			wantErr:    mindenit.ErrBadResponse,
			wantDetail: "No relevant information",
		},
		{
			name:    "malformed json",
			handler: respondWith(http.StatusOK, `{"data": [`),
			wantErr: mindenit.ErrDecodingFailed,
		},
		{
			name:       "client error status",
			handler:    respondWith(http.StatusBadRequest, `{"message": "Invalid id"}`),
			wantErr:    mindenit.ErrRequestFailed,
			wantDetail: "status 400: Invalid id",
		},
		{
			name:            "server error status is retryable",
			handler:         respondWith(http.StatusBadGateway, `oops`),
			wantErr:         mindenit.ErrRequestFailed,
			wantUnavailable: true,
			wantDetail:      "status 502",
		},
		{
			name:            "rate limit is retryable",
			handler:         respondWith(http.StatusTooManyRequests, ``),
			wantErr:         mindenit.ErrRequestFailed,
			wantUnavailable: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			server, _ := givenServer(t, tc.handler)
			client := givenClient(t, server)

			// act
			_, err := client.Timetable(context.Background(), mindenit.GroupSource(1))

			// assert
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.wantUnavailable, errors.Is(err, mindenit.ErrUpstreamUnavailable))
			if tc.wantDetail != "" {
				assert.Contains(t, err.Error(), tc.wantDetail)
			}
		})
	}
}

func Test_ResponseTooLarge(t *testing.T) {
	// setup
	body := `{"data": [], "message": "` + strings.Repeat("x", 128) + `"}`
	server, _ := givenServer(t, respondWith(http.StatusOK, body))
	client := givenClient(t, server, mindenit.WithMaxBodySize(64))

	// act
	_, err := client.Timetable(context.Background(), mindenit.GroupSource(1))

	// assert
	assert.ErrorIs(t, err, mindenit.ErrResponseTooLarge)
}

func Test_TransportFailureIsRetryable(t *testing.T) {
	// setup
	server, _ := givenServer(t, respondWith(http.StatusOK, `{"data": []}`))
	client := givenClient(t, server)
	server.Close()

	// act
	_, err := client.Timetable(context.Background(), mindenit.GroupSource(1))

	// assert
	assert.ErrorIs(t, err, mindenit.ErrRequestFailed)
	assert.ErrorIs(t, err, mindenit.ErrUpstreamUnavailable)
}

func Test_CancelledContextIsNotRetryable(t *testing.T) {
	// setup
	server, _ := givenServer(t, respondWith(http.StatusOK, `{"data": []}`))
	client := givenClient(t, server)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	_, err := client.Timetable(ctx, mindenit.GroupSource(1))

	// assert
	assert.ErrorIs(t, err, mindenit.ErrRequestFailed)
	assert.NotErrorIs(t, err, mindenit.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Logging(t *testing.T) {
	// setup
	logHandlerSpy := helper.NewLogHandlerSpy(false)
	server, _ := givenServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/groups" {
			respondWith(http.StatusOK, `{"data": []}`)(w, r)
			return
		}
		respondWith(http.StatusServiceUnavailable, ``)(w, r)
	})
	client := givenClient(t, server, mindenit.WithLogger(slog.New(logHandlerSpy)))

	// act
	_, okErr := client.Groups(context.Background())
	_, failErr := client.Teachers(context.Background())

	// assert
	require.NoError(t, okErr)
	require.Error(t, failErr)
	assert.True(t, logHandlerSpy.HasDebugLogWithMessage("upstream request completed").WithDurationMS().Assert())
	assert.True(t, logHandlerSpy.HasWarnLogWithMessage("upstream request failed").WithError().Assert())
}

func Test_NewClient_Options(t *testing.T) {
	testCases := []struct {
		name    string
		option  mindenit.Option
		wantErr error
	}{
		{name: "relative base url", option: mindenit.WithBaseURL("/api"), wantErr: mindenit.ErrInvalidBaseURL},
		{name: "unsupported scheme", option: mindenit.WithBaseURL("ftp://example.org"), wantErr: mindenit.ErrInvalidBaseURL},
		{name: "nil http client", option: mindenit.WithHTTPClient(nil), wantErr: mindenit.ErrNilHTTPClient},
		{name: "zero timeout", option: mindenit.WithTimeout(0), wantErr: mindenit.ErrInvalidTimeout},
		{name: "blank user agent", option: mindenit.WithUserAgent("  "), wantErr: mindenit.ErrEmptyUserAgent},
		{name: "zero body limit", option: mindenit.WithMaxBodySize(0), wantErr: mindenit.ErrInvalidBodyLimit},
		{name: "valid base url", option: mindenit.WithBaseURL("http://localhost:8080/api/")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			client, err := mindenit.NewClient(tc.option)

			// assert
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "http://localhost:8080/api", client.BaseURL())
		})
	}
}

func Test_NewClient_DefaultsAndSharedHTTPClient(t *testing.T) {
	// setup
	shared := &http.Client{Timeout: time.Minute}

	// act
	client, err := mindenit.NewClient(mindenit.WithHTTPClient(shared), mindenit.WithTimeout(time.Second))

	// assert
	require.NoError(t, err)
	assert.Equal(t, mindenit.DefaultBaseURL, client.BaseURL())
	assert.Equal(t, time.Minute, shared.Timeout)
}

func Test_CustomUserAgent(t *testing.T) {
	// setup
	server, requests := givenServer(t, respondWith(http.StatusOK, `{"data": []}`))
	client := givenClient(t, server, mindenit.WithUserAgent("timetable-test/1.0"))

	// act
	_, err := client.Groups(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, "timetable-test/1.0", (*requests)[0].userAgent)
}
