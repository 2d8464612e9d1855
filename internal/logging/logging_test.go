package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linerds/timetable-go/internal/config"
	"github.com/linerds/timetable-go/internal/logging"
)

func Test_New_JSON(t *testing.T) {
	// setup
	var buf bytes.Buffer
	logger, err := logging.New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	// act
	logger.Info("dropped")
	logger.Warn("kept", "event_count", 3)

	// assert
	var record map[string]any
	require.NoError(t, jsoniter.ConfigFastest.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "WARN", record["level"])
	assert.EqualValues(t, 3, record["event_count"])
}

func Test_New_Text(t *testing.T) {
	// setup
	var buf bytes.Buffer
	logger, err := logging.New(config.LogConfig{Level: "debug", Format: "text"}, &buf)
	require.NoError(t, err)

	// act
	logger.Debug("executed sql for: resolve", "query", "SELECT 1")

	// assert
	assert.Contains(t, buf.String(), `msg="executed sql for: resolve"`)
	assert.Contains(t, buf.String(), `query="SELECT 1"`)
}

func Test_New_Errors(t *testing.T) {
	_, formatErr := logging.New(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	_, levelErr := logging.New(config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{})

	assert.ErrorIs(t, formatErr, logging.ErrUnknownFormat)
	assert.ErrorIs(t, levelErr, logging.ErrUnknownLevel)
}

func Test_ParseLevel(t *testing.T) {
	testCases := []struct {
		input string
		want  slog.Level
	}{
		{input: "", want: slog.LevelInfo},
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			level, err := logging.ParseLevel(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, level)
		})
	}
}
