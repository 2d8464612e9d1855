// Package logging builds the process logger from configuration.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/linerds/timetable-go/internal/config"
)

var ErrUnknownFormat = errors.New("unknown log format")
var ErrUnknownLevel = errors.New("unknown log level")

// New returns a text or JSON slog.Logger writing to w at the configured level.
func New(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	options := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, options)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, options)), nil
	default:
		return nil, errors.Join(ErrUnknownFormat, fmt.Errorf("%q", cfg.Format))
	}
}

// ParseLevel accepts debug, info, warn and error in any case. An empty level is info.
func ParseLevel(level string) (slog.Level, error) {
	if level == "" {
		return slog.LevelInfo, nil
	}

	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, errors.Join(ErrUnknownLevel, err)
	}

	return parsed, nil
}
