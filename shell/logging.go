package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var ErrUnknownLogFormat = errors.New("unknown log format")

// NewLogger builds the process logger. level is one of debug, info, warn, error.
func NewLogger(level string, format string, w io.Writer) (*slog.Logger, error) {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	options := &slog.HandlerOptions{Level: slogLevel}

	switch strings.ToLower(format) {
	case LogFormatText, "":
		return slog.New(slog.NewTextHandler(w, options)), nil
	case LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, options)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLogFormat, format)
	}
}
