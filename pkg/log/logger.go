package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// SetupLogger installs a JSON slog default logger writing to w at the given
// level and switches the package provider to the same level.
func SetupLogger(w io.Writer, loglevel string) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}
	ops := slog.HandlerOptions{
		AddSource: level <= LevelDebug,
		Level:     slog.Level(level),
	}
	handler := slog.NewJSONHandler(w, &ops)
	slog.SetDefault(slog.New(WrapByErrFmtHandler(handler)))
	SetProvider(NewZerologProvider(w, level))
	return nil
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
