package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	gwrerrors "github.com/YuminosukeSato/gwr/pkg/errors"
)

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo)
)

func init() {
	gwrerrors.SetZerologWarnFunc(func(w error) {
		GetLoggerWithName("warnings").Warn(w.Error(), "warning", w)
	})
}

// SetProvider replaces the package-wide provider. Loggers obtained earlier
// keep writing to the old provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	provider = p
}

// GetLogger returns the default logger of the current provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns a logger of the current provider tagged with name.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// ZerologProvider is the default LoggerProvider. It writes JSON lines through
// zerolog.
type ZerologProvider struct {
	mu   sync.RWMutex
	base zerolog.Logger
}

// NewZerologProvider creates a provider writing to w at the given level.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	return &ZerologProvider{
		base: zerolog.New(w).With().Timestamp().Logger().Level(toZerologLevel(level)),
	}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{logger: p.base}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{logger: p.base.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.base.Level(toZerologLevel(level))
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

type zerologLogger struct {
	logger zerolog.Logger
}

func (z *zerologLogger) Debug(msg string, fields ...any) {
	emit(z.logger.Debug(), msg, fields)
}

func (z *zerologLogger) Info(msg string, fields ...any) {
	emit(z.logger.Info(), msg, fields)
}

func (z *zerologLogger) Warn(msg string, fields ...any) {
	emit(z.logger.Warn(), msg, fields)
}

func (z *zerologLogger) Error(msg string, fields ...any) {
	emit(z.logger.Error(), msg, fields)
}

func (z *zerologLogger) With(fields ...any) Logger {
	ctx := z.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fields[i+1])
	}
	return &zerologLogger{logger: ctx.Logger()}
}

func (z *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= z.logger.GetLevel()
}

// emit appends key-value fields to e. Errors carrying a zerolog marshaler
// are expanded into an object next to the message.
func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			e.AnErr(key, v)
			var m zerolog.LogObjectMarshaler
			if errors.As(v, &m) {
				e.Object(key+"_detail", m)
			}
		case zerolog.LogObjectMarshaler:
			e.Object(key, v)
		default:
			e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
