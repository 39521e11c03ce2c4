package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
)

// Entry is one captured record. Numbers are float64 and errors their
// message, as after a JSON round trip.
type Entry map[string]any

// Level returns the upper-case level name of the record.
func (e Entry) Level() string {
	s, _ := e["level"].(string)
	return s
}

// Message returns the record message.
func (e Entry) Message() string {
	s, _ := e["message"].(string)
	return s
}

// TestLogger captures records in memory as JSON lines so tests can assert
// on what a component logged. Loggers derived with With share the capture.
type TestLogger struct {
	sink   *capture
	fields []any
}

type capture struct {
	mu     sync.Mutex
	buffer *bytes.Buffer
	level  Level
}

func (c *capture) enabled(level Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level <= level
}

// NewTestLogger returns a logger capturing records at level and above, and
// the buffer receiving them.
//
//	logger, _ := log.NewTestLogger(log.LevelDebug)
//	cfg.Logger = logger
//	...
//	e, ok := logger.FindEntry("Run completed.")
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return &TestLogger{sink: &capture{buffer: buffer, level: level}}, buffer
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.log(LevelDebug, "DEBUG", msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.log(LevelInfo, "INFO", msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.log(LevelWarn, "WARN", msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.log(LevelError, "ERROR", msg, fields) }

// With returns a logger that adds fields to every record.
func (t *TestLogger) With(fields ...any) Logger {
	return &TestLogger{
		sink:   t.sink,
		fields: append(append([]any(nil), t.fields...), fields...),
	}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return t.sink.enabled(level)
}

func (t *TestLogger) log(level Level, name, msg string, fields []any) {
	if !t.sink.enabled(level) {
		return
	}
	entry := Entry{"level": name, "message": msg}
	for _, kv := range [][]any{t.fields, fields} {
		for i := 0; i+1 < len(kv); i += 2 {
			v := kv[i+1]
			switch x := v.(type) {
			case error:
				v = x.Error()
			case float64:
				if math.IsNaN(x) || math.IsInf(x, 0) {
					v = fmt.Sprint(x)
				}
			}
			entry[fmt.Sprint(kv[i])] = v
		}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		line, _ = json.Marshal(Entry{"level": name, "message": msg, ErrAttrKey: err.Error()})
	}
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.buffer.Write(append(line, '\n'))
}

// Entries parses every captured record in the order they were logged.
func (t *TestLogger) Entries() ([]Entry, error) {
	t.sink.mu.Lock()
	raw := t.sink.buffer.String()
	t.sink.mu.Unlock()

	var entries []Entry
	for _, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FindEntry returns the first record whose message equals message.
func (t *TestLogger) FindEntry(message string) (Entry, bool) {
	entries, err := t.Entries()
	if err != nil {
		return nil, false
	}
	for _, e := range entries {
		if e.Message() == message {
			return e, true
		}
	}
	return nil, false
}

// ContainsMessage reports whether a record with exactly this message was logged.
func (t *TestLogger) ContainsMessage(message string) bool {
	_, ok := t.FindEntry(message)
	return ok
}

// ContainsField reports whether any record carries key with value. Numbers
// compare as float64.
func (t *TestLogger) ContainsField(key string, value any) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if v, ok := e[key]; ok && v == value {
			return true
		}
	}
	return false
}

// TestLoggerProvider is a LoggerProvider whose loggers all write to one
// TestLogger. Named loggers carry ComponentKey like the zerolog provider.
type TestLoggerProvider struct {
	logger *TestLogger
}

// NewTestLoggerProvider returns a provider capturing records at level and
// above, and the buffer receiving them.
func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *bytes.Buffer) {
	logger, buffer := NewTestLogger(level)
	return &TestLoggerProvider{logger: logger}, buffer
}

func (p *TestLoggerProvider) GetLogger() Logger { return p.logger }

func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.logger.With(ComponentKey, name)
}

func (p *TestLoggerProvider) SetLevel(level Level) {
	p.logger.sink.mu.Lock()
	defer p.logger.sink.mu.Unlock()
	p.logger.sink.level = level
}
