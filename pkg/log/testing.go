package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MarshalErrorKey is set on a captured entry when one of its fields could not
// be encoded as JSON. The offending values are stored as their %v form.
const MarshalErrorKey = "log.marshal_error"

// TestLogger captures log records as JSON lines for assertions in tests.
// Loggers derived with With share the parent's buffer and lock.
type TestLogger struct {
	mu     *sync.Mutex
	buffer *bytes.Buffer
	level  Level
	fields map[string]interface{}
}

// NewTestLogger returns a logger that keeps records at or above level, and the
// buffer it writes to.
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return &TestLogger{
		mu:     &sync.Mutex{},
		buffer: buffer,
		level:  level,
		fields: make(map[string]interface{}),
	}, buffer
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.log(LevelDebug, "DEBUG", msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.log(LevelInfo, "INFO", msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.log(LevelWarn, "WARN", msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.log(LevelError, "ERROR", msg, fields) }

func (t *TestLogger) With(fields ...any) Logger {
	newFields := make(map[string]interface{}, len(t.fields)+len(fields)/2)
	for k, v := range t.fields {
		newFields[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		newFields[fmt.Sprintf("%v", fields[i])] = fieldValue(fields[i+1])
	}

	t.mu.Lock()
	level := t.level
	t.mu.Unlock()

	return &TestLogger{
		mu:     t.mu,
		buffer: t.buffer,
		level:  level,
		fields: newFields,
	}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level <= level
}

func (t *TestLogger) setLevel(level Level) {
	t.mu.Lock()
	t.level = level
	t.mu.Unlock()
}

func (t *TestLogger) log(level Level, name, msg string, fields []any) {
	if !t.Enabled(context.Background(), level) {
		return
	}

	entry := map[string]interface{}{
		"level":   name,
		"message": msg,
	}
	for k, v := range t.fields {
		entry[k] = v
	}

	// A leading error value is recorded under the standard error key.
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			entry[ErrorKey] = err.Error()
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		entry[fmt.Sprintf("%v", fields[i])] = fieldValue(fields[i+1])
	}

	line, err := json.Marshal(entry)
	if err != nil {
		line = encodeLossy(entry, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffer.Write(line)
	t.buffer.WriteByte('\n')
}

func fieldValue(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

// encodeLossy re-encodes entry after replacing every value json rejects
// (NaN, ±Inf, channels, ...) with its %v form.
func encodeLossy(entry map[string]interface{}, cause error) []byte {
	for k, v := range entry {
		if _, err := json.Marshal(v); err != nil {
			entry[k] = fmt.Sprintf("%v", v)
		}
	}
	entry[MarshalErrorKey] = cause.Error()
	// Every rejected value is now a string.
	line, _ := json.Marshal(entry)
	return line
}

// GetLogEntries decodes every captured line.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	t.mu.Lock()
	raw := t.buffer.String()
	t.mu.Unlock()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any captured line contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Contains(t.buffer.String(), message)
}

// ContainsField reports whether some entry has key set to value. Numbers
// decode as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}

// TestLoggerProvider hands out loggers backed by one TestLogger.
type TestLoggerProvider struct {
	logger *TestLogger
}

// NewTestLoggerProvider returns a provider and the buffer its loggers write to.
func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *bytes.Buffer) {
	logger, buffer := NewTestLogger(level)
	return &TestLoggerProvider{logger: logger}, buffer
}

func (p *TestLoggerProvider) GetLogger() Logger {
	return p.logger
}

func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.logger.With(ComponentKey, name)
}

// SetLevel changes the level of the base logger and of loggers derived from
// it afterwards.
func (p *TestLoggerProvider) SetLevel(level Level) {
	p.logger.setLevel(level)
}
