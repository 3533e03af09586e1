package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cytoprof/cytoprof/pkg/errors"
)

// SourceKey records the file:line of the innermost stack frame of a logged error.
const SourceKey = "error.source"

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo)
)

func init() {
	// Route library warnings (errors.Warn) through the structured logger.
	errors.SetZerologWarnFunc(func(w error) {
		GetLoggerWithName("warnings").Warn(w.Error(), w)
	})
}

// SetProvider replaces the global provider and returns the previous one so
// callers (typically tests) can restore it.
func SetProvider(p LoggerProvider) LoggerProvider {
	providerMu.Lock()
	defer providerMu.Unlock()
	prev := provider
	provider = p
	return prev
}

// GetLogger returns the default logger of the global provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns a component logger of the global provider.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// SetLevel sets the minimum level of the global provider.
func SetLevel(level Level) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	provider.SetLevel(level)
}

// ZerologProvider is the default LoggerProvider. It writes one JSON object
// per record to the configured writer.
type ZerologProvider struct {
	mu   sync.RWMutex
	base zerolog.Logger
}

// NewZerologProvider creates a provider writing to w at the given minimum level.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	return &ZerologProvider{
		base: zerolog.New(w).With().Timestamp().Logger().Level(toZerologLevel(level)),
	}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel. Loggers handed out earlier keep
// the level they were created with.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.base.Level(toZerologLevel(level))
}

type zerologLogger struct {
	zl zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.emit(l.zl.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{zl: l.zl.With().Fields(pairs(fields)).Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	lvl := toZerologLevel(level)
	return lvl >= l.zl.GetLevel() && lvl >= zerolog.GlobalLevel()
}

func (l *zerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			l.appendError(e, err)
			fields = fields[1:]
		}
	}
	if len(fields) > 0 {
		e.Fields(pairs(fields))
	}
	e.Msg(msg)
}

// appendError writes the message of err under ErrorKey as a string. Errors
// that marshal themselves also get their detail object under ErrorTypeKey.
func (l *zerologLogger) appendError(e *zerolog.Event, err error) {
	e.Str(ErrorKey, err.Error())

	var m zerolog.LogObjectMarshaler
	if errors.As(err, &m) {
		e.Object(ErrorTypeKey, m)
	}
	if file, line, fn, ok := errors.GetOneLineSource(err); ok {
		e.Str(SourceKey, fmt.Sprintf("%s:%d %s", file, line, fn))
	}
	if l.zl.GetLevel() <= zerolog.DebugLevel {
		e.Str(StacktraceKey, fmt.Sprintf("%+v", err))
	}
	for _, hint := range errors.GetAllHints(err) {
		e.Str(SuggestionKey, hint)
		break
	}
}

// pairs normalizes alternating key-value fields so that every key is a string
// and a dangling key is dropped.
func pairs(fields []any) []interface{} {
	out := make([]interface{}, 0, len(fields))
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		out = append(out, key, fields[i+1])
	}
	return out
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
