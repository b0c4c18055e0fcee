package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
)

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)

	// With returns a logger that adds fields to every entry.
	With(fields ...Field) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for building a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelOff disables logging entirely.
	LevelOff
)

// ParseLogLevel parses a string log level. Unknown values map to LevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "off", "none":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelOff:
		return "off"
	default:
		return "info"
	}
}

// Enabled reports whether an entry at level passes a logger configured at l.
func (l LogLevel) Enabled(level LogLevel) bool {
	return l != LevelOff && level >= l
}

// structuredLogger writes one JSON object per line. Keys appear in a fixed
// order: time, level, msg, then bound fields, then call fields. A repeated
// key keeps its first position and takes the latest value.
type structuredLogger struct {
	level LogLevel
	out   *lockedWriter
	base  []Field
	now   func() time.Time
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLogger creates a new structured logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a new structured logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &structuredLogger{
		level: ParseLogLevel(level),
		out:   &lockedWriter{w: w},
		now:   time.Now,
	}
}

// With returns a logger sharing the writer with fields attached.
func (l *structuredLogger) With(fields ...Field) Logger {
	return &structuredLogger{
		level: l.level,
		out:   l.out,
		base:  mergeFields(l.base, fields),
		now:   l.now,
	}
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *structuredLogger) log(_ context.Context, level LogLevel, msg string, fields []Field) {
	if !l.level.Enabled(level) {
		return
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	writePair(&buf, "time", l.now().UTC().Format(time.RFC3339Nano))
	buf.WriteByte(',')
	writePair(&buf, "level", level.String())
	buf.WriteByte(',')
	writePair(&buf, "msg", msg)
	for _, f := range mergeFields(l.base, fields) {
		buf.WriteByte(',')
		writePair(&buf, f.Key, f.Value)
	}
	buf.WriteString("}\n")

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	_, _ = l.out.w.Write(buf.Bytes())
}

func writePair(buf *bytes.Buffer, key string, value any) {
	k, _ := json.Marshal(key)
	v, err := json.Marshal(value)
	if err != nil {
		v, _ = json.Marshal(fmt.Sprint(value))
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
}

// reservedKeys are renamed so fields cannot overwrite the entry header.
var reservedKeys = map[string]bool{"time": true, "level": true, "msg": true}

func mergeFields(base, extra []Field) []Field {
	out := slices.Clone(base)
	for _, f := range extra {
		if reservedKeys[f.Key] {
			f.Key = "field." + f.Key
		}
		f.Value = redact(f)
		if i := slices.IndexFunc(out, func(o Field) bool { return o.Key == f.Key }); i >= 0 {
			out[i] = f
			continue
		}
		out = append(out, f)
	}
	return out
}

var signedQuery = regexp.MustCompile(`(?i)([?&](?:sig|signature)=)[^&#\s"]*`)

// redact masks sensitive keys, signatures embedded in URLs, and turns
// errors into their message.
func redact(f Field) any {
	if isRedactedField(f.Key) {
		return "[REDACTED]"
	}
	switch v := f.Value.(type) {
	case error:
		return signedQuery.ReplaceAllString(v.Error(), "${1}REDACTED")
	case string:
		return signedQuery.ReplaceAllString(v, "${1}REDACTED")
	}
	return f.Value
}

// isRedactedField returns true if the field should be redacted.
func isRedactedField(key string) bool {
	for _, k := range RedactedFields {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return noopLogger{}
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Info(ctx context.Context, msg string, fields ...Field)  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...Field)  {}
func (noopLogger) Error(ctx context.Context, msg string, fields ...Field) {}
func (noopLogger) Debug(ctx context.Context, msg string, fields ...Field) {}
func (l noopLogger) With(fields ...Field) Logger                          { return l }
