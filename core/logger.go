package core

import (
	"os"
	"time"

	"github.com/Swind/go-threadobject/logging"
	"github.com/joeycumines/logiface"
)

// Logger interface for structured logging
// Implementations can provide custom logging behavior; NewLogifaceLogger
// adapts any logiface backend.
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// LogifaceLogger forwards to a logiface logger.
type LogifaceLogger struct {
	l *logiface.Logger[logiface.Event]
}

var _ Logger = (*LogifaceLogger)(nil)

// NewLogifaceLogger wraps l. A nil l discards everything.
func NewLogifaceLogger(l *logiface.Logger[logiface.Event]) *LogifaceLogger {
	return &LogifaceLogger{l: l}
}

// NewDefaultLogger logs info and above as JSON lines on stderr.
func NewDefaultLogger() *LogifaceLogger {
	return NewLogifaceLogger(logging.New(os.Stderr, logiface.LevelInformational))
}

func (x *LogifaceLogger) Debug(msg string, fields ...Field) { emit(x.l.Debug(), msg, fields) }
func (x *LogifaceLogger) Info(msg string, fields ...Field)  { emit(x.l.Info(), msg, fields) }
func (x *LogifaceLogger) Warn(msg string, fields ...Field)  { emit(x.l.Warning(), msg, fields) }
func (x *LogifaceLogger) Error(msg string, fields ...Field) { emit(x.l.Err(), msg, fields) }

func emit(b *logiface.Builder[logiface.Event], msg string, fields []Field) {
	if !b.Enabled() {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			if f.Key == "error" {
				b = b.Err(v)
			} else {
				b = b.Str(f.Key, v.Error())
			}
		case string:
			b = b.Str(f.Key, v)
		case int:
			b = b.Int(f.Key, v)
		case int64:
			b = b.Int64(f.Key, v)
		case bool:
			b = b.Bool(f.Key, v)
		case time.Duration:
			b = b.Dur(f.Key, v)
		case time.Time:
			b = b.Time(f.Key, v)
		default:
			b = b.Field(f.Key, v)
		}
	}
	b.Log(msg)
}

// NoOpLogger is a logger that discards all log messages
// Useful for tests or when logging is not desired
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
