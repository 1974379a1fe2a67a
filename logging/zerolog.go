// Package logging wires the logiface structured logging facade to a zerolog
// backend.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

type (
	// Event is a logiface event backed by a zerolog event.
	Event struct {
		Z   *zerolog.Event
		lvl logiface.Level
		msg string
		//lint:ignore U1000 embedded for it's methods
		unimplementedEvent
	}

	//lint:ignore U1000 used to embed without exporting
	unimplementedEvent = logiface.UnimplementedEvent

	// Backend implements the logiface event factory and writer on top of a
	// zerolog.Logger.
	Backend struct {
		Z zerolog.Logger
	}
)

var (
	// compile time assertions

	_ logiface.Event               = (*Event)(nil)
	_ logiface.EventFactory[*Event] = (*Backend)(nil)
	_ logiface.Writer[*Event]       = (*Backend)(nil)
)

func (x *Event) Level() logiface.Level {
	if x != nil {
		return x.lvl
	}
	return logiface.LevelDisabled
}

func (x *Event) AddField(key string, val any) {
	x.Z.Interface(key, val)
}

func (x *Event) AddMessage(msg string) bool {
	x.msg = msg
	return true
}

func (x *Event) AddError(err error) bool {
	x.Z.Err(err)
	return true
}

func (x *Event) AddString(key string, val string) bool {
	x.Z.Str(key, val)
	return true
}

func (x *Event) AddInt(key string, val int) bool {
	x.Z.Int(key, val)
	return true
}

func (x *Event) AddInt64(key string, val int64) bool {
	x.Z.Int64(key, val)
	return true
}

func (x *Event) AddBool(key string, val bool) bool {
	x.Z.Bool(key, val)
	return true
}

func (x *Event) AddDuration(key string, val time.Duration) bool {
	x.Z.Dur(key, val)
	return true
}

func (x *Event) AddTime(key string, val time.Time) bool {
	x.Z.Time(key, val)
	return true
}

func (x *Backend) NewEvent(level logiface.Level) *Event {
	if !level.Enabled() {
		return nil
	}
	r := Event{
		lvl: level,
	}
	switch level {
	case logiface.LevelTrace:
		r.Z = x.Z.Trace()
	case logiface.LevelDebug:
		r.Z = x.Z.Debug()
	case logiface.LevelInformational:
		r.Z = x.Z.Info()
	case logiface.LevelNotice, logiface.LevelWarning:
		r.Z = x.Z.Warn()
	case logiface.LevelError:
		r.Z = x.Z.Error()
	case logiface.LevelCritical, logiface.LevelAlert, logiface.LevelEmergency:
		// WithLevel instead of Fatal/Panic, a log line must never exit the process
		r.Z = x.Z.WithLevel(zerolog.FatalLevel)
	default:
		r.Z = x.Z.WithLevel(zerolog.Level(7 - level))
	}
	// r.Z is nil when zerolog's global level filters the event; zerolog
	// event methods are nil safe and Write reports it as disabled.
	return &r
}

func (x *Backend) Write(event *Event) error {
	if event == nil || event.Z == nil {
		return logiface.ErrDisabled
	}
	event.Z.Msg(event.msg)
	return nil
}

// New builds a logiface logger writing JSON lines to w via zerolog.
// A nil w writes to os.Stderr.
func New(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	if w == nil {
		w = os.Stderr
	}
	b := &Backend{Z: zerolog.New(w).With().Timestamp().Logger()}
	return logiface.New[*Event](
		logiface.WithEventFactory[*Event](b),
		logiface.WithWriter[*Event](b),
		logiface.WithLevel[*Event](level),
	).Logger()
}

// NewConsole is New with zerolog's human readable console writer.
func NewConsole(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	if w == nil {
		w = os.Stderr
	}
	return New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}, level)
}
