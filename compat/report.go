package compat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tidwall/sjson"
)

// Level is the severity of a diagnostic event.
type Level int

const (
	LevelDebug Level = iota
	LevelWarn
	LevelError
)

// String returns DEBUG, WARN or ERROR.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel is the inverse of Level.String.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "DEBUG":
		return LevelDebug, nil
	case "WARN":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// SlogLevel maps the level onto log/slog.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	}
	return slog.LevelDebug
}

// Locator identifies what a diagnostic is about: a device property or a
// machine field.
type Locator struct {
	Device   string
	Property string
	Field    string
}

// String returns the field name, or device.property.
func (l Locator) String() string {
	switch {
	case l.Field != "":
		return l.Field
	case l.Property != "":
		return l.Device + "." + l.Property
	}
	return l.Device
}

// Event is one diagnostic.
type Event struct {
	Level   Level
	Machine string
	Locator Locator
	Message string
}

// String formats the event as "machine: locator: message".
func (e Event) String() string {
	loc := e.Locator.String()
	if loc == "" {
		return fmt.Sprintf("%s: %s", e.Machine, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Machine, loc, e.Message)
}

// JSON renders the event as a single JSON object.
func (e Event) JSON() string {
	out := `{}`
	out, _ = sjson.Set(out, "level", e.Level.String())
	out, _ = sjson.Set(out, "machine", e.Machine)
	if e.Locator.Device != "" {
		out, _ = sjson.Set(out, "device", e.Locator.Device)
	}
	if e.Locator.Property != "" {
		out, _ = sjson.Set(out, "property", e.Locator.Property)
	}
	if e.Locator.Field != "" {
		out, _ = sjson.Set(out, "field", e.Locator.Field)
	}
	out, _ = sjson.Set(out, "message", e.Message)
	return out
}

// Reporter receives diagnostics. Implementations must be safe for
// concurrent use if the caller checks machines in parallel.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) { f(e) }

// MultiReporter sends each event to every reporter in order.
type MultiReporter []Reporter

// Report forwards e to each reporter.
func (m MultiReporter) Report(e Event) {
	for _, r := range m {
		r.Report(e)
	}
}

// Collector keeps every event it receives, in order.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Report appends e.
func (c *Collector) Report(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Count returns the number of events at level.
func (c *Collector) Count(level Level) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Level == level {
			n++
		}
	}
	return n
}

// SlogReporter writes events to a slog.Logger.
type SlogReporter struct {
	Logger *slog.Logger
}

// Report logs e at its slog level, using slog.Default when Logger is nil.
func (s SlogReporter) Report(e Event) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Log(context.Background(), e.Level.SlogLevel(), e.String())
}
