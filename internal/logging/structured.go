// Package logging provides structured JSON logging for vidql components.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event represents a structured log event
type Event struct {
	Timestamp string                 `json:"ts"`
	Level     Level                  `json:"level"`
	Component string                 `json:"component"`
	Event     string                 `json:"event"`
	Session   string                 `json:"session,omitempty"`
	Request   string                 `json:"request,omitempty"`
	Duration  int64                  `json:"duration_ms,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

var (
	out   io.Writer = os.Stderr
	outMu sync.Mutex
)

// SetOutput redirects log output (for testing). Returns a restore func.
func SetOutput(w io.Writer) func() {
	outMu.Lock()
	prev := out
	out = w
	outMu.Unlock()
	return func() {
		outMu.Lock()
		out = prev
		outMu.Unlock()
	}
}

func emit(e Event) {
	data, _ := json.Marshal(e)
	outMu.Lock()
	fmt.Fprintln(out, string(data))
	outMu.Unlock()
}

// Logger provides structured logging
type Logger struct {
	component string
	session   string
	request   string
}

// New creates a new logger for a component
func New(component string) *Logger {
	return &Logger{component: component}
}

// WithSession sets the session context
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{
		component: l.component,
		session:   sessionID,
		request:   l.request,
	}
}

// WithRequest sets the request context
func (l *Logger) WithRequest(requestID string) *Logger {
	return &Logger{
		component: l.component,
		session:   l.session,
		request:   requestID,
	}
}

// log emits a structured log event
func (l *Logger) log(level Level, event string, extra map[string]interface{}, err error) {
	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Component: l.component,
		Event:     event,
		Session:   l.session,
		Request:   l.request,
		Extra:     extra,
	}

	if err != nil {
		e.Error = err.Error()
	}

	emit(e)
}

// Debug logs a debug event
func (l *Logger) Debug(event string, extra map[string]interface{}) {
	l.log(LevelDebug, event, extra, nil)
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]interface{}) {
	l.log(LevelInfo, event, extra, nil)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]interface{}, err error) {
	l.log(LevelWarn, event, extra, err)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]interface{}, err error) {
	l.log(LevelError, event, extra, err)
}

// TimedEvent logs an event with duration
func (l *Logger) TimedEvent(event string, start time.Time, extra map[string]interface{}) {
	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     LevelInfo,
		Component: l.component,
		Event:     event,
		Session:   l.session,
		Request:   l.request,
		Duration:  time.Since(start).Milliseconds(),
		Extra:     extra,
	}

	emit(e)
}

// QueryEvent logs a query lifecycle event with its outcome
func QueryEvent(sessionID, action string, duration time.Duration, err error) {
	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     LevelInfo,
		Component: "engine",
		Event:     "query",
		Session:   sessionID,
		Duration:  duration.Milliseconds(),
		Extra: map[string]interface{}{
			"action": action,
		},
	}

	if err != nil {
		e.Level = LevelError
		e.Error = err.Error()
	}

	emit(e)
}

// CapabilityEvent logs a capability provider call
func CapabilityEvent(capability, operation, sessionID string, duration time.Duration, err error) {
	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     LevelInfo,
		Component: "capability",
		Event:     operation,
		Session:   sessionID,
		Duration:  duration.Milliseconds(),
		Extra: map[string]interface{}{
			"capability": capability,
		},
	}

	if err != nil {
		e.Level = LevelError
		e.Error = err.Error()
	}

	emit(e)
}
