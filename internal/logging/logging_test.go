package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerCreation(t *testing.T) {
	logger := New("test-component")

	if logger.component != "test-component" {
		t.Errorf("expected component 'test-component', got '%s'", logger.component)
	}
}

func TestLoggerWithSession(t *testing.T) {
	logger := New("component").WithSession("sess-1")

	if logger.session != "sess-1" {
		t.Errorf("expected session 'sess-1', got '%s'", logger.session)
	}
}

func TestLoggerWithRequest(t *testing.T) {
	logger := New("component").WithRequest("req-5")

	if logger.request != "req-5" {
		t.Errorf("expected request 'req-5', got '%s'", logger.request)
	}
}

func TestEventSerialization(t *testing.T) {
	event := Event{
		Timestamp: "2024-01-01T00:00:00Z",
		Level:     LevelInfo,
		Component: "test",
		Event:     "test_event",
		Session:   "sess-1",
		Duration:  100,
		Extra: map[string]interface{}{
			"key": "value",
		},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}

	s := string(data)
	for _, want := range []string{`"ts":"2024-01-01T00:00:00Z"`, `"level":"info"`, `"session":"sess-1"`, `"duration_ms":100`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}

	if strings.Contains(s, `"error"`) {
		t.Errorf("empty error should be omitted, got %s", s)
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	logger := New("engine").WithSession("sess-9")
	logger.Info("query_received", map[string]interface{}{"action": "transcribe"})

	var got Event
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if got.Component != "engine" {
		t.Errorf("expected component 'engine', got '%s'", got.Component)
	}
	if got.Session != "sess-9" {
		t.Errorf("expected session 'sess-9', got '%s'", got.Session)
	}
	if got.Event != "query_received" {
		t.Errorf("expected event 'query_received', got '%s'", got.Event)
	}
	if got.Extra["action"] != "transcribe" {
		t.Errorf("expected extra action 'transcribe', got %v", got.Extra["action"])
	}
}

func TestLoggerError(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	logger := New("dispatch")
	logger.Error("action_failed", nil, errors.New("provider unavailable"))

	var got Event
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if got.Level != LevelError {
		t.Errorf("expected error level, got '%s'", got.Level)
	}
	if got.Error != "provider unavailable" {
		t.Errorf("expected error message, got '%s'", got.Error)
	}
}

func TestTimedEvent(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	logger := New("capability")
	start := time.Now().Add(-50 * time.Millisecond)
	logger.TimedEvent("transcribe_done", start, nil)

	var got Event
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if got.Duration < 50 {
		t.Errorf("expected duration >= 50ms, got %d", got.Duration)
	}
}

func TestQueryEvent(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	QueryEvent("sess-3", "summarize", 20*time.Millisecond, nil)

	var got Event
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if got.Component != "engine" || got.Event != "query" {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.Extra["action"] != "summarize" {
		t.Errorf("expected action 'summarize', got %v", got.Extra["action"])
	}
}

func TestCapabilityEventError(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	CapabilityEvent("vision", "detect_objects", "sess-3", time.Millisecond, errors.New("timeout"))

	var got Event
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if got.Level != LevelError {
		t.Errorf("expected error level on failed call, got '%s'", got.Level)
	}
	if got.Extra["capability"] != "vision" {
		t.Errorf("expected capability 'vision', got %v", got.Extra["capability"])
	}
}
