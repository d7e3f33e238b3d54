// Package testutil provides common test helpers and utilities.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okabe/vidql/internal/domain"
	"github.com/stretchr/testify/require"
)

// TempDir creates a temporary directory and returns its path.
// The directory is automatically cleaned up when the test ends.
func TempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// WriteFile creates a file with the given content in the specified directory.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// SetEnv sets an environment variable and returns a cleanup function.
func SetEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

// MockInvoker simulates a capability provider for testing.
type MockInvoker struct {
	CapName string
	Result  map[string]any
	Err     error
	Delay   time.Duration

	// Results maps operation name to a payload, overriding Result.
	Results map[string]map[string]any

	// Errs maps operation name to an error, overriding Err.
	Errs map[string]error

	OnInvoke func(operation string, params map[string]any)

	mu    sync.Mutex
	calls []InvokeCall
}

// InvokeCall records one Invoke for later assertions.
type InvokeCall struct {
	Operation string
	Params    map[string]any
}

// NewMockInvoker creates a mock capability with a default result.
func NewMockInvoker(name string) *MockInvoker {
	return &MockInvoker{CapName: name}
}

// WithResult sets the default success payload.
func (m *MockInvoker) WithResult(result map[string]any) *MockInvoker {
	m.Result = result
	return m
}

// WithOpResult sets a payload for one operation.
func (m *MockInvoker) WithOpResult(operation string, result map[string]any) *MockInvoker {
	if m.Results == nil {
		m.Results = make(map[string]map[string]any)
	}
	m.Results[operation] = result
	return m
}

// WithError makes every Invoke fail.
func (m *MockInvoker) WithError(err error) *MockInvoker {
	m.Err = err
	return m
}

// WithOpError makes one operation fail.
func (m *MockInvoker) WithOpError(operation string, err error) *MockInvoker {
	if m.Errs == nil {
		m.Errs = make(map[string]error)
	}
	m.Errs[operation] = err
	return m
}

func (m *MockInvoker) Name() string { return m.CapName }

func (m *MockInvoker) Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	m.mu.Lock()
	m.calls = append(m.calls, InvokeCall{Operation: operation, Params: params})
	m.mu.Unlock()

	if m.OnInvoke != nil {
		m.OnInvoke(operation, params)
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := m.Errs[operation]; ok {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if result, ok := m.Results[operation]; ok {
		return result, nil
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return map[string]any{}, nil
}

// Calls returns a copy of recorded invocations.
func (m *MockInvoker) Calls() []InvokeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]InvokeCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of invocations.
func (m *MockInvoker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MockLanguage simulates the language capability, returning scripted
// completion texts in order.
type MockLanguage struct {
	*MockInvoker
	texts []string
	idx   int
	tmu   sync.Mutex
}

// NewMockLanguage creates a language mock that replies with texts in
// sequence, repeating the last one when exhausted.
func NewMockLanguage(texts ...string) *MockLanguage {
	m := &MockLanguage{
		MockInvoker: NewMockInvoker("language"),
		texts:       texts,
	}
	return m
}

func (m *MockLanguage) Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	if _, err := m.MockInvoker.Invoke(ctx, operation, params); err != nil {
		return nil, err
	}

	m.tmu.Lock()
	defer m.tmu.Unlock()
	if len(m.texts) == 0 {
		return map[string]any{"text": ""}, nil
	}
	text := m.texts[m.idx]
	if m.idx < len(m.texts)-1 {
		m.idx++
	}
	return map[string]any{"text": text}, nil
}

// TranscriptionResult builds a transcription success payload.
func TranscriptionResult(text string) map[string]any {
	return map[string]any{
		"transcription": text,
		"segments": []any{
			map[string]any{"start": 0.0, "end": 2.5, "text": text},
		},
		"language": "en",
	}
}

// VisionDetectResult builds a detection payload with the given object
// classes spread over one frame each.
func VisionDetectResult(classes ...string) map[string]any {
	frames := make([]any, 0, len(classes))
	for i, class := range classes {
		frames = append(frames, map[string]any{
			"frame_number": i,
			"timestamp":    float64(i),
			"objects": []any{
				map[string]any{"class": class, "confidence": 0.9, "bbox": []any{0.0, 0.0, 1.0, 1.0}},
			},
		})
	}
	return map[string]any{
		"frames_analyzed": len(classes),
		"results":         frames,
	}
}

// VisionDescribeResult builds a captioning payload.
func VisionDescribeResult(captions ...string) map[string]any {
	frames := make([]any, 0, len(captions))
	for i, caption := range captions {
		frames = append(frames, map[string]any{
			"frame_number": i,
			"timestamp":    float64(i),
			"caption":      caption,
		})
	}
	return map[string]any{
		"frames_analyzed": len(captions),
		"results":         frames,
	}
}

// GenerationResult builds a document generation payload.
func GenerationResult(path string) map[string]any {
	return map[string]any{
		"status":      "success",
		"output_path": path,
		"size":        1024,
	}
}

// CollectUpdates drains a stream and splits progress from the terminal
// update. Fails the test if no terminal update arrives.
func CollectUpdates(t *testing.T, updates <-chan domain.StreamUpdate) (progress []domain.StreamUpdate, final domain.StreamUpdate) {
	t.Helper()

	gotFinal := false
	for u := range updates {
		if u.Final {
			require.False(t, gotFinal, "more than one terminal update")
			gotFinal = true
			final = u
			continue
		}
		progress = append(progress, u)
	}
	require.True(t, gotFinal, "stream closed without terminal update")
	return progress, final
}
