package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/library"
)

func TestResultPlain(t *testing.T) {
	r := New(false)
	out := r.Result(domain.QueryResult{
		Response: "Transcription:\nhello world",
		Artifacts: []domain.Artifact{
			{Type: domain.ArtifactPDF, Path: "/tmp/report.pdf"},
		},
	})

	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "artifacts:")
	assert.Contains(t, out, "pdf /tmp/report.pdf")
}

func TestResultNoArtifacts(t *testing.T) {
	out := New(false).Result(domain.QueryResult{Response: "Task completed."})
	assert.Equal(t, "Task completed.\n", out)
}

func TestSessionsEmpty(t *testing.T) {
	assert.Equal(t, "No sessions found", New(false).Sessions(nil))
}

func TestSessionsPlain(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := New(false).Sessions([]domain.Session{
		{ID: "s1", VideoRef: "demo.mp4", UpdatedAt: now},
		{ID: "s2", UpdatedAt: now},
	})

	assert.Contains(t, out, "s1\t2026-03-01T12:00:00Z\tdemo.mp4")
	assert.Contains(t, out, "s2\t2026-03-01T12:00:00Z\t(no video)")
}

func TestHistoryPlain(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	out := New(false).History([]domain.Message{
		{Role: domain.RoleUser, Content: "transcribe it", Timestamp: now},
		{Role: domain.RoleAssistant, Content: "done", Timestamp: now},
	})

	assert.Contains(t, out, "[09:30:00] user: transcribe it")
	assert.Contains(t, out, "[09:30:00] assistant: done")
}

func TestVideosPlain(t *testing.T) {
	out := New(false).Videos([]library.Video{
		{Ref: "demo.mp4", Size: 2048},
	})
	assert.Contains(t, out, "demo.mp4\t2048")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512B", formatSize(512))
	assert.Equal(t, "2.0KB", formatSize(2048))
	assert.Equal(t, "1.5MB", formatSize(3<<19))
	assert.Equal(t, "1.0GB", formatSize(1<<30))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "2.5s", FormatDuration(2500*time.Millisecond))
	assert.Equal(t, "1m5s", FormatDuration(65*time.Second))
}
