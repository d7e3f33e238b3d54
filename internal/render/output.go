// Package render provides output formatting for terminal consumption.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/library"
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
}

// New creates a new renderer. With pretty off, output is plain
// machine-friendly text.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// Result formats a completed query result.
func (r *Renderer) Result(result domain.QueryResult) string {
	var sb strings.Builder

	sb.WriteString(result.Response)
	if !strings.HasSuffix(result.Response, "\n") {
		sb.WriteString("\n")
	}

	if len(result.Artifacts) > 0 {
		if r.pretty {
			sb.WriteString(color.CyanString("\nArtifacts\n"))
			sb.WriteString(strings.Repeat("─", 40) + "\n")
		} else {
			sb.WriteString("\nartifacts:\n")
		}
		for _, a := range result.Artifacts {
			r.formatArtifact(&sb, a)
		}
	}

	return sb.String()
}

func (r *Renderer) formatArtifact(sb *strings.Builder, a domain.Artifact) {
	loc := a.Path
	if loc == "" {
		loc = "(inline)"
	}
	if r.pretty {
		fmt.Fprintf(sb, "  %s %s\n", color.GreenString(string(a.Type)), loc)
	} else {
		fmt.Fprintf(sb, "  %s %s\n", a.Type, loc)
	}
}

// Sessions formats the session list.
func (r *Renderer) Sessions(sessions []domain.Session) string {
	if len(sessions) == 0 {
		return "No sessions found"
	}

	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("Sessions\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}

	for _, s := range sessions {
		video := s.VideoRef
		if video == "" {
			video = "(no video)"
		}
		if r.pretty {
			fmt.Fprintf(&sb, "%s %s %s\n",
				color.YellowString(s.ID),
				color.HiBlackString(s.UpdatedAt.Format("2006-01-02 15:04")),
				video)
		} else {
			fmt.Fprintf(&sb, "%s\t%s\t%s\n", s.ID, s.UpdatedAt.Format(time.RFC3339), video)
		}
	}

	return sb.String()
}

// History formats a session's message history.
func (r *Renderer) History(messages []domain.Message) string {
	if len(messages) == 0 {
		return "No messages found"
	}

	var sb strings.Builder

	for _, m := range messages {
		timeStr := m.Timestamp.Format("15:04:05")
		if r.pretty {
			role := color.GreenString("you")
			if m.Role == domain.RoleAssistant {
				role = color.MagentaString("vidql")
			}
			fmt.Fprintf(&sb, "%s %s\n%s\n", color.HiBlackString(timeStr), role, m.Content)
		} else {
			fmt.Fprintf(&sb, "[%s] %s: %s\n", timeStr, m.Role, m.Content)
		}
		for _, a := range m.Artifacts {
			r.formatArtifact(&sb, a)
		}
		if r.pretty {
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// Videos formats the media library listing.
func (r *Renderer) Videos(videos []library.Video) string {
	if len(videos) == 0 {
		return "No videos found"
	}

	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("Videos\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}

	for _, v := range videos {
		if r.pretty {
			fmt.Fprintf(&sb, "  %s %s\n", v.Ref, color.HiBlackString(formatSize(v.Size)))
		} else {
			fmt.Fprintf(&sb, "%s\t%d\n", v.Ref, v.Size)
		}
	}

	return sb.String()
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%dB", n)
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
