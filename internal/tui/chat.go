// Package tui provides the Bubble Tea interactive chat interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/oklog/ulid/v2"

	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/engine"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	artifactStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	inputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)
)

// transcript accumulates the conversation text. It is a pointer so it
// survives bubbletea model copies.
type transcript struct {
	sb strings.Builder
}

// ChatModel is the TUI model for an interactive query session.
type ChatModel struct {
	engine    *engine.Engine
	sessionID string
	videoRef  string

	busy     bool
	quitting bool
	ready    bool
	progress string

	updates <-chan domain.StreamUpdate
	log     *transcript

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	width    int
	height   int
}

type (
	streamUpdateMsg domain.StreamUpdate
	streamClosedMsg struct{}
)

// NewChat creates a chat model bound to one engine session.
func NewChat(eng *engine.Engine, videoRef string) ChatModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textarea.New()
	ti.Placeholder = "Ask about the video... (Enter to send)"
	ti.CharLimit = 2000
	ti.SetWidth(80)
	ti.SetHeight(2)
	ti.Focus()

	return ChatModel{
		engine:    eng,
		sessionID: ulid.Make().String(),
		videoRef:  videoRef,
		log:       &transcript{},
		spinner:   s,
		input:     ti,
	}
}

func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func waitForUpdate(updates <-chan domain.StreamUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return streamClosedMsg{}
		}
		return streamUpdateMsg(u)
	}
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				return m, nil
			}
			m.input.Reset()
			m.appendLine(userStyle.Render("you") + " " + query)
			m.busy = true
			m.progress = "Working..."
			m.updates = m.engine.StreamQuery(context.Background(), m.sessionID, query, m.videoRef)
			return m, tea.Batch(waitForUpdate(m.updates), m.spinner.Tick)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inputHeight := 4
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight-3)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight - 3
		}
		m.input.SetWidth(msg.Width - 4)
		m.refresh()

	case streamUpdateMsg:
		u := domain.StreamUpdate(msg)
		if u.Final {
			m.progress = ""
			m.appendLine(assistantStyle.Render(u.Text))
			for _, a := range u.Artifacts {
				if a.Path != "" {
					m.appendLine(artifactStyle.Render(fmt.Sprintf("  → %s (%s)", a.Path, a.Type)))
				}
			}
			m.appendLine("")
		} else {
			m.progress = u.Text
		}
		return m, waitForUpdate(m.updates)

	case streamClosedMsg:
		m.busy = false
		m.progress = ""
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy {
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *ChatModel) appendLine(line string) {
	m.log.sb.WriteString(line + "\n")
	m.refresh()
}

func (m *ChatModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.log.sb.String())
	m.viewport.GotoBottom()
}

func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "starting..."
	}

	title := titleStyle.Render("vidql")
	if m.videoRef != "" {
		title += progressStyle.Render(" " + m.videoRef)
	}

	status := statusStyle.Render("session " + m.sessionID)
	if m.busy {
		text := m.progress
		if text == "" {
			text = "Working..."
		}
		status = m.spinner.View() + " " + progressStyle.Render(text)
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		title,
		m.viewport.View(),
		status,
		inputBorderStyle.Render(m.input.View()),
	)
}

// RunChat starts the interactive chat loop and blocks until exit.
func RunChat(eng *engine.Engine, videoRef string) error {
	p := tea.NewProgram(NewChat(eng, videoRef), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
