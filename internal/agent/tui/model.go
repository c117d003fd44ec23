package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/boxflow/boxflow/internal/agent/router"
	"github.com/boxflow/boxflow/internal/agent/runner"
)

const (
	iconActive  = "●"
	iconSuccess = "✓"
	iconError   = "✗"
	iconRoute   = "◆"
)

// AskFunc starts a query. The returned command must eventually produce a
// ReplyMsg or an ErrorMsg.
type AskFunc func(input string) tea.Cmd

// Config configures the chat model.
type Config struct {
	SessionID string
	ModelName string

	// InitialPrompt is submitted as soon as the UI starts
	InitialPrompt string

	Ask AskFunc
}

type toolCall struct {
	name     string
	status   Status
	started  time.Time
	duration time.Duration
	summary  string
}

type agentBlock struct {
	name   string
	status Status
	tools  []toolCall
	texts  []string
}

// turn is one query and everything the agents did for it.
type turn struct {
	query    string
	decision *router.Decision
	blocks   []agentBlock
	reply    *runner.Reply
	err      error
}

func (t *turn) block(name string) *agentBlock {
	for i := range t.blocks {
		if t.blocks[i].name == name {
			return &t.blocks[i]
		}
	}
	// The previous agent is done once another one speaks
	for i := range t.blocks {
		if t.blocks[i].status == StatusActive {
			t.blocks[i].status = StatusCompleted
		}
	}
	t.blocks = append(t.blocks, agentBlock{name: name, status: StatusActive})
	return &t.blocks[len(t.blocks)-1]
}

func (t *turn) finish(err error) {
	t.err = err
	status := StatusCompleted
	if err != nil {
		status = StatusError
	}
	for i := range t.blocks {
		if t.blocks[i].status == StatusActive {
			t.blocks[i].status = status
		}
	}
}

// Model is the Bubble Tea model of the chat.
type Model struct {
	width  int
	height int

	turns []*turn
	info  string

	textArea   textarea.Model
	viewport   viewport.Model
	spinner    spinner.Model
	mdRenderer *glamour.TermRenderer

	config Config

	ready      bool
	quitting   bool
	processing bool
}

// NewModel creates the chat model.
func NewModel(cfg Config) *Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your Box content..."
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetWidth(80)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "  "
	})
	ta.FocusedStyle.Prompt = inputPromptStyle
	ta.BlurredStyle.Prompt = inputPromptStyle
	// enter submits
	ta.KeyMap.InsertNewline.SetKeys("shift+enter")

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = toolStyle

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	mdRenderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)

	return &Model{
		textArea:   ta,
		viewport:   vp,
		spinner:    s,
		mdRenderer: mdRenderer,
		config:     cfg,
	}
}

func (m *Model) current() *turn {
	if len(m.turns) == 0 {
		m.turns = append(m.turns, &turn{})
	}
	return m.turns[len(m.turns)-1]
}

// updateViewport re-renders the transcript and scrolls to the bottom.
func (m *Model) updateViewport() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m *Model) transcript() string {
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString(separatorStyle.Render(strings.Repeat("─", m.separatorWidth())))
			b.WriteString("\n\n")
		}
		m.renderTurn(&b, t)
	}
	if m.info != "" {
		b.WriteString(infoStyle.Render(m.info))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderTurn(b *strings.Builder, t *turn) {
	b.WriteString(userLabelStyle.Render("You: "))
	b.WriteString(userMessageStyle.Render(t.query))
	b.WriteString("\n\n")

	hasText := false
	for _, block := range t.blocks {
		b.WriteString(m.statusIcon(block.status))
		b.WriteString(" ")
		b.WriteString(agentNameStyle.Render(block.name))
		b.WriteString("\n")

		if block.name == router.ClassifierName && t.decision != nil {
			b.WriteString("  ")
			b.WriteString(renderDecision(*t.decision))
			b.WriteString("\n")
		}

		for _, tc := range block.tools {
			b.WriteString("  ")
			b.WriteString(m.statusIcon(tc.status))
			b.WriteString(" ")
			b.WriteString(toolStyle.Render(tc.name))
			if tc.status != StatusActive {
				b.WriteString(toolSummaryStyle.Render(fmt.Sprintf(" (%s)", tc.duration.Round(time.Millisecond))))
			}
			if tc.summary != "" {
				b.WriteString(toolSummaryStyle.Render(" - " + tc.summary))
			}
			b.WriteString("\n")
		}

		for _, text := range block.texts {
			hasText = true
			b.WriteString(m.renderMarkdown(text))
		}
		b.WriteString("\n")
	}

	if !hasText && t.reply != nil && t.reply.Text != "" {
		b.WriteString(m.renderMarkdown(t.reply.Text))
		b.WriteString("\n")
	}

	if t.err != nil {
		b.WriteString(errorStyle.Render("Error: " + t.err.Error()))
		b.WriteString("\n\n")
	}

	if t.reply != nil {
		b.WriteString(toolSummaryStyle.Render(fmt.Sprintf("%s · %d in / %d out tokens",
			t.reply.Duration.Round(time.Millisecond), t.reply.InputTokens, t.reply.OutputTokens)))
		b.WriteString("\n\n")
	}
}

func renderDecision(d router.Decision) string {
	if d.Fallback {
		return fallbackStyle.Render(fmt.Sprintf("%s routed to %s (%s)", iconRoute, d.Route, d.Reason))
	}
	return routeStyle.Render(fmt.Sprintf("%s routed to %s", iconRoute, d.Route))
}

func (m *Model) statusIcon(s Status) string {
	switch s {
	case StatusCompleted:
		return routeStyle.Render(iconSuccess)
	case StatusError:
		return errorStyle.Render(iconError)
	default:
		if m.processing {
			return m.spinner.View()
		}
		return iconActive
	}
}

func (m *Model) renderMarkdown(content string) string {
	if m.mdRenderer == nil {
		return content + "\n"
	}
	rendered, err := m.mdRenderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}

func (m *Model) separatorWidth() int {
	if m.width > 4 {
		return m.width - 4
	}
	return 76
}
