package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const helpText = "Commands: /help, /clear, /quit. Enter sends, Esc quits, mouse wheel scrolls."

// submitMsg submits input as if it had been typed.
type submitMsg struct {
	input string
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.WindowSize(), textarea.Blink}
	if prompt := strings.TrimSpace(m.config.InitialPrompt); prompt != "" {
		cmds = append(cmds, func() tea.Msg { return submitMsg{input: prompt} })
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.processing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateViewport()
		return m, cmd

	case submitMsg:
		return m, m.submit(msg.input)

	case AgentActivatedMsg:
		m.current().block(msg.Name)

	case RoutedMsg:
		d := msg.Decision
		m.current().decision = &d

	case ToolStartedMsg:
		b := m.current().block(msg.Agent)
		b.tools = append(b.tools, toolCall{name: msg.ToolName, status: StatusActive, started: time.Now()})

	case ToolCompletedMsg:
		b := m.current().block(msg.Agent)
		for i := range b.tools {
			if b.tools[i].name == msg.ToolName && b.tools[i].status == StatusActive {
				b.tools[i].status = StatusCompleted
				b.tools[i].duration = msg.Duration
				b.tools[i].summary = msg.Summary
				break
			}
		}

	case AgentTextMsg:
		b := m.current().block(msg.Agent)
		b.texts = append(b.texts, msg.Content)

	case ReplyMsg:
		t := m.current()
		t.reply = msg.Reply
		if t.decision == nil && msg.Reply != nil {
			t.decision = msg.Reply.Decision
		}
		t.finish(nil)
		m.processing = false

	case ErrorMsg:
		m.current().finish(msg.Err)
		m.processing = false

	default:
		var cmd tea.Cmd
		m.textArea, cmd = m.textArea.Update(msg)
		return m, cmd
	}

	m.updateViewport()
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "enter":
		if m.processing {
			return m, nil
		}
		value := m.textArea.Value()
		m.textArea.Reset()
		return m, m.submit(value)
	}

	var cmd tea.Cmd
	m.textArea, cmd = m.textArea.Update(msg)
	return m, cmd
}

// submit handles slash commands locally and sends everything else to the agents.
func (m *Model) submit(input string) tea.Cmd {
	input = strings.TrimSpace(input)
	if input == "" || m.processing {
		return nil
	}
	m.info = ""

	if strings.HasPrefix(input, "/") {
		switch strings.Fields(input)[0] {
		case "/quit", "/exit":
			m.quitting = true
			return tea.Quit
		case "/clear":
			m.turns = nil
		case "/help":
			m.info = helpText
		default:
			m.info = "Unknown command " + input + ". " + helpText
		}
		m.updateViewport()
		return nil
	}

	m.turns = append(m.turns, &turn{query: input})
	m.processing = true
	m.updateViewport()

	if m.config.Ask == nil {
		return nil
	}
	return tea.Batch(m.config.Ask(input), m.spinner.Tick)
}

func (m *Model) resize(msg tea.WindowSizeMsg) {
	if m.ready && msg.Width == m.width && msg.Height == m.height {
		return
	}
	m.ready = true
	widthChanged := msg.Width != m.width
	m.width = msg.Width
	m.height = msg.Height
	m.textArea.SetWidth(msg.Width - 4)

	if widthChanged && msg.Width > 20 {
		m.mdRenderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(msg.Width-8),
		)
	}

	// header, two separators, input and help
	viewportHeight := msg.Height - 7 - m.textArea.Height()
	if viewportHeight < 3 {
		viewportHeight = 3
	}
	m.viewport.Width = msg.Width - 2
	m.viewport.Height = viewportHeight
	m.updateViewport()
}
