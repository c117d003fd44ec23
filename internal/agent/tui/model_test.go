package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxflow/boxflow/internal/agent/router"
	"github.com/boxflow/boxflow/internal/agent/runner"
)

func newTestModel(t *testing.T) (*Model, *[]string) {
	t.Helper()
	var asked []string
	m := NewModel(Config{
		SessionID: "session-1234",
		ModelName: "mock:demo",
		Ask: func(input string) tea.Cmd {
			asked = append(asked, input)
			return func() tea.Msg { return nil }
		},
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, &asked
}

func typeAndSubmit(m *Model, text string) tea.Cmd {
	m.textArea.SetValue(text)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestSubmitStartsQuery(t *testing.T) {
	m, asked := newTestModel(t)

	cmd := typeAndSubmit(m, "  find the Q3 budget  ")
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"find the Q3 budget"}, *asked)
	assert.True(t, m.processing)
	assert.Empty(t, m.textArea.Value())

	// A second submit while the first is running is ignored
	typeAndSubmit(m, "another one")
	assert.Len(t, *asked, 1)
}

func TestEventsBuildTranscript(t *testing.T) {
	m, _ := newTestModel(t)
	typeAndSubmit(m, "find the Q3 budget")

	decision := router.Decide("box_search")
	for _, msg := range []tea.Msg{
		AgentActivatedMsg{Name: router.ClassifierName},
		RoutedMsg{Decision: decision},
		AgentActivatedMsg{Name: "box_Search_Agent"},
		ToolStartedMsg{Agent: "box_Search_Agent", ToolName: "box_generic_search"},
		ToolCompletedMsg{Agent: "box_Search_Agent", ToolName: "box_generic_search", Duration: 120 * time.Millisecond, Summary: "Found the following items:"},
		AgentTextMsg{Agent: "box_Search_Agent", Content: "Budget found"},
		ReplyMsg{Reply: &runner.Reply{Text: "Budget found", Decision: &decision, InputTokens: 10, OutputTokens: 5}},
	} {
		m.Update(msg)
	}

	assert.False(t, m.processing)
	require.Len(t, m.turns, 1)
	turn := m.turns[0]
	require.Len(t, turn.blocks, 2)
	assert.Equal(t, StatusCompleted, turn.blocks[0].status)
	assert.Equal(t, StatusCompleted, turn.blocks[1].status)
	require.Len(t, turn.blocks[1].tools, 1)
	assert.Equal(t, StatusCompleted, turn.blocks[1].tools[0].status)

	out := m.transcript()
	assert.Contains(t, out, "find the Q3 budget")
	assert.Contains(t, out, "routed to box_search")
	assert.Contains(t, out, "box_generic_search")
	assert.Contains(t, out, "Budget found")
	assert.Contains(t, out, "10 in / 5 out tokens")
}

func TestFallbackDecisionIsShown(t *testing.T) {
	m, _ := newTestModel(t)
	typeAndSubmit(m, "hello")

	m.Update(AgentActivatedMsg{Name: router.ClassifierName})
	m.Update(RoutedMsg{Decision: router.Decide("")})

	assert.Contains(t, m.transcript(), "routed to box_search ("+router.ReasonEmpty+")")
}

func TestErrorEndsTurn(t *testing.T) {
	m, _ := newTestModel(t)
	typeAndSubmit(m, "hello")
	m.Update(AgentActivatedMsg{Name: router.ClassifierName})
	m.Update(ErrorMsg{Err: errors.New("model unavailable")})

	assert.False(t, m.processing)
	assert.Equal(t, StatusError, m.turns[0].blocks[0].status)
	assert.Contains(t, m.transcript(), "Error: model unavailable")
}

func TestSlashCommands(t *testing.T) {
	m, asked := newTestModel(t)

	typeAndSubmit(m, "/help")
	assert.Equal(t, helpText, m.info)
	assert.Empty(t, *asked)

	typeAndSubmit(m, "question")
	m.Update(ReplyMsg{Reply: &runner.Reply{Text: "answer"}})
	require.Len(t, m.turns, 1)

	typeAndSubmit(m, "/clear")
	assert.Empty(t, m.turns)

	typeAndSubmit(m, "/bogus")
	assert.Contains(t, m.info, "Unknown command /bogus")

	cmd := typeAndSubmit(m, "/quit")
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestReplyWithoutEventsShowsText(t *testing.T) {
	m, _ := newTestModel(t)
	typeAndSubmit(m, "question")
	m.Update(ReplyMsg{Reply: &runner.Reply{Text: "plain answer"}})
	assert.Contains(t, m.transcript(), "plain answer")
}

func TestFromEvent(t *testing.T) {
	assert.Equal(t, AgentActivatedMsg{Name: "a"}, FromEvent(runner.Event{Kind: runner.EventAgentActivated, Agent: "a"}))
	assert.Equal(t, ToolCompletedMsg{Agent: "a", ToolName: "t", Summary: "first line"},
		FromEvent(runner.Event{Kind: runner.EventToolCompleted, Agent: "a", Tool: "t", Text: "first line\nsecond"}))
	assert.Nil(t, FromEvent(runner.Event{Kind: runner.EventKind(99)}))
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, "Goodbye!\n", m.View())
}
