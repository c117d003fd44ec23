// Package tui provides the interactive terminal chat for the Box agents
// using Bubble Tea.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/boxflow/boxflow/internal/agent/router"
	"github.com/boxflow/boxflow/internal/agent/runner"
)

// Status represents the current state of an agent or tool.
type Status int

const (
	StatusActive Status = iota
	StatusCompleted
	StatusError
)

// AgentActivatedMsg is sent when an agent starts producing events.
type AgentActivatedMsg struct {
	Name string
}

// RoutedMsg is sent once the dispatcher picked a responder.
type RoutedMsg struct {
	Decision router.Decision
}

// ToolStartedMsg is sent when a tool call begins.
type ToolStartedMsg struct {
	Agent    string
	ToolName string
}

// ToolCompletedMsg is sent when a tool call returns.
type ToolCompletedMsg struct {
	Agent    string
	ToolName string
	Duration time.Duration
	Summary  string
}

// AgentTextMsg is sent when an agent produces text.
type AgentTextMsg struct {
	Agent   string
	Content string
}

// ReplyMsg is sent when a query finished.
type ReplyMsg struct {
	Reply *runner.Reply
}

// ErrorMsg is sent when a query failed.
type ErrorMsg struct {
	Err error
}

// FromEvent converts a runner event to the matching message.
func FromEvent(ev runner.Event) tea.Msg {
	switch ev.Kind {
	case runner.EventAgentActivated:
		return AgentActivatedMsg{Name: ev.Agent}
	case runner.EventRouted:
		return RoutedMsg{Decision: ev.Decision}
	case runner.EventToolStarted:
		return ToolStartedMsg{Agent: ev.Agent, ToolName: ev.Tool}
	case runner.EventToolCompleted:
		return ToolCompletedMsg{Agent: ev.Agent, ToolName: ev.Tool, Duration: ev.Duration, Summary: summarize(ev.Text)}
	case runner.EventText:
		return AgentTextMsg{Agent: ev.Agent, Content: ev.Text}
	}
	return nil
}

// summarize keeps the first line of a tool result.
func summarize(text string) string {
	for i, r := range text {
		if r == '\n' {
			return truncate(text[:i], 80)
		}
	}
	return truncate(text, 80)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
