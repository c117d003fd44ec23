package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/boxflow/boxflow/internal/agent/runner"
)

// App runs the chat against one runner session.
type App struct {
	runner        *runner.Runner
	initialPrompt string
}

// NewApp creates the chat application. The runner's event handler is
// replaced while the app runs.
func NewApp(r *runner.Runner, initialPrompt string) *App {
	return &App{runner: r, initialPrompt: initialPrompt}
}

// Run blocks until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	model := NewModel(Config{
		SessionID:     a.runner.SessionID(),
		ModelName:     a.runner.ModelName(),
		InitialPrompt: a.initialPrompt,
		Ask: func(input string) tea.Cmd {
			return func() tea.Msg {
				reply, err := a.runner.Ask(ctx, input)
				if err != nil {
					return ErrorMsg{Err: err}
				}
				return ReplyMsg{Reply: reply}
			}
		},
	})

	program := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	a.runner.SetHandler(func(ev runner.Event) {
		if msg := FromEvent(ev); msg != nil {
			program.Send(msg)
		}
	})
	defer a.runner.SetHandler(nil)

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// IsTerminal returns true if stdin and stdout are terminals.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
