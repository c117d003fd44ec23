package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/boxflow/boxflow/internal/agent/root"
	"github.com/boxflow/boxflow/internal/agent/router"
	"github.com/boxflow/boxflow/internal/agent/runner"
	"github.com/boxflow/boxflow/internal/agent/tui"
)

var (
	agentModel       string
	agentComposition string
	agentAuditLog    string
	agentPrompt      string
	agentMetricsAddr string
	askRaw           bool
	askShowRoute     bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question and exit",
	Long: `Send one question through the agents and print the answer.

Examples:
  # Route through the classifier (default)
  boxflow ask "Find the Q3 budget spreadsheet"

  # Replay the builtin demo script without calling any LLM
  boxflow ask --model mock "Find the quarterly report"

  # Try every specialist in turn instead of routing
  boxflow ask --composition swarm "Who owns the Acme account?"
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat with the agents. On a terminal a full screen UI
shows which agent answers, the routing decision and every tool call. When
input is piped, each line is answered in turn.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	for _, cmd := range []*cobra.Command{askCmd, chatCmd} {
		cmd.Flags().StringVar(&agentModel, "model", "",
			"Model override: gemini-*, claude-*, mock or mock:<scenario> (default from config)")
		cmd.Flags().StringVar(&agentComposition, "composition", root.Flow,
			"Agent composition: "+strings.Join(root.Names(), " or "))
		cmd.Flags().StringVar(&agentAuditLog, "audit-log", "",
			"Path to write the agent audit log (JSONL). Overrides audit_log from config.")
		cmd.Flags().StringVar(&agentMetricsAddr, "metrics-addr", getEnv("BOXFLOW_METRICS_ADDR", ""),
			"Serve Prometheus metrics, including routing decisions, on this address (host:port)")
	}
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "Print the answer without markdown rendering")
	askCmd.Flags().BoolVar(&askShowRoute, "show-route", false, "Print the routing decision to stderr")
	chatCmd.Flags().StringVar(&agentPrompt, "prompt", "", "Initial prompt to send when the chat starts")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newAgentRunner loads config, starts the integrations and builds a runner.
// The returned cleanup closes the runner and stops the services.
func newAgentRunner(ctx context.Context) (*runner.Runner, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	svc, err := startServices(ctx, cfg, nil, agentMetricsAddr)
	if err != nil {
		return nil, nil, err
	}

	deps, err := svc.toolDeps()
	if err != nil {
		svc.stop()
		return nil, nil, err
	}

	llm, err := svc.newLLM(ctx, agentModel)
	if err != nil {
		svc.stop()
		return nil, nil, err
	}

	auditLog := cfg.AuditLog
	if agentAuditLog != "" {
		auditLog = agentAuditLog
	}

	r, err := runner.New(runner.Config{
		LLM:          llm,
		Composition:  agentComposition,
		Tools:        deps,
		AuditLogPath: auditLog,
		Metrics:      router.SharedMetrics(),
	})
	if err != nil {
		svc.stop()
		return nil, nil, err
	}

	cleanup := func() {
		_ = r.Close()
		svc.stop()
	}
	return r, cleanup, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	closer, err := setupLog(logLevelFlags, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closer.Close()

	ctx, cancel := signalContext()
	defer cancel()

	r, cleanup, err := newAgentRunner(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	reply, err := r.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	if askShowRoute && reply.Decision != nil {
		fmt.Fprintf(os.Stderr, "route: %s\n", reply.Decision)
	}
	return printAnswer(cmd.OutOrStdout(), reply.Text, !askRaw && tui.IsTerminal())
}

func runChat(cmd *cobra.Command, args []string) error {
	interactive := tui.IsTerminal()

	// The full screen UI owns the terminal; logs go to --log-file or nowhere
	logOut := io.Writer(os.Stderr)
	if interactive {
		logOut = io.Discard
	}
	closer, err := setupLog(logLevelFlags, logOut)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closer.Close()

	ctx, cancel := signalContext()
	defer cancel()

	r, cleanup, err := newAgentRunner(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if interactive {
		return tui.NewApp(r, agentPrompt).Run(ctx)
	}
	return chatLines(ctx, r, cmd.InOrStdin(), cmd.OutOrStdout())
}

// asker is the part of runner.Runner used by chatLines.
type asker interface {
	Ask(ctx context.Context, message string) (*runner.Reply, error)
}

// chatLines answers each non-empty input line. A failed question is reported
// and the loop continues.
func chatLines(ctx context.Context, r asker, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if agentPrompt != "" {
		if err := answerLine(ctx, r, agentPrompt, out); err != nil {
			return err
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if err := answerLine(ctx, r, line, out); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func answerLine(ctx context.Context, r asker, line string, out io.Writer) error {
	reply, err := r.Ask(ctx, line)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(out, "Error: %v\n\n", err)
		return nil
	}
	fmt.Fprintf(out, "%s\n\n", reply.Text)
	return nil
}

func printAnswer(out io.Writer, text string, markdown bool) error {
	if markdown {
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			if rendered, err := renderer.Render(text); err == nil {
				text = strings.TrimRight(rendered, "\n")
			}
		}
	}
	_, err := fmt.Fprintln(out, text)
	return err
}
