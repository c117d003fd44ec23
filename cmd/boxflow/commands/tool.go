package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boxflow/boxflow/internal/integration"
)

var toolArgsJSON string

var toolCmd = &cobra.Command{
	Use:   "tool [name] [prompt]",
	Short: "Call one Box or Salesforce tool directly, without an LLM",
	Long: `Call a tool the way an agent would and print the text it returns.
Without a name, the available tools are listed.

Examples:
  boxflow tool box_generic_search "quarterly report"
  boxflow tool box_hub_ask_GTM "What is our pitch for healthcare?"
  boxflow tool box_AI_ask --args '{"prompt": "Summarize", "items": "[{\"type\": \"file\", \"id\": \"123\"}]"}'
`,
	Args: cobra.MaximumNArgs(2),
	RunE: runTool,
}

func init() {
	toolCmd.Flags().StringVar(&toolArgsJSON, "args", "",
		"Tool arguments as a JSON object; overrides the prompt argument")
}

// toolSet collects the tools the integrations register.
type toolSet map[string]integration.Tool

func (s toolSet) RegisterTool(tool integration.Tool) error {
	if _, exists := s[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}
	s[tool.Name] = tool
	return nil
}

func (s toolSet) names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// toolArgs builds the JSON arguments from --args or the prompt argument.
func toolArgs(args []string) ([]byte, error) {
	if toolArgsJSON != "" {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(toolArgsJSON), &obj); err != nil {
			return nil, fmt.Errorf("--args must be a JSON object: %w", err)
		}
		return []byte(toolArgsJSON), nil
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("a prompt argument or --args is required")
	}
	return json.Marshal(map[string]string{"prompt": args[1]})
}

func runTool(cmd *cobra.Command, args []string) error {
	closer, err := setupLog(logLevelFlags, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closer.Close()

	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tools := toolSet{}
	svc, err := startServices(ctx, cfg, tools, "")
	if err != nil {
		return err
	}
	defer svc.stop()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, name := range tools.names() {
			fmt.Fprintf(out, "%-28s %s\n", name, firstLine(tools[name].Description))
		}
		return nil
	}

	tool, ok := tools[args[0]]
	if !ok {
		return fmt.Errorf("unknown tool %q (available: %s)", args[0], strings.Join(tools.names(), ", "))
	}

	raw, err := toolArgs(args)
	if err != nil {
		return err
	}

	res, err := tool.Handler(ctx, raw)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Render())
	if res.IsError() {
		return fmt.Errorf("%s failed (%s)", tool.Name, res.Kind)
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
