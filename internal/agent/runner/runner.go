// Package runner runs one agent composition over an in-memory ADK session
// and turns the event stream into a reply, callbacks and audit records.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"google.golang.org/adk/agent"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"

	"github.com/boxflow/boxflow/internal/agent/audit"
	"github.com/boxflow/boxflow/internal/agent/root"
	"github.com/boxflow/boxflow/internal/agent/router"
	"github.com/boxflow/boxflow/internal/agent/tools"
	"github.com/boxflow/boxflow/internal/logging"
	"github.com/boxflow/boxflow/internal/tracing"
)

const (
	// AppName is the ADK application name.
	AppName = "boxflow"

	// DefaultUserID is used when no user ID is specified.
	DefaultUserID = "default"
)

// Config contains the runner configuration.
type Config struct {
	// LLM backs every agent of the composition
	LLM adkmodel.LLM

	// Composition is a root composition name; defaults to root.Flow
	Composition string

	// Tools are the API clients the agent tools call
	Tools tools.Deps

	// SessionID resumes an existing session ID; a new one is generated when empty
	SessionID string

	UserID string

	// AuditLogPath enables a JSONL audit log when set
	AuditLogPath string

	// Metrics receives routing decisions; nil disables them
	Metrics *router.Metrics

	// Handler observes events as they stream; optional
	Handler EventHandler
}

// EventKind identifies what happened in an Event.
type EventKind int

const (
	EventAgentActivated EventKind = iota
	EventRouted
	EventToolStarted
	EventToolCompleted
	EventText
)

// Event is a simplified view of the ADK event stream.
type Event struct {
	Kind     EventKind
	Agent    string
	Tool     string
	Text     string
	Duration time.Duration
	Decision router.Decision
}

// EventHandler receives events in the order they happen.
type EventHandler func(Event)

// Reply is the outcome of one query.
type Reply struct {
	// Text is the final answer shown to the user
	Text string

	// Agents lists the agents that produced events, in order of first appearance
	Agents []string

	// Decision is set when the composition routed the query
	Decision *router.Decision

	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// Runner serves queries for one session.
type Runner struct {
	config Config

	adkRunner      *runner.Runner
	sessionService adksession.Service
	sessionID      string
	userID         string
	sessionReady   bool

	auditLogger *audit.Logger
	logger      *logging.Logger

	// decision is written by the dispatcher callback during Ask
	mu       sync.Mutex
	decision *router.Decision
}

// New creates a Runner. The session itself is created on the first Ask.
func New(cfg Config) (*Runner, error) {
	if cfg.LLM == nil {
		return nil, errors.New("runner: model is required")
	}
	if cfg.Composition == "" {
		cfg.Composition = root.Flow
	}

	r := &Runner{
		config:         cfg,
		sessionService: adksession.InMemoryService(),
		sessionID:      cfg.SessionID,
		userID:         cfg.UserID,
		logger:         logging.GetLogger("agent.runner"),
	}
	if r.sessionID == "" {
		r.sessionID = uuid.NewString()
	}
	if r.userID == "" {
		r.userID = DefaultUserID
	}

	rootAgent, err := root.New(cfg.Composition, root.Deps{
		LLM:        cfg.LLM,
		Tools:      cfg.Tools,
		Metrics:    cfg.Metrics,
		OnDecision: r.onDecision,
	})
	if err != nil {
		return nil, err
	}

	r.adkRunner, err = runner.New(runner.Config{
		AppName:        AppName,
		Agent:          rootAgent,
		SessionService: r.sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ADK runner: %w", err)
	}

	if cfg.AuditLogPath != "" {
		auditLogger, err := audit.NewLogger(cfg.AuditLogPath, r.sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit logger: %w", err)
		}
		r.auditLogger = auditLogger
	}

	return r, nil
}

// SessionID returns the ID of the session queries run in.
func (r *Runner) SessionID() string {
	return r.sessionID
}

// SetHandler replaces the event handler. Call it before the first Ask.
func (r *Runner) SetHandler(h EventHandler) {
	r.config.Handler = h
}

// ModelName returns the name of the backing LLM.
func (r *Runner) ModelName() string {
	return r.config.LLM.Name()
}

func (r *Runner) onDecision(d router.Decision) {
	r.mu.Lock()
	r.decision = &d
	r.mu.Unlock()

	if r.auditLogger != nil {
		_ = r.auditLogger.LogRoutingDecision(router.AgentName, d.Raw, string(d.Route), d.Fallback, d.Reason)
	}
	r.emit(Event{Kind: EventRouted, Agent: router.AgentName, Decision: d})
}

func (r *Runner) emit(ev Event) {
	if r.config.Handler != nil {
		r.config.Handler(ev)
	}
}

func (r *Runner) ensureSession(ctx context.Context) error {
	if r.sessionReady {
		return nil
	}

	_, err := r.sessionService.Create(ctx, &adksession.CreateRequest{
		AppName:   AppName,
		UserID:    r.userID,
		SessionID: r.sessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	r.sessionReady = true

	if r.auditLogger != nil {
		_ = r.auditLogger.LogSessionStart(r.config.LLM.Name(), r.config.Composition)
	}
	return nil
}

// Ask runs one query to completion. Ask is not safe for concurrent use.
func (r *Runner) Ask(ctx context.Context, message string) (reply *Reply, err error) {
	ctx, span := tracing.Tracer("boxflow/agent").Start(ctx, "agent.ask")
	span.SetAttributes(
		attribute.String("boxflow.session_id", r.sessionID),
		attribute.String("boxflow.composition", r.config.Composition),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if reply.Decision != nil {
			span.SetAttributes(
				attribute.String("boxflow.route", string(reply.Decision.Route)),
				attribute.Bool("boxflow.route_fallback", reply.Decision.Fallback),
			)
		}
		span.End()
	}()

	if err := r.ensureSession(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.decision = nil
	r.mu.Unlock()

	if r.auditLogger != nil {
		_ = r.auditLogger.LogUserMessage(message)
	}

	userContent := genai.NewContentFromText(message, genai.RoleUser)
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}

	turn := newTurn()
	for event, err := range r.adkRunner.Run(ctx, r.userID, r.sessionID, userContent, runConfig) {
		if err != nil {
			if r.auditLogger != nil {
				_ = r.auditLogger.LogError(turn.currentAgent, err)
			}
			return nil, fmt.Errorf("agent error: %w", err)
		}
		if event == nil {
			continue
		}
		r.handleEvent(turn, event)
	}

	reply = turn.reply()
	r.mu.Lock()
	reply.Decision = r.decision
	r.mu.Unlock()

	r.logger.Debug("Turn finished in %s with agents %v", reply.Duration, reply.Agents)
	if r.auditLogger != nil {
		_ = r.auditLogger.LogTurnComplete(reply.Duration, reply.Agents)
	}
	return reply, nil
}

// turn accumulates state across the events of one Ask.
type turn struct {
	started      time.Time
	currentAgent string
	agents       []string
	seen         map[string]bool
	toolStarts   map[string]time.Time
	finalText    string
	lastText     string
	inputTokens  int
	outputTokens int
}

func newTurn() *turn {
	return &turn{
		started:    time.Now(),
		seen:       make(map[string]bool),
		toolStarts: make(map[string]time.Time),
	}
}

func (t *turn) reply() *Reply {
	text := t.finalText
	if text == "" {
		text = t.lastText
	}
	return &Reply{
		Text:         text,
		Agents:       t.agents,
		InputTokens:  t.inputTokens,
		OutputTokens: t.outputTokens,
		Duration:     time.Since(t.started),
	}
}

func (r *Runner) handleEvent(t *turn, event *adksession.Event) {
	if event.Author != "" && event.Author != t.currentAgent {
		t.currentAgent = event.Author
		if !t.seen[event.Author] {
			t.seen[event.Author] = true
			t.agents = append(t.agents, event.Author)
		}
		if r.auditLogger != nil {
			_ = r.auditLogger.LogAgentActivated(event.Author)
		}
		r.emit(Event{Kind: EventAgentActivated, Agent: event.Author})
	}

	if usage := event.UsageMetadata; usage != nil && usage.PromptTokenCount > 0 {
		in, out := int(usage.PromptTokenCount), int(usage.CandidatesTokenCount)
		t.inputTokens += in
		t.outputTokens += out
		if r.auditLogger != nil {
			_ = r.auditLogger.LogLLMRequest(t.currentAgent, in, out)
		}
	}

	if event.Content == nil {
		return
	}

	for _, part := range event.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			r.toolStarted(t, part.FunctionCall)
		case part.FunctionResponse != nil:
			r.toolCompleted(t, part.FunctionResponse)
		case part.Text != "" && !part.Thought:
			r.agentText(t, event, part.Text)
		}
	}
}

func toolKey(id, name string) string {
	if id != "" {
		return id
	}
	return name
}

func (r *Runner) toolStarted(t *turn, call *genai.FunctionCall) {
	t.toolStarts[toolKey(call.ID, call.Name)] = time.Now()
	if r.auditLogger != nil {
		_ = r.auditLogger.LogToolStart(t.currentAgent, call.Name, call.Args)
	}
	r.emit(Event{Kind: EventToolStarted, Agent: t.currentAgent, Tool: call.Name})
}

func (r *Runner) toolCompleted(t *turn, resp *genai.FunctionResponse) {
	key := toolKey(resp.ID, resp.Name)
	var duration time.Duration
	if started, ok := t.toolStarts[key]; ok {
		duration = time.Since(started)
		delete(t.toolStarts, key)
	}

	text, _ := resp.Response["result"].(string)
	if errMsg, ok := resp.Response["error"]; ok && text == "" {
		text = fmt.Sprint(errMsg)
	}

	if r.auditLogger != nil {
		_ = r.auditLogger.LogToolComplete(t.currentAgent, resp.Name, duration, resp.Response)
	}
	r.emit(Event{Kind: EventToolCompleted, Agent: t.currentAgent, Tool: resp.Name, Text: text, Duration: duration})
}

// agentText skips the classifier: its label is not part of the answer.
func (r *Runner) agentText(t *turn, event *adksession.Event, text string) {
	final := event.IsFinalResponse()
	if r.auditLogger != nil {
		_ = r.auditLogger.LogAgentText(event.Author, text, final)
	}
	if event.Author == router.ClassifierName {
		return
	}

	t.lastText = text
	if final {
		t.finalText = text
	}
	r.emit(Event{Kind: EventText, Agent: event.Author, Text: text})
}

// Close ends the session in the audit log and closes it.
func (r *Runner) Close() error {
	if r.auditLogger == nil {
		return nil
	}
	_ = r.auditLogger.LogSessionEnd()
	return r.auditLogger.Close()
}
