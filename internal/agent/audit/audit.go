// Package audit appends agent events (activations, tool calls, routing
// decisions, replies) to a JSONL file, one object per line.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	EventTypeSessionStart    EventType = "session_start"
	EventTypeUserMessage     EventType = "user_message"
	EventTypeAgentActivated  EventType = "agent_activated"
	EventTypeRoutingDecision EventType = "routing_decision"
	EventTypeToolStart       EventType = "tool_start"
	EventTypeToolComplete    EventType = "tool_complete"
	EventTypeAgentText       EventType = "agent_text"
	EventTypeLLMRequest      EventType = "llm_request"
	EventTypeTurnComplete    EventType = "turn_complete"
	EventTypeError           EventType = "error"
	EventTypeSessionEnd      EventType = "session_end"
)

// Event is one line of the audit log.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id"`
	Agent     string                 `json:"agent,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Logger writes audit events to a JSONL file. It is safe for concurrent use.
type Logger struct {
	file      *os.File
	writer    *bufio.Writer
	mutex     sync.Mutex
	sessionID string
	now       func() time.Time
}

// NewLogger opens filePath for appending.
func NewLogger(filePath, sessionID string) (*Logger, error) {
	// #nosec G304 -- the audit log location is user configuration
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{
		file:      file,
		writer:    bufio.NewWriter(file),
		sessionID: sessionID,
		now:       time.Now,
	}, nil
}

func (l *Logger) write(typ EventType, agentName string, data map[string]interface{}) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	line, err := json.Marshal(Event{
		Timestamp: l.now(),
		Type:      typ,
		SessionID: l.sessionID,
		Agent:     agentName,
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	line = append(line, '\n')
	if _, err := l.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}

	// flushed per event so a crash loses at most the line in flight
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	return nil
}

// LogSessionStart records the model and composition serving the session.
func (l *Logger) LogSessionStart(model, composition string) error {
	return l.write(EventTypeSessionStart, "", map[string]interface{}{
		"model":       model,
		"composition": composition,
	})
}

// LogUserMessage records a user query.
func (l *Logger) LogUserMessage(message string) error {
	return l.write(EventTypeUserMessage, "", map[string]interface{}{"message": message})
}

// LogAgentActivated records that agentName produced its first event of a run.
func (l *Logger) LogAgentActivated(agentName string) error {
	return l.write(EventTypeAgentActivated, agentName, nil)
}

// LogRoutingDecision records how the dispatcher interpreted the classifier label.
func (l *Logger) LogRoutingDecision(agentName, raw, route string, fallback bool, reason string) error {
	data := map[string]interface{}{
		"raw":      raw,
		"route":    route,
		"fallback": fallback,
	}
	if reason != "" {
		data["reason"] = reason
	}
	return l.write(EventTypeRoutingDecision, agentName, data)
}

// LogToolStart records a tool call requested by the model.
func (l *Logger) LogToolStart(agentName, toolName string, args map[string]interface{}) error {
	return l.write(EventTypeToolStart, agentName, map[string]interface{}{
		"tool_name": toolName,
		"args":      args,
	})
}

// LogToolComplete records a tool response.
func (l *Logger) LogToolComplete(agentName, toolName string, duration time.Duration, result interface{}) error {
	return l.write(EventTypeToolComplete, agentName, map[string]interface{}{
		"tool_name":   toolName,
		"duration_ms": duration.Milliseconds(),
		"result":      result,
	})
}

// LogAgentText records text produced by an agent.
func (l *Logger) LogAgentText(agentName, content string, isFinal bool) error {
	return l.write(EventTypeAgentText, agentName, map[string]interface{}{
		"content":  content,
		"is_final": isFinal,
	})
}

// LogLLMRequest records token usage reported on a model response.
func (l *Logger) LogLLMRequest(agentName string, inputTokens, outputTokens int) error {
	return l.write(EventTypeLLMRequest, agentName, map[string]interface{}{
		"input_tokens":  inputTokens,
		"output_tokens": outputTokens,
		"total_tokens":  inputTokens + outputTokens,
	})
}

// LogTurnComplete records the end of one query.
func (l *Logger) LogTurnComplete(duration time.Duration, agents []string) error {
	return l.write(EventTypeTurnComplete, "", map[string]interface{}{
		"duration_ms": duration.Milliseconds(),
		"agents":      agents,
	})
}

// LogError records an error surfaced by the runner.
func (l *Logger) LogError(agentName string, err error) error {
	return l.write(EventTypeError, agentName, map[string]interface{}{"error": err.Error()})
}

// LogSessionEnd marks the end of the session.
func (l *Logger) LogSessionEnd() error {
	return l.write(EventTypeSessionEnd, "", nil)
}

// Close flushes and closes the file.
func (l *Logger) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	flushErr := l.writer.Flush()
	closeErr := l.file.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush audit log: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close audit log file: %w", closeErr)
	}
	return nil
}
