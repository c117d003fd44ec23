package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the outcome of a single outbound API call.
type Kind int

const (
	// KindFound means a search returned at least one entry
	KindFound Kind = iota

	// KindAnswer means Box AI returned an answer
	KindAnswer

	// KindNoResults means a search succeeded with no entries
	KindNoResults

	// KindNoAnswer means Box AI succeeded without an answer
	KindNoAnswer

	// KindAPIError means the request failed at the HTTP or network level
	KindAPIError

	// KindInvalidInput means the caller's arguments were rejected before any request
	KindInvalidInput

	// KindUnexpected covers everything else, e.g. an undecodable success body
	KindUnexpected
)

// String returns the metric/audit label for the kind.
func (k Kind) String() string {
	switch k {
	case KindFound:
		return "found"
	case KindAnswer:
		return "answer"
	case KindNoResults:
		return "no_results"
	case KindNoAnswer:
		return "no_answer"
	case KindAPIError:
		return "api_error"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// FlexibleID accepts JSON strings and numbers. Box returns string IDs,
// Salesforce and hand-written item lists sometimes use numbers.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// SearchEntry is one hit from a search endpoint. Nil fields were absent in the response.
type SearchEntry struct {
	Name *string     `json:"name"`
	Type *string     `json:"type"`
	ID   *FlexibleID `json:"id"`
}

// Result is the tagged outcome of one tool call. Render is the only place
// the human-readable text is produced.
type Result struct {
	Kind Kind

	// Source names the remote API in messages, e.g. "Box Search" or "Box Hub"
	Source string

	// Prompt is the caller's query, echoed in no-results messages
	Prompt string

	Entries []SearchEntry

	Answer string

	// CompletionReason is Box AI's completion_reason; nil when absent
	CompletionReason *string

	// StatusCode and Body describe a non-2xx response; StatusCode is 0 when
	// no response was received
	StatusCode int
	Body       string

	Err error
}

// Render produces the text handed back to the agent or MCP client.
func (r Result) Render() string {
	switch r.Kind {
	case KindFound:
		lines := make([]string, 0, len(r.Entries))
		for _, e := range r.Entries {
			lines = append(lines, fmt.Sprintf("- %s (Type: %s, ID: %s)",
				valueOr(e.Name, "Unnamed item"),
				valueOr(e.Type, "unknown"),
				idOr(e.ID, "unknown")))
		}
		return "Found the following items:\n" + strings.Join(lines, "\n")

	case KindNoResults:
		return fmt.Sprintf("No %s content found matching '%s'.", contentOwner(r.Source), r.Prompt)

	case KindAnswer:
		return r.Answer

	case KindNoAnswer:
		return fmt.Sprintf("%s did not provide an answer. Reason: %s", r.Source, valueOr(r.CompletionReason, "No reason provided."))

	case KindAPIError:
		if r.StatusCode == 0 {
			return fmt.Sprintf("API Error: Failed to ask %s. No response details.", r.Source)
		}
		return fmt.Sprintf("API Error: Failed to ask %s. Status: %d. Details: %s", r.Source, r.StatusCode, r.Body)

	case KindInvalidInput:
		return "Error: Invalid JSON format for items parameter. Please provide a properly formatted JSON array of file objects."

	default:
		return fmt.Sprintf("An unexpected error occurred: %v", r.Err)
	}
}

// IsError reports whether the call failed.
func (r Result) IsError() bool {
	switch r.Kind {
	case KindAPIError, KindInvalidInput, KindUnexpected:
		return true
	}
	return false
}

// contentOwner maps "Box Search" to "Box" and "Salesforce Search" to "Salesforce".
func contentOwner(source string) string {
	return strings.TrimSuffix(source, " Search")
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func idOr(id *FlexibleID, fallback string) string {
	if id == nil {
		return fallback
	}
	return string(*id)
}
