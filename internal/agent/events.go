// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

// Package agent implements the compliance analysis pipeline: a coordinator
// routes each query to evidence-gathering stages (internal documents, web
// search) and a final analyzer synthesizes the collected evidence into a
// compliance report. Progress is reported as a stream of typed events.
package agent

import (
	"encoding/json"
	"unicode/utf8"
)

// EventType identifies a pipeline event. The set is closed; consumers can
// switch exhaustively on it.
type EventType string

const (
	EventAgentStart    EventType = "agent_start"
	EventAgentActive   EventType = "agent_active"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventAgentText     EventType = "agent_text"
	EventAgentComplete EventType = "agent_complete"
	EventError         EventType = "error"
)

// resultPreviewLimit caps tool_result payloads so the stream stays light;
// full tool output goes back to the model, not to the client.
const resultPreviewLimit = 200

// Event is one entry in the pipeline's event stream. Which fields are set
// depends on Type; use the constructors below rather than filling it by hand.
type Event struct {
	Type    EventType       `json:"type"`
	Agent   string          `json:"agent,omitempty"`
	Message string          `json:"message,omitempty"`
	Tool    string          `json:"tool,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
	Result  string          `json:"result,omitempty"`
	Content string          `json:"content,omitempty"`
	Detail  string          `json:"detail,omitempty"`
}

// Terminal reports whether the event ends the stream. Exactly one terminal
// event is emitted per run: agent_complete on success, error on failure.
func (e Event) Terminal() bool {
	return e.Type == EventAgentComplete || e.Type == EventError
}

func AgentStartEvent(agent, message string) Event {
	return Event{Type: EventAgentStart, Agent: agent, Message: message}
}

func AgentActiveEvent(agent string) Event {
	return Event{Type: EventAgentActive, Agent: agent}
}

// ToolCallEvent records a tool invocation. args must be a JSON document;
// anything else is replaced with an empty object so the stream stays valid.
func ToolCallEvent(agent, tool, args string) Event {
	raw := json.RawMessage(args)
	if len(args) == 0 || !json.Valid(raw) {
		raw = json.RawMessage("{}")
	}
	return Event{Type: EventToolCall, Agent: agent, Tool: tool, Args: raw}
}

// ToolResultEvent records a tool's output, truncated to a short preview.
func ToolResultEvent(agent, tool, result string) Event {
	return Event{Type: EventToolResult, Agent: agent, Tool: tool, Result: truncatePreview(result)}
}

func AgentTextEvent(agent, content string) Event {
	return Event{Type: EventAgentText, Agent: agent, Content: content}
}

func AgentCompleteEvent(agent, message string) Event {
	return Event{Type: EventAgentComplete, Agent: agent, Message: message}
}

func ErrorEvent(agent, message, detail string) Event {
	return Event{Type: EventError, Agent: agent, Message: message, Detail: detail}
}

// truncatePreview cuts s to resultPreviewLimit characters on a rune boundary,
// appending an ellipsis when anything was dropped.
func truncatePreview(s string) string {
	if utf8.RuneCountInString(s) <= resultPreviewLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:resultPreviewLimit]) + "..."
}
