//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package history

// StateKey is the session state key holding the interaction history.
const StateKey = "interaction_history"

// TimestampLayout formats entry timestamps in local time.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	// ActionUserQuery marks an entry holding a user message.
	ActionUserQuery = "user_query"
	// ActionAgentResponse marks an entry holding an agent answer.
	ActionAgentResponse = "agent_response"
)

// Entry is one turn of the interaction history.
type Entry struct {
	Action    string `json:"action"`
	Query     string `json:"query,omitempty"`
	Agent     string `json:"agent,omitempty"`
	Response  string `json:"response,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// UserQuery builds a user_query entry.
func UserQuery(query string) Entry {
	return Entry{Action: ActionUserQuery, Query: query}
}

// AgentResponse builds an agent_response entry.
func AgentResponse(agent, response string) Entry {
	return Entry{Action: ActionAgentResponse, Agent: agent, Response: response}
}

// toMap converts the entry to the map stored in session state.
func (e Entry) toMap() map[string]any {
	m := map[string]any{
		"action":    e.Action,
		"timestamp": e.Timestamp,
	}
	switch e.Action {
	case ActionUserQuery:
		m["query"] = e.Query
	case ActionAgentResponse:
		m["agent"] = e.Agent
		m["response"] = e.Response
	default:
		if e.Query != "" {
			m["query"] = e.Query
		}
		if e.Agent != "" {
			m["agent"] = e.Agent
		}
		if e.Response != "" {
			m["response"] = e.Response
		}
	}
	return m
}

func entryFromMap(m map[string]any) Entry {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return Entry{
		Action:    str("action"),
		Query:     str("query"),
		Agent:     str("agent"),
		Response:  str("response"),
		Timestamp: str("timestamp"),
	}
}

// Entries decodes the interaction history held in state. Unknown items are skipped.
func Entries(state map[string]any) []Entry {
	var entries []Entry
	switch items := state[StateKey].(type) {
	case []any:
		for _, item := range items {
			switch v := item.(type) {
			case map[string]any:
				entries = append(entries, entryFromMap(v))
			case Entry:
				entries = append(entries, v)
			}
		}
	case []map[string]any:
		for _, item := range items {
			entries = append(entries, entryFromMap(item))
		}
	case []Entry:
		entries = append(entries, items...)
	}
	return entries
}

// appendEntry returns the history of state extended by e, as []any.
func appendEntry(state map[string]any, e Entry) []any {
	var items []any
	switch existing := state[StateKey].(type) {
	case []any:
		items = make([]any, 0, len(existing)+1)
		items = append(items, existing...)
	case []map[string]any:
		items = make([]any, 0, len(existing)+1)
		for _, m := range existing {
			items = append(items, m)
		}
	case []Entry:
		items = make([]any, 0, len(existing)+1)
		for _, old := range existing {
			items = append(items, old.toMap())
		}
	}
	return append(items, e.toMap())
}
