package ws

import (
	"encoding/json"

	"github.com/fortitwin/interview-relay/internal/session"
)

// Event is the envelope for every control-channel frame, inbound and
// outbound. Data is left raw on receipt so a bad payload only fails the
// one event that carried it.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinPayload struct {
	SessionID string `json:"sessionId"`
}

type messagePayload struct {
	Text string `json:"text"`
}

// chatEntry is the shape the browser renders: sender is "user" or "ai".
type chatEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type replyPayload struct {
	Text  string   `json:"text"`
	Hints []string `json:"hints,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func toChatEntries(turns []session.Turn) []chatEntry {
	entries := make([]chatEntry, len(turns))
	for i, t := range turns {
		sender := "ai"
		if t.Role == session.RoleCandidate {
			sender = "user"
		}
		entries[i] = chatEntry{Sender: sender, Text: t.Content}
	}
	return entries
}
