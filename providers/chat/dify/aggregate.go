package dify

import (
	"encoding/json"
	"strings"

	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
)

// streamEvent is the decoded payload of one SSE data line from the chat
// backend. Unknown events carry neither answer nor terminal meaning.
type streamEvent struct {
	Event          string `json:"event"`
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

// Aggregator folds incremental message fragments into one answer. Fragments
// are applied strictly in arrival order and the accumulated text is
// append-only.
type Aggregator struct {
	text           strings.Builder
	conversationID string
	done           bool
}

// Apply consumes one raw data payload. Malformed JSON is skipped so noise
// events never abort aggregation. After a terminal message_end event further
// payloads are ignored.
func (a *Aggregator) Apply(raw string) {
	if a.done {
		return
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return
	}
	var ev streamEvent
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
		return
	}
	switch ev.Event {
	case "message":
		if ev.Answer != "" {
			a.text.WriteString(ev.Answer)
			if ev.ConversationID != "" {
				a.conversationID = ev.ConversationID
			}
		}
	case "message_end":
		a.done = true
	}
}

// Done reports whether a terminal event has been observed.
func (a *Aggregator) Done() bool {
	return a.done
}

// Answer finalizes the aggregation. End-of-stream without a terminal event
// converges here too; the caller decides whether an empty result is fatal.
func (a *Aggregator) Answer() contracts.Answer {
	return contracts.Answer{Text: a.text.String(), ConversationID: a.conversationID}
}
