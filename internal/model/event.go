package model

import (
	"time"
)

// InteractionEntry is one line of the interaction log.
type InteractionEntry struct {
	ID        string            `json:"id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	SessionID string            `json:"session_id"`
	UserInput string            `json:"user_input"`
	State     ConversationState `json:"state"`
}
