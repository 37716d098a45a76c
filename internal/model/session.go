package model

import (
	"time"
)

// Session is the persisted memory of one conversation.
type Session struct {
	ID        string             `json:"id"`
	History   string             `json:"history"`
	Turns     int                `json:"turns"`
	LastState *ConversationState `json:"last_state,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Advance returns the session after a completed turn.
func (s Session) Advance(state ConversationState, now time.Time) Session {
	last := state
	return Session{
		ID:        s.ID,
		History:   state.History,
		Turns:     s.Turns + 1,
		LastState: &last,
		UpdatedAt: now,
	}
}
