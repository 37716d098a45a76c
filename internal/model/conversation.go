// Package model defines data structures for the course tutor.
package model

import (
	"strings"
)

// Mode is the handling branch chosen for a turn.
type Mode string

const (
	ModeFAQ      Mode = "faq"
	ModeConcept  Mode = "concept"
	ModePractice Mode = "practice"
)

// ParseMode normalizes a classifier response. Anything that is not exactly
// one of the known labels after trimming and lowercasing is ModeConcept.
func ParseMode(raw string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case ModeFAQ, ModeConcept, ModePractice:
		return m
	default:
		return ModeConcept
	}
}

// ConversationState is the value threaded through one request.
//
// Optional fields are nil when the branch that owns them did not run:
// RetrievedContext is set by the concept and practice branches, DraftAnswer
// only by concept, StructuredAnswer by concept and practice when the model
// produced one.
type ConversationState struct {
	UserInput        string  `json:"user_input"`
	Mode             Mode    `json:"mode,omitempty"`
	History          string  `json:"history"`
	RetrievedContext *string `json:"retrieved_context,omitempty"`
	DraftAnswer      *string `json:"draft_answer,omitempty"`
	StructuredAnswer *string `json:"structured_answer,omitempty"`
	FinalAnswer      string  `json:"final_answer"`
}

// NewConversationState starts a turn for input on top of a session history.
func NewConversationState(input, history string) ConversationState {
	return ConversationState{
		UserInput: input,
		History:   history,
	}
}

// RenderTurn is the transcript line appended to history for one turn.
func RenderTurn(input, answer string) string {
	return "User: " + input + "\nAgent: " + answer + "\n"
}

// AppendTurn folds one turn into a history string.
func AppendTurn(history, input, answer string) string {
	return strings.TrimSpace(history + "\n" + RenderTurn(input, answer))
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns the pointed-to string, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
