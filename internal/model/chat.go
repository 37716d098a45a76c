package model

import (
	"encoding/json"
	"errors"
	"strings"
)

// NoAnswerPlaceholder is returned to callers when a turn produced no text.
const NoAnswerPlaceholder = "[No answer was generated]"

// ChatRequest is the transport-agnostic chat input.
type ChatRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
	Message   string `json:"message" validate:"required,max=100000"`
}

// ChatResponse is the transport-agnostic chat output.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// ErrorResponse is the body of a failed HTTP request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of the health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StructuredAnswer is the JSON shape the structuring prompt asks for.
type StructuredAnswer struct {
	Answer     string   `json:"answer"`
	KeyPoints  []string `json:"key_points"`
	References []string `json:"references"`
}

// ErrNotJSONObject is returned when structured text is not a JSON object.
var ErrNotJSONObject = errors.New("structured answer is not a JSON object")

// NormalizeStructured strips whitespace and a surrounding Markdown code
// fence (``` or ```json) from a model response.
func NormalizeStructured(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseStructured decodes normalized structured text.
func ParseStructured(text string) (*StructuredAnswer, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, ErrNotJSONObject
	}
	var sa StructuredAnswer
	if err := json.Unmarshal([]byte(trimmed), &sa); err != nil {
		return nil, errors.Join(ErrNotJSONObject, err)
	}
	return &sa, nil
}
