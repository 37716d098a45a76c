package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/educhat/internal/model"
	"github.com/capitalize-ai/educhat/internal/tutor"
)

type fakeChatter struct {
	answer   string
	err      error
	sessions map[string]model.Session
	got      *model.ChatRequest
}

func (f *fakeChatter) Chat(_ context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.ChatResponse{Answer: f.answer}, nil
}

func (f *fakeChatter) Session(_ context.Context, sessionID string) (model.Session, error) {
	if f.err != nil {
		return model.Session{}, f.err
	}
	if s, ok := f.sessions[sessionID]; ok {
		return s, nil
	}
	return model.Session{ID: sessionID}, nil
}

type fakeInteractions struct {
	entries []model.InteractionEntry
	limit   int
}

func (f *fakeInteractions) Interactions(_ context.Context, _ string, limit int) ([]model.InteractionEntry, error) {
	f.limit = limit
	return f.entries, nil
}

func newRouter(chat Chatter, interactions InteractionReader) http.Handler {
	h := NewChatHandler(chat, interactions, nil)
	r := chi.NewRouter()
	r.Post("/chat", h.Chat)
	r.Get("/sessions/{id}", h.Session)
	r.Get("/sessions/{id}/interactions", h.Interactions)
	return r
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestChat_OK(t *testing.T) {
	chat := &fakeChatter{answer: "The midterm is in week 8."}
	rec := post(t, newRouter(chat, nil), `{"session_id":"s1","message":"When is the midterm?"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "The midterm is in week 8.", body.Answer)
	assert.Equal(t, "s1", chat.got.SessionID)
}

func TestChat_BadRequests(t *testing.T) {
	chat := &fakeChatter{answer: "unused"}
	h := newRouter(chat, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"session_id":`, "invalid request body"},
		{"missing session", `{"message":"hi"}`, "session_id is required"},
		{"blank message", `{"session_id":"s1","message":"   "}`, "message is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeError(t, rec))
		})
	}
	assert.Nil(t, chat.got)
}

func TestChat_ServiceErrors(t *testing.T) {
	rec := post(t, newRouter(&fakeChatter{err: tutor.ErrEmptyInput}, nil), `{"session_id":"s1","message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, newRouter(&fakeChatter{err: errors.New("model down")}, nil), `{"session_id":"s1","message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to generate answer", decodeError(t, rec))
}

func TestSession(t *testing.T) {
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	chat := &fakeChatter{sessions: map[string]model.Session{
		"s1": {ID: "s1", History: "User: q\nAgent: a", Turns: 1, UpdatedAt: updated},
	}}
	h := newRouter(chat, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/s1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s1", body.ID)
	assert.Equal(t, 1, body.Turns)
	assert.Equal(t, "User: q\nAgent: a", body.History)
	require.NotNil(t, body.UpdatedAt)
	assert.True(t, updated.Equal(*body.UpdatedAt))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/fresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "updated_at")
}

func TestInteractions(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeChatter{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/s1/interactions", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	reader := &fakeInteractions{entries: []model.InteractionEntry{{SessionID: "s1", UserInput: "hi"}}}
	h := newRouter(&fakeChatter{}, reader)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/s1/interactions?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, reader.limit)

	var body InteractionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Interactions, 1)
	assert.Equal(t, "hi", body.Interactions[0].UserInput)

	reader.entries = nil
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/s1/interactions?limit=nope", nil))
	assert.Equal(t, 50, reader.limit)
	assert.JSONEq(t, `{"interactions":[]}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"EduChat API running"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReady_FailingCheck(t *testing.T) {
	h := NewHealthHandler(map[string]Check{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis: connection refused")
}

func TestIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `fetch("/chat"`)
}
