// Package service provides the chat use case shared by every transport.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/educhat/internal/journal"
	"github.com/capitalize-ai/educhat/internal/model"
	"github.com/capitalize-ai/educhat/internal/session"
	"github.com/capitalize-ai/educhat/internal/tutor"
	"github.com/capitalize-ai/educhat/pkg/logger"
	"github.com/capitalize-ai/educhat/pkg/metrics"
)

// ErrEmptySession is returned when no session id is given.
var ErrEmptySession = errors.New("session id is required")

// Runner answers one turn on top of a session history.
type Runner interface {
	Run(ctx context.Context, history, input string) (model.ConversationState, error)
}

// ChatService loads session memory, runs the tutor and saves the result.
type ChatService struct {
	runner  Runner
	store   session.Store
	journal journal.Journal
	logger  *logger.Logger
	now     func() time.Time
}

// NewChatService creates a new chat service. A nil journal disables the
// interaction log.
func NewChatService(runner Runner, store session.Store, j journal.Journal, log *logger.Logger) *ChatService {
	if j == nil {
		j = journal.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatService{
		runner:  runner,
		store:   store,
		journal: j,
		logger:  log,
		now:     time.Now,
	}
}

// Ask runs one turn for sessionID. The session is only written when the
// turn completes.
func (s *ChatService) Ask(ctx context.Context, sessionID, message string) (*model.ConversationState, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	start := s.now()
	log := s.logger.With(zap.String("session_id", sessionID))

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		metrics.RecordTurn("error")
		return nil, fmt.Errorf("load session: %w", err)
	}

	state, err := s.runner.Run(ctx, sess.History, message)
	if err != nil {
		metrics.RecordTurn("error")
		log.Error("turn failed", zap.Error(err))
		return nil, err
	}

	now := s.now()
	if err := s.store.Put(ctx, sessionID, sess.Advance(state, now)); err != nil {
		metrics.RecordTurn("error")
		return nil, fmt.Errorf("save session: %w", err)
	}

	entry := &model.InteractionEntry{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Timestamp: now.UTC(),
		SessionID: sessionID,
		UserInput: message,
		State:     state,
	}
	if err := s.journal.Append(ctx, entry); err != nil {
		metrics.JournalErrorsTotal.Inc()
		log.Warn("failed to journal interaction", zap.Error(err))
	}

	metrics.RecordTurn("success")
	log.Info("turn completed",
		zap.String("mode", string(state.Mode)),
		zap.Int("turns", sess.Turns+1),
		zap.Duration("duration", now.Sub(start)))

	return &state, nil
}

// Chat answers a transport request.
func (s *ChatService) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	state, err := s.Ask(ctx, req.SessionID, req.Message)
	if err != nil {
		return nil, err
	}
	return &model.ChatResponse{Answer: Answer(state)}, nil
}

// Session returns the stored memory of sessionID.
func (s *ChatService) Session(ctx context.Context, sessionID string) (model.Session, error) {
	if sessionID == "" {
		return model.Session{}, ErrEmptySession
	}
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// Answer returns the text shown to the student for a finished turn.
func Answer(state *model.ConversationState) string {
	if state == nil {
		return model.NoAnswerPlaceholder
	}
	if answer := strings.TrimSpace(state.FinalAnswer); answer != "" {
		return answer
	}
	return model.NoAnswerPlaceholder
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptySession) ||
		errors.Is(err, tutor.ErrEmptyInput) ||
		errors.Is(err, session.ErrEmptyKey)
}
