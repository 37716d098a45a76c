package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/educhat/internal/model"
	"github.com/capitalize-ai/educhat/internal/tutor"
)

type recordingAsker struct {
	sessions []string
	messages []string
	answer   string
	err      error
}

func (a *recordingAsker) Ask(_ context.Context, sessionID, message string) (*model.ConversationState, error) {
	a.sessions = append(a.sessions, sessionID)
	a.messages = append(a.messages, message)
	if a.err != nil {
		return nil, a.err
	}
	state := model.NewConversationState(message, "")
	state.FinalAnswer = a.answer
	return &state, nil
}

func TestIsExit(t *testing.T) {
	for _, word := range []string{"exit", "QUIT", " salir "} {
		assert.True(t, IsExit(word), word)
	}
	for _, word := range []string{"", "exit now", "bye"} {
		assert.False(t, IsExit(word), word)
	}
}

func TestRunChat(t *testing.T) {
	asker := &recordingAsker{answer: "A join combines tables."}
	var out strings.Builder

	err := RunChat(context.Background(), strings.NewReader("andres\nWhat is a join?\n\nexit\nignored\n"), &out, asker)
	require.NoError(t, err)

	assert.Equal(t, []string{"andres"}, asker.sessions)
	assert.Equal(t, []string{"What is a join?"}, asker.messages)
	assert.Contains(t, out.String(), "EduChat:\nA join combines tables.")
	assert.Contains(t, out.String(), "Bye!")
}

func TestRunChat_DefaultSessionAndEOF(t *testing.T) {
	asker := &recordingAsker{}
	var out strings.Builder

	err := RunChat(context.Background(), strings.NewReader("\nfirst\nsecond"), &out, asker)
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultSession, DefaultSession}, asker.sessions)
	assert.Contains(t, out.String(), model.NoAnswerPlaceholder)
}

func TestRunChat_ErrorKeepsLooping(t *testing.T) {
	asker := &recordingAsker{err: errors.New("model offline")}
	var out strings.Builder

	err := RunChat(context.Background(), strings.NewReader("s\none\ntwo\nquit\n"), &out, asker)
	require.NoError(t, err)

	assert.Len(t, asker.messages, 2)
	assert.Contains(t, out.String(), "[error] model offline")
}

type optsRunner struct {
	opts      tutor.Options
	histories []string
}

func (r *optsRunner) Run(_ context.Context, history, input string) (model.ConversationState, error) {
	r.histories = append(r.histories, history)
	state := model.NewConversationState(input, history)
	if strings.Contains(input, "fail") {
		return state, errors.New("boom")
	}
	state.Mode = model.ModeFAQ
	state.FinalAnswer = fmt.Sprintf("%s @ %.1f", input, r.opts.Temperature)
	state.History = model.AppendTurn(history, input, state.FinalAnswer)
	return state, nil
}

func TestEvaluator_Run(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "eval")
	var seen []tutor.Options
	var runners []*optsRunner
	e := &Evaluator{
		NewRunner: func(opts tutor.Options) TurnRunner {
			seen = append(seen, opts)
			r := &optsRunner{opts: opts}
			runners = append(runners, r)
			return r
		},
		Base:      tutor.Options{Model: "m", MaxTokens: 10, K: 2},
		Questions: []string{"q1", "please fail", "q3"},
		OutDir:    dir,
	}

	paths, err := e.Run(context.Background(), DefaultEvalConfigs())
	require.NoError(t, err)

	require.Equal(t, []string{
		filepath.Join(dir, "results_low_temp.json"),
		filepath.Join(dir, "results_high_temp.json"),
	}, paths)

	require.Len(t, seen, 2)
	assert.InDelta(t, 0.1, seen[0].Temperature, 1e-9)
	assert.InDelta(t, 0.85, seen[0].TopP, 1e-9)
	assert.InDelta(t, 0.7, seen[1].Temperature, 1e-9)
	assert.Equal(t, "m", seen[1].Model)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	var results []EvalResult
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 3)
	assert.Equal(t, "q1", results[0].Question)
	assert.Equal(t, model.ModeFAQ, results[0].Mode)
	assert.Equal(t, "q1 @ 0.1", results[0].FinalAnswer)
	assert.Equal(t, "boom", results[1].Error)
	assert.Empty(t, results[1].FinalAnswer)

	// Each config threads its own history; a failed turn adds nothing.
	require.Len(t, runners, 2)
	for _, r := range runners {
		require.Len(t, r.histories, 3)
		assert.Equal(t, "", r.histories[0])
		assert.Equal(t, r.histories[1], r.histories[2])
		assert.Contains(t, r.histories[2], "User: q1")
	}
	assert.Contains(t, runners[1].histories[2], "@ 0.7")
}

func TestEvaluator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := &Evaluator{
		NewRunner: func(opts tutor.Options) TurnRunner { return &optsRunner{opts: opts} },
		OutDir:    t.TempDir(),
	}
	_, err := e.Run(ctx, DefaultEvalConfigs())
	assert.ErrorIs(t, err, context.Canceled)
}
