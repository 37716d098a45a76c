// Package tutor implements the conversation state machine that routes a
// student question through one answering branch and folds the result into
// the session history.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/educhat/internal/llm"
	"github.com/capitalize-ai/educhat/internal/model"
	"github.com/capitalize-ai/educhat/internal/prompt"
	"github.com/capitalize-ai/educhat/internal/retrieval"
	"github.com/capitalize-ai/educhat/pkg/logger"
	"github.com/capitalize-ai/educhat/pkg/metrics"
)

const tracerName = "github.com/capitalize-ai/educhat/internal/tutor"

var (
	// ErrEmptyInput is returned when the question is blank.
	ErrEmptyInput = errors.New("user input is empty")

	// ErrMalformedStructuredAnswer is returned in strict mode when the
	// structuring call answers with something other than a JSON object.
	ErrMalformedStructuredAnswer = errors.New("structured answer is not valid JSON")
)

// Step names a state of the machine.
type Step string

const (
	StepStart    Step = "start"
	StepClassify Step = "classify"
	StepFAQ      Step = "faq"
	StepConcept  Step = "concept"
	StepPractice Step = "practice"
	StepRemember Step = "remember"
	StepDone     Step = "done"
)

// stepStructure labels the structuring call in metrics; it runs inside the
// concept and practice steps.
const stepStructure Step = "structure"

// Completer is the language model the machine talks to.
type Completer interface {
	Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Retriever returns course passages similar to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// Renderer fills the named prompt templates.
type Renderer interface {
	Render(name prompt.Name, values prompt.Values) (string, error)
}

// Options are the generation settings used for every model call.
type Options struct {
	Model            string
	Temperature      float64
	TopP             float64
	MaxTokens        int
	K                int
	StrictStructured bool
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Temperature:      0.2,
		TopP:             0.9,
		MaxTokens:        1024,
		K:                retrieval.DefaultK,
		StrictStructured: true,
	}
}

type stepFunc func(ctx context.Context, state model.ConversationState) (model.ConversationState, Step, error)

// Machine runs one turn at a time. It holds no per-session data and is
// safe for concurrent use when its collaborators are.
type Machine struct {
	model     Completer
	retriever Retriever
	prompts   Renderer
	opts      Options
	logger    *logger.Logger
	tracer    trace.Tracer
	steps     map[Step]stepFunc
}

// New creates a state machine.
func New(completer Completer, retriever Retriever, prompts Renderer, opts Options, log *logger.Logger) *Machine {
	if opts.K <= 0 {
		opts.K = retrieval.DefaultK
	}
	if log == nil {
		log = logger.NewNop()
	}

	m := &Machine{
		model:     completer,
		retriever: retriever,
		prompts:   prompts,
		opts:      opts,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}
	m.steps = map[Step]stepFunc{
		StepStart:    m.start,
		StepClassify: m.classify,
		StepFAQ:      m.faq,
		StepConcept:  m.concept,
		StepPractice: m.practice,
		StepRemember: m.remember,
	}
	return m
}

// Options returns the generation settings of the machine.
func (m *Machine) Options() Options {
	return m.opts
}

// Run answers input given the prior session history and returns the
// terminal state. On error no partial state is meant to be persisted.
func (m *Machine) Run(ctx context.Context, history, input string) (model.ConversationState, error) {
	ctx, span := m.tracer.Start(ctx, "tutor.Run")
	defer span.End()

	state := model.NewConversationState(input, history)
	step := StepStart

	for step != StepDone {
		fn, ok := m.steps[step]
		if !ok {
			return state, fmt.Errorf("unknown step %q", step)
		}

		next, nextStep, err := m.runStep(ctx, step, fn, state)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return state, err
		}
		state, step = next, nextStep
	}

	span.SetAttributes(attribute.String("tutor.mode", string(state.Mode)))
	return state, nil
}

func (m *Machine) runStep(ctx context.Context, step Step, fn stepFunc, state model.ConversationState) (model.ConversationState, Step, error) {
	ctx, span := m.tracer.Start(ctx, "tutor."+string(step))
	defer span.End()

	next, nextStep, err := fn(ctx, state)
	if err != nil {
		err = fmt.Errorf("%s: %w", step, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, step, err
	}

	m.logger.Debug("tutor step",
		zap.String("step", string(step)),
		zap.String("next", string(nextStep)))
	return next, nextStep, nil
}

func (m *Machine) start(_ context.Context, state model.ConversationState) (model.ConversationState, Step, error) {
	if strings.TrimSpace(state.UserInput) == "" {
		return state, StepStart, ErrEmptyInput
	}
	return state, StepClassify, nil
}

func (m *Machine) classify(ctx context.Context, state model.ConversationState) (model.ConversationState, Step, error) {
	text, err := m.prompts.Render(prompt.Router, prompt.Values{
		prompt.VarUserInput: state.UserInput,
	})
	if err != nil {
		return state, StepClassify, err
	}

	raw, err := m.complete(ctx, StepClassify, text)
	if err != nil {
		return state, StepClassify, err
	}

	next := state
	next.Mode = model.ParseMode(raw)
	metrics.RecordBranch(string(next.Mode))
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("tutor.mode", string(next.Mode)))

	switch next.Mode {
	case model.ModeFAQ:
		return next, StepFAQ, nil
	case model.ModePractice:
		return next, StepPractice, nil
	default:
		return next, StepConcept, nil
	}
}

func (m *Machine) faq(ctx context.Context, state model.ConversationState) (model.ConversationState, Step, error) {
	text, err := m.prompts.Render(prompt.FAQ, prompt.Values{
		prompt.VarUserInput: state.UserInput,
		prompt.VarHistory:   state.History,
	})
	if err != nil {
		return state, StepFAQ, err
	}

	answer, err := m.complete(ctx, StepFAQ, text)
	if err != nil {
		return state, StepFAQ, err
	}

	next := state
	next.FinalAnswer = answer
	return next, StepRemember, nil
}

func (m *Machine) concept(ctx context.Context, state model.ConversationState) (model.ConversationState, Step, error) {
	retrieved, err := m.retrieve(ctx, state.UserInput)
	if err != nil {
		return state, StepConcept, err
	}

	text, err := m.prompts.Render(prompt.Concept, prompt.Values{
		prompt.VarUserInput:        state.UserInput,
		prompt.VarHistory:          state.History,
		prompt.VarRetrievedContext: retrieved,
	})
	if err != nil {
		return state, StepConcept, err
	}

	draft, err := m.complete(ctx, StepConcept, text)
	if err != nil {
		return state, StepConcept, err
	}

	structured, err := m.structure(ctx, state.UserInput, draft, retrieved)
	if err != nil {
		return state, StepConcept, err
	}

	next := state
	next.RetrievedContext = model.StringPtr(retrieved)
	next.DraftAnswer = model.StringPtr(draft)
	next.StructuredAnswer = structured
	next.FinalAnswer = draft
	if structured != nil {
		next.FinalAnswer = *structured
	}
	return next, StepRemember, nil
}

func (m *Machine) practice(ctx context.Context, state model.ConversationState) (model.ConversationState, Step, error) {
	retrieved, err := m.retrieve(ctx, state.UserInput)
	if err != nil {
		return state, StepPractice, err
	}

	structured, err := m.structure(ctx, state.UserInput, "", retrieved)
	if err != nil {
		return state, StepPractice, err
	}

	next := state
	next.RetrievedContext = model.StringPtr(retrieved)
	next.StructuredAnswer = structured
	next.FinalAnswer = model.Deref(structured)
	return next, StepRemember, nil
}

func (m *Machine) remember(_ context.Context, state model.ConversationState) (model.ConversationState, Step, error) {
	next := state
	next.History = model.AppendTurn(state.History, state.UserInput, state.FinalAnswer)
	return next, StepDone, nil
}

// retrieve returns the joined passages for query; no passages is "".
func (m *Machine) retrieve(ctx context.Context, query string) (string, error) {
	passages, err := m.retriever.Search(ctx, query, m.opts.K)
	if err != nil {
		return "", fmt.Errorf("retrieval: %w", err)
	}
	return retrieval.Join(passages), nil
}

// structure runs the structuring prompt. A nil result means the model
// returned nothing usable.
func (m *Machine) structure(ctx context.Context, input, draft, retrieved string) (*string, error) {
	text, err := m.prompts.Render(prompt.Structured, prompt.Values{
		prompt.VarUserInput:        input,
		prompt.VarDraftAnswer:      draft,
		prompt.VarRetrievedContext: retrieved,
	})
	if err != nil {
		return nil, err
	}

	raw, err := m.complete(ctx, stepStructure, text)
	if err != nil {
		return nil, err
	}

	normalized := model.NormalizeStructured(raw)
	if normalized == "" {
		return nil, nil
	}
	if m.opts.StrictStructured {
		if _, err := model.ParseStructured(normalized); err != nil {
			m.logger.Warn("structured answer rejected", zap.Int("length", len(normalized)))
			return nil, fmt.Errorf("%w: %w", ErrMalformedStructuredAnswer, err)
		}
	}
	return model.StringPtr(normalized), nil
}

func (m *Machine) complete(ctx context.Context, step Step, text string) (string, error) {
	start := time.Now()

	resp, err := m.model.Complete(ctx, &llm.CompletionRequest{
		Model:       m.opts.Model,
		Messages:    llm.UserPrompt(text),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: m.opts.Temperature,
		TopP:        m.opts.TopP,
	})
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordLLMCall(m.opts.Model, string(step), "error", duration, 0, 0)
		return "", fmt.Errorf("model call: %w", err)
	}

	modelName := resp.Model
	if modelName == "" {
		modelName = m.opts.Model
	}
	metrics.RecordLLMCall(modelName, string(step), "success", duration, resp.TokensIn, resp.TokensOut)

	return resp.Content, nil
}
