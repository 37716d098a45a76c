// Package prompt renders the tutor's fixed prompt templates.
package prompt

import (
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

// Name identifies one of the fixed templates.
type Name string

const (
	Router     Name = "router"
	FAQ        Name = "faq"
	Concept    Name = "concept"
	Structured Name = "structured"
)

// Template variable names.
const (
	VarUserInput        = "user_input"
	VarHistory          = "history"
	VarRetrievedContext = "retrieved_context"
	VarDraftAnswer      = "draft_answer"
)

var (
	// ErrUnknownTemplate is returned for a Name with no template.
	ErrUnknownTemplate = errors.New("unknown prompt template")

	// ErrMissingVariable is returned when a declared input is not supplied.
	// An empty string counts as supplied.
	ErrMissingVariable = errors.New("missing prompt variable")
)

// Values maps template variables to their text.
type Values map[string]string

// Renderer fills the fixed templates.
type Renderer struct {
	templates map[Name]prompts.PromptTemplate
}

// NewRenderer builds the renderer with the course templates.
func NewRenderer() *Renderer {
	return &Renderer{
		templates: map[Name]prompts.PromptTemplate{
			Router: newTemplate(routerTemplate, VarUserInput),
			FAQ: withPartials(newTemplate(faqTemplate, VarUserInput, VarHistory), map[string]any{
				"course_knowledge": CourseKnowledge,
			}),
			Concept:    newTemplate(conceptTemplate, VarUserInput, VarHistory, VarRetrievedContext),
			Structured: newTemplate(structuredTemplate, VarUserInput, VarDraftAnswer, VarRetrievedContext),
		},
	}
}

func newTemplate(text string, vars ...string) prompts.PromptTemplate {
	return prompts.PromptTemplate{
		Template:       text,
		InputVariables: vars,
		TemplateFormat: prompts.TemplateFormatGoTemplate,
	}
}

func withPartials(t prompts.PromptTemplate, partials map[string]any) prompts.PromptTemplate {
	t.PartialVariables = partials
	return t
}

// Variables returns the input variables a template declares.
func (r *Renderer) Variables(name Name) []string {
	t, ok := r.templates[name]
	if !ok {
		return nil
	}
	return append([]string(nil), t.InputVariables...)
}

// Render produces the prompt text for name.
func (r *Renderer) Render(name Name, values Values) (string, error) {
	t, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	args := make(map[string]any, len(t.InputVariables))
	for _, v := range t.InputVariables {
		val, ok := values[v]
		if !ok {
			return "", fmt.Errorf("%w: %s needs %q", ErrMissingVariable, name, v)
		}
		args[v] = val
	}

	out, err := t.Format(args)
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return out, nil
}
