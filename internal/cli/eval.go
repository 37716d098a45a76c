package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/capitalize-ai/educhat/internal/model"
	"github.com/capitalize-ai/educhat/internal/tutor"
	"github.com/capitalize-ai/educhat/pkg/logger"
)

// EvalQuestions cover one question per branch of the tutor.
var EvalQuestions = []string{
	"Explain the relational model in simple terms.",
	"Give me 3 practice questions about SQL joins.",
	"When is the midterm exam?",
}

// EvalConfig is one set of generation settings to compare.
type EvalConfig struct {
	Label       string
	Temperature float64
	TopP        float64
}

// DefaultEvalConfigs compares a conservative and a creative setting.
func DefaultEvalConfigs() []EvalConfig {
	return []EvalConfig{
		{Label: "low_temp", Temperature: 0.1, TopP: 0.85},
		{Label: "high_temp", Temperature: 0.7, TopP: 0.95},
	}
}

// EvalResult is one line of a results file.
type EvalResult struct {
	Question    string     `json:"question"`
	Mode        model.Mode `json:"mode,omitempty"`
	FinalAnswer string     `json:"final_answer"`
	Error       string     `json:"error,omitempty"`
}

// TurnRunner answers a question on top of a history.
type TurnRunner interface {
	Run(ctx context.Context, history, input string) (model.ConversationState, error)
}

// Evaluator runs the evaluation questions under several configs.
type Evaluator struct {
	// NewRunner builds a tutor for the given generation settings.
	NewRunner func(opts tutor.Options) TurnRunner
	Base      tutor.Options
	Questions []string
	OutDir    string
	Logger    *logger.Logger
}

// Run writes results_<label>.json for every config and returns the paths.
func (e *Evaluator) Run(ctx context.Context, configs []EvalConfig) ([]string, error) {
	log := e.Logger
	if log == nil {
		log = logger.NewNop()
	}
	questions := e.Questions
	if len(questions) == 0 {
		questions = EvalQuestions
	}

	if err := os.MkdirAll(e.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create eval dir: %w", err)
	}

	var paths []string
	for _, cfg := range configs {
		opts := e.Base
		opts.Temperature = cfg.Temperature
		opts.TopP = cfg.TopP
		runner := e.NewRunner(opts)

		// Questions of one config share a conversation.
		var history string
		results := make([]EvalResult, 0, len(questions))
		for _, q := range questions {
			if err := ctx.Err(); err != nil {
				return paths, err
			}
			state, err := runner.Run(ctx, history, q)
			res := EvalResult{Question: q}
			if err != nil {
				log.Warn("eval question failed", zap.String("label", cfg.Label), zap.String("question", q), zap.Error(err))
				res.Error = err.Error()
			} else {
				res.Mode = state.Mode
				res.FinalAnswer = state.FinalAnswer
				history = state.History
			}
			results = append(results, res)
		}

		path := filepath.Join(e.OutDir, "results_"+cfg.Label+".json")
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return paths, fmt.Errorf("marshal results: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write results: %w", err)
		}
		log.Info("eval results written", zap.String("label", cfg.Label), zap.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}
