// Package app wires the tutor and its backends from configuration. Both the
// API server and the command line tool start from here.
package app

import (
	"context"
	"errors"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/capitalize-ai/educhat/internal/config"
	"github.com/capitalize-ai/educhat/internal/handler"
	"github.com/capitalize-ai/educhat/internal/journal"
	"github.com/capitalize-ai/educhat/internal/llm"
	natsclient "github.com/capitalize-ai/educhat/internal/nats"
	"github.com/capitalize-ai/educhat/internal/prompt"
	"github.com/capitalize-ai/educhat/internal/retrieval"
	"github.com/capitalize-ai/educhat/internal/service"
	"github.com/capitalize-ai/educhat/internal/session"
	"github.com/capitalize-ai/educhat/internal/tutor"
	"github.com/capitalize-ai/educhat/pkg/logger"
)

// Session store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNATS   = "nats"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Index   *retrieval.Index
	Tutor   *tutor.Machine
	Chat    *service.ChatService
	Store   session.Store
	Streams *natsclient.StreamManager

	completer tutor.Completer
	prompts   *prompt.Renderer
	embed     chromem.EmbeddingFunc
	checks    map[string]handler.Check
	closers   []func() error
}

// Option customizes New.
type Option func(*App)

// WithCompleter replaces the configured language model.
func WithCompleter(c tutor.Completer) Option {
	return func(a *App) {
		a.completer = c
	}
}

// New builds the application from cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{
		Config:  cfg,
		Logger:  log,
		prompts: prompt.NewRenderer(),
		checks:  map[string]handler.Check{},
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	if a.completer == nil {
		client, err := llm.NewClient(llm.Options{
			Provider:      llm.Provider(cfg.LLMProvider),
			OpenAIAPIKey:  cfg.OpenAIAPIKey,
			OpenAIBaseURL: cfg.OpenAIBaseURL,
			AnthropicKey:  cfg.AnthropicKey,
			OllamaBaseURL: cfg.OllamaBaseURL,
		})
		if err != nil {
			return fmt.Errorf("llm client: %w", err)
		}
		a.completer = client
	}

	embed, err := retrieval.NewEmbeddingFunc(retrieval.EmbeddingOptions{
		Provider:      cfg.EmbeddingProvider,
		Model:         cfg.EmbeddingModel,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		return fmt.Errorf("embeddings: %w", err)
	}
	a.embed = embed
	a.Index = retrieval.NewIndex(cfg.IndexDir, cfg.IndexCollection, embed, a.Logger)

	a.Tutor = a.Machine(a.TutorOptions())

	if cfg.UsesNATS() {
		if err := a.connectNATS(ctx); err != nil {
			return err
		}
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	a.Store = store

	a.Chat = service.NewChatService(a.Tutor, store, a.openJournal(), a.Logger)

	a.Logger.Info("application initialized",
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("model", a.Tutor.Options().Model),
		zap.String("session_backend", cfg.SessionBackend),
		zap.Bool("journal_nats", cfg.JournalNATS))
	return nil
}

// TutorOptions returns the generation settings from the configuration.
func (a *App) TutorOptions() tutor.Options {
	cfg := a.Config
	model := cfg.LLMModel
	if model == "" {
		model = llm.DefaultModel(llm.Provider(cfg.LLMProvider))
	}
	return tutor.Options{
		Model:            model,
		Temperature:      cfg.LLMTemperature,
		TopP:             cfg.LLMTopP,
		MaxTokens:        cfg.LLMMaxTokens,
		K:                cfg.RetrievalK,
		StrictStructured: cfg.StructuredStrict,
	}
}

// Machine returns a tutor sharing the app's model and index with opts
// as generation settings.
func (a *App) Machine(opts tutor.Options) *tutor.Machine {
	return tutor.New(a.completer, a.Index, a.prompts, opts, a.Logger)
}

// Builder returns an index builder writing to the configured index.
func (a *App) Builder() (*retrieval.Builder, error) {
	return retrieval.NewBuilder(a.Config.IndexDir, a.Config.IndexCollection, a.embed, a.Logger)
}

// Checks returns the readiness checks of the connected backends.
func (a *App) Checks() map[string]handler.Check {
	return a.checks
}

// Interactions returns the interaction log reader, or nil when turns are
// not published to NATS.
func (a *App) Interactions() handler.InteractionReader {
	if a.Streams == nil || !a.Config.JournalNATS {
		return nil
	}
	return a.Streams
}

func (a *App) connectNATS(ctx context.Context) error {
	cfg := a.Config

	client, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	a.closers = append(a.closers, func() error {
		client.Close()
		return nil
	})
	a.checks["nats"] = func(context.Context) error {
		if !client.IsConnected() {
			return errors.New("not connected")
		}
		return nil
	}

	a.Streams = natsclient.NewStreamManager(client)
	if cfg.JournalNATS {
		if err := a.Streams.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (session.Store, error) {
	cfg := a.Config

	switch cfg.SessionBackend {
	case BackendMemory, "":
		return session.NewMemoryStore(cfg.SessionTTL), nil
	case BackendRedis:
		store := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, session.WithTTL(cfg.SessionTTL))
		a.closers = append(a.closers, store.Close)
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.checks["redis"] = store.Ping
		return store, nil
	case BackendNATS:
		kv, err := a.Streams.EnsureKeyValue(ctx, natsclient.SessionBucket, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("session bucket: %w", err)
		}
		return session.NewKVStore(kv), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

func (a *App) openJournal() journal.Journal {
	var journals []journal.Journal

	if a.Config.LogDir != "" {
		file := journal.NewFileJournal(a.Config.LogDir)
		a.closers = append(a.closers, file.Close)
		journals = append(journals, file)
	}
	if a.Config.JournalNATS && a.Streams != nil {
		journals = append(journals, journal.NewStreamJournal(a.Streams))
	}

	switch len(journals) {
	case 0:
		return journal.Nop{}
	case 1:
		return journals[0]
	default:
		return journal.Multi(journals...)
	}
}

// Close releases every backend in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
