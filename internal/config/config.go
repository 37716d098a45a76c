// Package config provides environment configuration for the tutor binaries.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// LLM settings
	LLMProvider    string
	LLMModel       string
	LLMTemperature float64
	LLMTopP        float64
	LLMMaxTokens   int
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	AnthropicKey   string
	OllamaBaseURL  string

	// Retrieval settings
	EmbeddingProvider string
	EmbeddingModel    string
	IndexDir          string
	IndexCollection   string
	RetrievalK        int

	// Structured answers must be valid JSON objects when set.
	StructuredStrict bool

	// Session store
	SessionBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Interaction log
	LogDir      string
	JournalNATS bool

	// JWT settings
	JWTSecret string

	// Browser origins allowed to call the API
	CORSAllowedOrigins []string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel    string
	Environment string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment
// variables take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 300*time.Second),

		// LLM
		LLMProvider:    getEnv("LLM_PROVIDER", "ollama"),
		LLMModel:       getEnv("LLM_MODEL", ""),
		LLMTemperature: getFloatEnv("LLM_TEMPERATURE", 0.2),
		LLMTopP:        getFloatEnv("LLM_TOP_P", 0.9),
		LLMMaxTokens:   getIntEnv("LLM_MAX_TOKENS", 1024),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
		OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434/v1"),

		// Retrieval
		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""),
		IndexDir:          getEnv("INDEX_DIR", "data/processed/chromem"),
		IndexCollection:   getEnv("INDEX_COLLECTION", "course"),
		RetrievalK:        getIntEnv("RETRIEVAL_K", 2),
		StructuredStrict:  getBoolEnv("STRUCTURED_STRICT", true),

		// Sessions
		SessionBackend: getEnv("SESSION_BACKEND", "memory"),
		SessionTTL:     getDurationEnv("SESSION_TTL", 0),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getIntEnv("REDIS_DB", 0),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Interaction log
		LogDir:      getEnv("LOG_DIR", "logs/interactions"),
		JournalNATS: getBoolEnv("JOURNAL_NATS", false),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// CORS
		CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8080"}),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENV", "production"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// IsDevelopment reports whether ENV selects the console logger.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UsesNATS reports whether any configured component needs a NATS connection.
func (c *Config) UsesNATS() bool {
	return c.SessionBackend == "nats" || c.JournalNATS
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
