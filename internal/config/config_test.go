package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	for _, key := range []string{"PORT", "LLM_PROVIDER", "RETRIEVAL_K", "STRUCTURED_STRICT", "SESSION_BACKEND", "LLM_TEMPERATURE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, 2, cfg.RetrievalK)
	assert.True(t, cfg.StructuredStrict)
	assert.Equal(t, "memory", cfg.SessionBackend)
	assert.InDelta(t, 0.2, cfg.LLMTemperature, 1e-9)
	assert.False(t, cfg.UsesNATS())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("RETRIEVAL_K", "4")
	t.Setenv("LLM_TOP_P", "0.5")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("SESSION_BACKEND", "nats")
	t.Setenv("STRUCTURED_STRICT", "false")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 4, cfg.RetrievalK)
	assert.InDelta(t, 0.5, cfg.LLMTopP, 1e-9)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.StructuredStrict)
	assert.True(t, cfg.UsesNATS())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RETRIEVAL_K", "many")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")

	cfg := Load()

	assert.Equal(t, 2, cfg.RetrievalK)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	assert.Equal(t, []string{"http://localhost:8080"}, Load().CORSAllowedOrigins)

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, Load().CORSAllowedOrigins)

	t.Setenv("CORS_ALLOWED_ORIGINS", " , ")
	assert.Equal(t, []string{"http://localhost:8080"}, Load().CORSAllowedOrigins)
}
