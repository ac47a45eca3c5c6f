package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"HTTP_ADDR", "LOG_LEVEL", "STORE_DRIVER", "DATABASE_URL",
		"AI_BASE_URL", "AI_API_KEY", "AI_MODEL", "AI_TIMEOUT", "AI_MAX_TOKENS",
		"MAX_UPLOAD_BYTES", "CORS_ALLOWED_ORIGINS", "CORS_ALLOW_CREDENTIALS",
		"STUDYBUDDY_SERVER",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, DefaultAIBaseURL, cfg.AIBaseURL)
	assert.Equal(t, DefaultAIModel, cfg.AIModel)
	assert.Empty(t, cfg.AIAPIKey)
	assert.Equal(t, 15*time.Second, cfg.AITimeout)
	assert.Equal(t, 500, cfg.AIMaxTokens)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.CORSAllowCredentials)
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("AI_BASE_URL", "http://llm.local/v1/")
	t.Setenv("AI_API_KEY", "secret")
	t.Setenv("AI_TIMEOUT", "2s")
	t.Setenv("AI_MAX_TOKENS", "128")
	t.Setenv("MAX_UPLOAD_BYTES", "524288")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")
	t.Setenv("STUDYBUDDY_SERVER", "http://study.test:8080/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "studybuddy.db", cfg.DatabaseURL)
	assert.Equal(t, "http://llm.local/v1", cfg.AIBaseURL)
	assert.Equal(t, "secret", cfg.AIAPIKey)
	assert.Equal(t, 2*time.Second, cfg.AITimeout)
	assert.Equal(t, 128, cfg.AIMaxTokens)
	assert.Equal(t, int64(524288), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.CORSAllowCredentials)
	assert.Equal(t, "http://study.test:8080", cfg.ServerURL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"unknown driver":        {"STORE_DRIVER", "mongo"},
		"postgres without dsn":  {"STORE_DRIVER", "postgres"},
		"zero timeout":          {"AI_TIMEOUT", "0s"},
		"timeout without unit":  {"AI_TIMEOUT", "15"},
		"sub-second timeout":    {"AI_TIMEOUT", "500ms"},
		"garbage timeout":       {"AI_TIMEOUT", "soon"},
		"negative upload limit": {"MAX_UPLOAD_BYTES", "-1"},
		"zero max tokens":       {"AI_MAX_TOKENS", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadTimeoutFloor(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_TIMEOUT", "1s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MinAITimeout, cfg.AITimeout)

	t.Setenv("AI_TIMEOUT", "15")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI_TIMEOUT")
	assert.Contains(t, err.Error(), "unit")
}
