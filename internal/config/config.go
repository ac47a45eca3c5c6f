package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr string
	LogLevel string

	StoreDriver string
	DatabaseURL string

	AIBaseURL   string
	AIAPIKey    string
	AIModel     string
	AITimeout   time.Duration
	AIMaxTokens int

	MaxUploadBytes int64

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// ServerURL is where studyctl finds the API.
	ServerURL string
}

const (
	DefaultAIBaseURL      = "https://api.deepinfra.com/v1/openai"
	DefaultAIModel        = "meta-llama/Meta-Llama-3-70B-Instruct"
	DefaultMaxUploadBytes = 10 << 20
	DefaultServerURL      = "http://localhost:4000"

	MinAITimeout = time.Second
)

func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":4000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AI_BASE_URL", DefaultAIBaseURL)
	v.SetDefault("AI_API_KEY", "")
	v.SetDefault("AI_MODEL", DefaultAIModel)
	v.SetDefault("AI_TIMEOUT", "15s")
	v.SetDefault("AI_MAX_TOKENS", 500)
	v.SetDefault("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("CORS_ALLOW_CREDENTIALS", false)
	v.SetDefault("STUDYBUDDY_SERVER", DefaultServerURL)

	timeout, err := parseDuration(getString(v, "AI_TIMEOUT"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid AI_TIMEOUT: %w", err)
	}

	cfg := Config{
		HTTPAddr:             getString(v, "HTTP_ADDR"),
		LogLevel:             getString(v, "LOG_LEVEL"),
		StoreDriver:          strings.ToLower(getString(v, "STORE_DRIVER")),
		DatabaseURL:          getString(v, "DATABASE_URL"),
		AIBaseURL:            strings.TrimRight(getString(v, "AI_BASE_URL"), "/"),
		AIAPIKey:             getString(v, "AI_API_KEY"),
		AIModel:              getString(v, "AI_MODEL"),
		AITimeout:            timeout,
		AIMaxTokens:          v.GetInt("AI_MAX_TOKENS"),
		MaxUploadBytes:       v.GetInt64("MAX_UPLOAD_BYTES"),
		CORSAllowCredentials: v.GetBool("CORS_ALLOW_CREDENTIALS"),
		ServerURL:            strings.TrimRight(getString(v, "STUDYBUDDY_SERVER"), "/"),
	}

	origins := strings.Split(getString(v, "CORS_ALLOWED_ORIGINS"), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "memory":
	case "sqlite":
		if c.DatabaseURL == "" {
			c.DatabaseURL = "studybuddy.db"
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing env: DATABASE_URL (required for STORE_DRIVER=postgres)")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q (want memory, sqlite or postgres)", c.StoreDriver)
	}

	if c.AITimeout < MinAITimeout {
		return fmt.Errorf("invalid AI_TIMEOUT %s: must be at least %s", c.AITimeout, MinAITimeout)
	}
	if c.AIMaxTokens <= 0 {
		return fmt.Errorf("invalid AI_MAX_TOKENS: must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid MAX_UPLOAD_BYTES: must be positive")
	}
	if c.AIModel == "" {
		return fmt.Errorf("invalid AI_MODEL: must not be empty")
	}
	return nil
}

// parseDuration requires a unit, so "15" is an error rather than 15ns.
func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a duration with a unit, e.g. 15s", s)
	}
	return d, nil
}

func getString(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}
