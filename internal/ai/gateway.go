package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"studybuddy/internal/apperr"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	MinQuestionLen = 1
	MaxQuestionLen = 4000

	systemPrompt = "You are a helpful study assistant. Answer the student's question clearly and " +
		"accurately, using short paragraphs or bullet points where they help understanding."
	summaryPrompt = "Summarize this PDF content in 3-5 key points:\n\n"

	temperature = 0.7

	DefaultTimeout = 15 * time.Second
)

// Config describes the provider. Timeout bounds each call; zero or negative
// means DefaultTimeout.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Gateway sends one prompt to an OpenAI-compatible chat-completions
// endpoint per call. It keeps no conversation history and never retries.
type Gateway struct {
	cfg    Config
	client *openai.Client
	log    *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	// The context deadline is the real bound; this only catches a stuck body read.
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout + time.Second}

	return &Gateway{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
		log:    log,
	}
}

func (g *Gateway) Configured() bool { return g.cfg.APIKey != "" }

func (g *Gateway) Model() string { return g.cfg.Model }

// ValidateQuestion trims q and checks its length.
func ValidateQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	n := utf8.RuneCountInString(q)
	if n < MinQuestionLen {
		return "", fmt.Errorf("%w: question is required", apperr.ErrValidation)
	}
	if n > MaxQuestionLen {
		return "", fmt.Errorf("%w: question exceeds %d characters", apperr.ErrValidation, MaxQuestionLen)
	}
	return q, nil
}

func (g *Gateway) Ask(ctx context.Context, question string) (string, error) {
	q, err := ValidateQuestion(question)
	if err != nil {
		return "", err
	}
	return g.complete(ctx, systemPrompt, q)
}

func (g *Gateway) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: nothing to summarize", apperr.ErrEmptyContent)
	}
	return g.complete(ctx, systemPrompt, summaryPrompt+text)
}

func (g *Gateway) complete(ctx context.Context, system, user string) (string, error) {
	if !g.Configured() {
		return "", fmt.Errorf("%w: set AI_API_KEY", apperr.ErrProviderNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: temperature,
	})
	elapsed := time.Since(start)

	if err != nil {
		g.log.Warn("AI provider call failed",
			zap.String("model", g.cfg.Model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: timed out after %s", apperr.ErrProviderUnavailable, g.cfg.Timeout)
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: provider returned status %d", apperr.ErrProviderUnavailable, apiErr.HTTPStatusCode)
		}
		return "", fmt.Errorf("%w: %v", apperr.ErrProviderUnavailable, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		g.log.Warn("AI provider returned no content",
			zap.String("model", g.cfg.Model),
			zap.Int("choices", len(resp.Choices)))
		return "", apperr.ErrProviderEmptyResponse
	}

	g.log.Debug("AI provider call completed",
		zap.String("model", g.cfg.Model),
		zap.Duration("elapsed", elapsed),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}
