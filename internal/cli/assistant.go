package cli

import (
	"context"
	"fmt"
	"io"

	"studybuddy/internal/ai"
	"studybuddy/internal/client"
	"studybuddy/internal/config"
	"studybuddy/internal/ingest"
)

// Assistant answers questions and summarizes PDFs, either through the
// server or in-process.
type Assistant interface {
	Ask(ctx context.Context, question string) (string, error)
	Summarize(ctx context.Context, filename string, r io.Reader) (ingest.Result, error)
}

type RemoteAssistant struct {
	Client *client.Client
}

func (a RemoteAssistant) Ask(ctx context.Context, question string) (string, error) {
	ans, err := a.Client.Ask(ctx, question)
	if err != nil {
		return "", err
	}
	return ans.Response, nil
}

func (a RemoteAssistant) Summarize(ctx context.Context, filename string, r io.Reader) (ingest.Result, error) {
	return a.Client.UploadPDF(ctx, filename, r)
}

// LocalAssistant calls the AI provider directly, for -local mode.
type LocalAssistant struct {
	AI       *ai.Gateway
	Pipeline *ingest.Pipeline
}

func (a LocalAssistant) Ask(ctx context.Context, question string) (string, error) {
	return a.AI.Ask(ctx, question)
}

func (a LocalAssistant) Summarize(ctx context.Context, filename string, r io.Reader) (ingest.Result, error) {
	limit := a.Pipeline.MaxBytes
	if limit <= 0 {
		limit = config.DefaultMaxUploadBytes
	}
	// One byte past the ceiling is enough for Validate to reject it.
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return ingest.Result{}, fmt.Errorf("read %s: %w", filename, err)
	}
	return a.Pipeline.Run(ctx, ingest.Upload{Filename: filename, Data: data})
}
