package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"studybuddy/internal/ai"
	"studybuddy/internal/cache"
	"studybuddy/internal/cli"
	"studybuddy/internal/client"
	"studybuddy/internal/config"
	"studybuddy/internal/ingest"
	"studybuddy/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "studyctl:", err)
		os.Exit(1)
	}

	server := flag.String("server", cfg.ServerURL, "studybuddy server URL (STUDYBUDDY_SERVER)")
	local := flag.String("local", "", "use a local flashcard file instead of a server")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &cli.Runner{Out: os.Stdout, Err: os.Stderr}

	if *local != "" {
		cards, err := cache.NewLocal(*local)
		if err != nil {
			fmt.Fprintln(os.Stderr, "studyctl:", err)
			os.Exit(1)
		}
		r.Cards = cards
		r.Assistant = localAssistant(cfg)
	} else {
		cl := client.New(*server)
		r.Cards = cache.New(cl)
		r.Assistant = cli.RemoteAssistant{Client: cl}
	}

	code := r.Run(ctx, flag.Args())
	stop()
	os.Exit(code)
}

// localAssistant talks to the AI provider directly using the server's
// environment keys.
func localAssistant(cfg config.Config) cli.Assistant {
	log, err := logging.New("error")
	if err != nil {
		fmt.Fprintln(os.Stderr, "studyctl:", err)
		os.Exit(1)
	}

	gw := ai.New(ai.Config{
		BaseURL:   cfg.AIBaseURL,
		APIKey:    cfg.AIAPIKey,
		Model:     cfg.AIModel,
		Timeout:   cfg.AITimeout,
		MaxTokens: cfg.AIMaxTokens,
	}, log)
	return cli.LocalAssistant{
		AI: gw,
		Pipeline: &ingest.Pipeline{
			MaxBytes:   cfg.MaxUploadBytes,
			Extractor:  ingest.PDFExtractor{},
			Summarizer: gw,
			Log:        log,
		},
	}
}
