package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studybuddy/internal/ai"
	"studybuddy/internal/config"
	"studybuddy/internal/db"
	"studybuddy/internal/flashcard"
	httpx "studybuddy/internal/http"
	"studybuddy/internal/ingest"
	"studybuddy/internal/logging"

	"go.uber.org/zap"
)

func main() {
	cfg, cfgErr := config.Load()

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if cfgErr != nil {
		log.Fatal("invalid configuration", zap.Error(cfgErr))
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal("failed to open flashcard store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	cards := flashcard.NewService(store)

	gw := ai.New(ai.Config{
		BaseURL:   cfg.AIBaseURL,
		APIKey:    cfg.AIAPIKey,
		Model:     cfg.AIModel,
		Timeout:   cfg.AITimeout,
		MaxTokens: cfg.AIMaxTokens,
	}, log.Named("ai"))
	if !gw.Configured() {
		log.Warn("AI_API_KEY is not set; /api/ask and /api/pdf/upload will report provider_not_configured")
	}

	pipe := &ingest.Pipeline{
		MaxBytes:   cfg.MaxUploadBytes,
		Extractor:  ingest.PDFExtractor{},
		Summarizer: gw,
		Log:        log.Named("ingest"),
	}

	r := httpx.NewRouter(cfg, log, cards, gw, pipe)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver),
			zap.String("model", cfg.AIModel))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

// openStore picks the flashcard store for cfg.StoreDriver. The returned
// func releases any database handle.
func openStore(cfg config.Config) (flashcard.Store, func(), error) {
	if cfg.StoreDriver == "memory" {
		return flashcard.NewMemoryStore(), func() {}, nil
	}

	gdb, err := db.Connect(cfg.StoreDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		return nil, nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, nil, err
	}
	return &flashcard.GormStore{DB: gdb}, func() { _ = sqlDB.Close() }, nil
}
