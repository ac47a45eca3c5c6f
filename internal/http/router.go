package http

import (
	"net/http"

	"studybuddy/internal/config"
	"studybuddy/internal/flashcard"
	"studybuddy/internal/http/handler"
	mw "studybuddy/internal/http/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// AI is the part of the gateway the HTTP layer needs.
type AI interface {
	handler.Asker
	Configured() bool
}

func NewRouter(cfg config.Config, log *zap.Logger, cards *flashcard.Service, ai AI, pdf handler.Ingestor) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger(log))
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	health := &handler.HealthHandler{AIConfigured: ai.Configured, StoreDriver: cfg.StoreDriver}
	r.Get("/health", health.Health)
	r.Get("/api/health", health.Health)

	fh := &handler.FlashcardHandler{Svc: cards, Log: log}
	r.Route("/api/flashcards", func(r chi.Router) {
		r.Get("/", fh.List)
		r.Post("/", fh.Create)

		r.Get("/export", fh.Export)
		r.Post("/import", fh.Import)

		r.Get("/{id}", fh.Get)
		r.Put("/{id}", fh.Update)
		r.Delete("/{id}", fh.Delete)
		r.Post("/{id}/review", fh.Review)
	})

	ask := &handler.AskHandler{AI: ai, Log: log}
	r.Post("/api/ask", ask.Ask)
	r.Post("/api/ai/ask", ask.Ask)

	up := &handler.PDFHandler{Pipeline: pdf, MaxBytes: cfg.MaxUploadBytes, Log: log}
	r.Post("/api/pdf/upload", up.Upload)

	return r
}
