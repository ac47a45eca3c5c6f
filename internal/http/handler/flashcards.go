package handler

import (
	"fmt"
	"net/http"
	"time"

	"studybuddy/internal/flashcard"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxImportBody = 8 << 20

type FlashcardHandler struct {
	Svc *flashcard.Service
	Log *zap.Logger
}

type flashcardReq struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type deletedDTO struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

type importedDTO struct {
	Imported int `json:"imported"`
}

func (h *FlashcardHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Svc.List(r.Context())
	if err != nil {
		writeError(w, r, h.Log, "failed to load flashcards", err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *FlashcardHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, "failed to load flashcard", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *FlashcardHandler) Create(w http.ResponseWriter, r *http.Request) {
	const action = "failed to add flashcard"

	var req flashcardReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, action, err)
		return
	}
	c, err := h.Svc.Create(r.Context(), req.Question, req.Answer)
	if err != nil {
		writeError(w, r, h.Log, action, err)
		return
	}
	h.Log.Info("flashcard created", zap.String("id", c.ID))
	writeJSON(w, http.StatusCreated, c)
}

func (h *FlashcardHandler) Update(w http.ResponseWriter, r *http.Request) {
	const action = "failed to update flashcard"

	var req flashcardReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, action, err)
		return
	}
	c, err := h.Svc.Update(r.Context(), chi.URLParam(r, "id"), req.Question, req.Answer)
	if err != nil {
		writeError(w, r, h.Log, action, err)
		return
	}
	h.Log.Info("flashcard updated", zap.String("id", c.ID))
	writeJSON(w, http.StatusOK, c)
}

func (h *FlashcardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.Log, "failed to delete flashcard", err)
		return
	}
	h.Log.Info("flashcard deleted", zap.String("id", id))
	writeJSON(w, http.StatusOK, deletedDTO{Deleted: true, ID: id})
}

func (h *FlashcardHandler) Review(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.MarkReviewed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, "failed to mark flashcard reviewed", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *FlashcardHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Svc.Export(r.Context())
	if err != nil {
		writeError(w, r, h.Log, "failed to export flashcards", err)
		return
	}

	name := fmt.Sprintf("flashcards-%s.json", doc.ExportedAt.Format(time.DateOnly))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if err := flashcard.EncodeExport(w, doc); err != nil {
		h.Log.Warn("export write failed", zap.Error(err))
	}
}

func (h *FlashcardHandler) Import(w http.ResponseWriter, r *http.Request) {
	const action = "failed to import flashcards"

	doc, err := flashcard.DecodeExport(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		writeError(w, r, h.Log, action, err)
		return
	}
	n, err := h.Svc.Import(r.Context(), doc)
	if err != nil {
		writeError(w, r, h.Log, action, err)
		return
	}
	h.Log.Info("flashcards imported", zap.Int("count", n))
	writeJSON(w, http.StatusOK, importedDTO{Imported: n})
}
