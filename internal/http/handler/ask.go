package handler

import (
	"context"
	"net/http"

	"studybuddy/internal/ai"

	"go.uber.org/zap"
)

type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
	Model() string
}

type AskHandler struct {
	AI  Asker
	Log *zap.Logger
}

type askReq struct {
	Question string `json:"question"`
}

type askDTO struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	const action = "failed to answer question"

	var req askReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, action, err)
		return
	}
	// Rejected questions never reach the provider.
	q, err := ai.ValidateQuestion(req.Question)
	if err != nil {
		writeError(w, r, h.Log, action, err)
		return
	}

	answer, err := h.AI.Ask(r.Context(), q)
	if err != nil {
		writeError(w, r, h.Log, action, err)
		return
	}
	writeJSON(w, http.StatusOK, askDTO{Response: answer, Model: h.AI.Model()})
}
