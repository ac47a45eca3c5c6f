package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"studybuddy/internal/apperr"

	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error errorDTO `json:"error"`
}

type errorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends the standard error body. action names the user-facing
// operation that failed, e.g. "failed to add flashcard".
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, action string, err error) {
	status := apperr.Status(err)
	msg := action
	if detail := apperr.Public(err); detail != "" {
		msg = action + ": " + detail
	}

	if status >= http.StatusInternalServerError {
		log.Error(action, zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Debug(action, zap.String("path", r.URL.Path), zap.Error(err))
	}

	writeJSON(w, status, errorBody{Error: errorDTO{Code: apperr.Code(err), Message: msg}})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return fmt.Errorf("%w: request body too large", apperr.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON body", apperr.ErrValidation)
	}
	return nil
}
