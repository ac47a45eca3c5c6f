package handler

import (
	"net/http"
	"time"
)

type HealthHandler struct {
	// AIConfigured reports whether a provider key is set.
	AIConfigured func() bool
	StoreDriver  string
}

type healthDTO struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ai := "unavailable"
	if h.AIConfigured != nil && h.AIConfigured() {
		ai = "available"
	}
	writeJSON(w, http.StatusOK, healthDTO{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Services: map[string]string{
			"ai":    ai,
			"store": h.StoreDriver,
		},
	})
}
