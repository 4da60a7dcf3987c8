package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"deadman/api/cronexpr"
)

// ParseCron returns the approximation of a cron expression as-is. Invalid
// expressions are reported in the body with a 200.
func (h *Handler) ParseCron(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expression string `json:"expression"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, cronexpr.Approximate(req.Expression))
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		http.Error(w, "scheduler not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, h.scheduler.States())
}

func (h *Handler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		http.Error(w, "scheduler not initialized", http.StatusServiceUnavailable)
		return
	}
	if err := h.scheduler.Trigger(chi.URLParam(r, "name")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}
