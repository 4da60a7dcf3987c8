package handler

import (
	"context"
	"net/http"
	"time"

	"deadman/api/health"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	var (
		services []health.Component
		ok       = true
	)
	if h.health != nil {
		services, ok = h.health.Snapshot()
		if len(services) == 0 {
			// first poll has not finished yet
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			h.health.PollAll(ctx)
			services, ok = h.health.Snapshot()
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !ok {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	resp := map[string]interface{}{
		"status":   status,
		"services": services,
	}
	if h.cfg != nil {
		resp["startedAt"] = h.cfg.StartedAt.UTC().Format(time.RFC3339)
		resp["uptimeSeconds"] = int64(h.cfg.Uptime().Seconds())
	}
	writeJSONStatus(w, code, resp)
}
