package handler

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"deadman/api/model"
)

// Ping accepts a liveness signal and answers before any processing. The
// response is the same for known and unknown ids.
func (h *Handler) Ping(typ model.PingType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ingest.Go(model.Signal{
			CheckID:   chi.URLParam(r, "id"),
			Type:      typ,
			Timestamp: time.Now().UTC(),
			SourceIP:  sourceIP(r),
		})
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

func sourceIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
