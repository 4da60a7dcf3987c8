package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"deadman/api/model"
)

// Mount registers the ping endpoints at the root and the management API
// under /api.
func (h *Handler) Mount(r chi.Router, version string) {
	r.HandleFunc("/ping/{id}", h.Ping(model.PingSuccess))
	r.HandleFunc("/ping/{id}/start", h.Ping(model.PingStart))
	r.HandleFunc("/ping/{id}/fail", h.Ping(model.PingFail))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"version": version})
		})
		r.Post("/cron/parse", h.ParseCron)
		r.Get("/jobs", h.ListJobs)
		r.Post("/jobs/{name}/trigger", h.TriggerJob)
		r.Put("/accounts/{accountId}", h.PutAccount)

		r.Get("/checks", h.ListChecks)
		r.Post("/checks", h.CreateCheck)
		r.Route("/checks/{id}", func(r chi.Router) {
			r.Use(ValidateID)
			r.Get("/", h.GetCheck)
			r.Put("/", h.UpdateCheck)
			r.Delete("/", h.DeleteCheck)
			r.Post("/pause", h.PauseCheck)
			r.Post("/resume", h.ResumeCheck)
			r.Get("/pings", h.ListPings)
			r.Get("/alerts", h.ListAlerts)
			r.Put("/channels/{channelId}", h.LinkChannel)
			r.Delete("/channels/{channelId}", h.UnlinkChannel)
		})

		r.Get("/channels", h.ListChannels)
		r.Post("/channels", h.CreateChannel)
		r.With(ValidateID).Delete("/channels/{id}", h.DeleteChannel)
	})
}
