package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"deadman/api/model"
	"deadman/api/validate"
)

type checkRequest struct {
	UserID         string     `json:"userId"`
	Name           string     `json:"name"`
	Period         int        `json:"period"`
	Grace          int        `json:"grace"`
	CronExpression string     `json:"cronExpression"`
	Tags           []string   `json:"tags"`
	GroupName      string     `json:"groupName"`
	MaintStart     *time.Time `json:"maintStart"`
	MaintEnd       *time.Time `json:"maintEnd"`
	MaintSchedule  string     `json:"maintSchedule"`
}

func (req *checkRequest) apply(c *model.Check) {
	c.Name = req.Name
	c.Period = req.Period
	c.Grace = req.Grace
	c.CronExpression = req.CronExpression
	c.Tags = req.Tags
	c.GroupName = req.GroupName
	c.MaintStart = req.MaintStart
	c.MaintEnd = req.MaintEnd
	c.MaintSchedule = req.MaintSchedule
}

func (h *Handler) CreateCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	c := &model.Check{ID: uuid.NewString(), UserID: req.UserID, Status: model.CheckNew}
	req.apply(c)
	if res := validate.Check(c); !res.Valid() {
		writeValidation(w, res)
		return
	}
	if err := h.db.InsertCheck(r.Context(), c); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, c)
}

func (h *Handler) ListChecks(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	checks, err := h.db.ListChecks(r.Context(), userID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if checks == nil {
		checks = []model.Check{}
	}
	writeJSON(w, checks)
}

func (h *Handler) GetCheck(w http.ResponseWriter, r *http.Request) {
	c, err := h.db.GetCheck(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, c)
}

func (h *Handler) UpdateCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.db.GetCheck(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	req.apply(c)
	if res := validate.Check(c); !res.Valid() {
		writeValidation(w, res)
		return
	}
	if err := h.db.UpdateCheckConfig(r.Context(), c); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.invalidate(r.Context(), id)
	writeJSON(w, c)
}

func (h *Handler) DeleteCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.DeleteCheck(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.invalidate(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PauseCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.PauseCheck(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.invalidate(r.Context(), id)
	writeJSON(w, map[string]string{"status": string(model.CheckPaused)})
}

func (h *Handler) ResumeCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.ResumeCheck(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.invalidate(r.Context(), id)
	writeJSON(w, map[string]string{"status": string(model.CheckNew)})
}

func (h *Handler) ListPings(w http.ResponseWriter, r *http.Request) {
	pings, err := h.db.ListPings(r.Context(), chi.URLParam(r, "id"), limitParam(r, 100))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if pings == nil {
		pings = []model.Ping{}
	}
	writeJSON(w, pings)
}

func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.db.ListAlerts(r.Context(), chi.URLParam(r, "id"), limitParam(r, 50))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, alerts)
}

func (h *Handler) LinkChannel(w http.ResponseWriter, r *http.Request) {
	checkID, channelID := chi.URLParam(r, "id"), chi.URLParam(r, "channelId")
	if _, err := h.db.GetCheck(r.Context(), checkID); err != nil {
		h.writeStoreError(w, err)
		return
	}
	if err := h.db.LinkChannel(r.Context(), checkID, channelID); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UnlinkChannel(w http.ResponseWriter, r *http.Request) {
	if err := h.db.UnlinkChannel(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "channelId")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
