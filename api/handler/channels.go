package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"deadman/api/model"
	"deadman/api/validate"
)

func (h *Handler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var ch model.Channel
	if err := json.NewDecoder(r.Body).Decode(&ch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if ch.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	if res := validate.Channel(&ch); !res.Valid() {
		writeValidation(w, res)
		return
	}
	ch.ID = uuid.NewString()
	if err := h.db.InsertChannel(r.Context(), &ch); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, ch)
}

func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	channels, err := h.db.ListChannels(r.Context(), userID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if channels == nil {
		channels = []model.Channel{}
	}
	writeJSON(w, channels)
}

func (h *Handler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteChannel(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
