package handler

import (
	"encoding/json"
	"net/http"
	"net/mail"

	"github.com/go-chi/chi/v5"

	"deadman/api/model"
)

type accountRequest struct {
	Email         string `json:"email"`
	SigningSecret string `json:"signingSecret"`
}

// PutAccount records the contact address and webhook signing secret for
// an account owned by the surrounding application.
func (h *Handler) PutAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			http.Error(w, "invalid email address", http.StatusBadRequest)
			return
		}
	}
	acct := &model.Account{ID: chi.URLParam(r, "accountId"), Email: req.Email, SigningSecret: req.SigningSecret}
	if err := h.db.UpsertAccount(r.Context(), acct); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"id":     acct.ID,
		"email":  acct.Email,
		"signed": acct.SigningSecret != "",
	})
}
