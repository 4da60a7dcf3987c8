package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"deadman/api/cache"
	"deadman/api/config"
	"deadman/api/health"
	"deadman/api/model"
	"deadman/api/schedule"
	"deadman/api/store"
)

// Store is the persistence the management API needs.
type Store interface {
	InsertCheck(ctx context.Context, c *model.Check) error
	GetCheck(ctx context.Context, id string) (*model.Check, error)
	ListChecks(ctx context.Context, userID string) ([]model.Check, error)
	UpdateCheckConfig(ctx context.Context, c *model.Check) error
	DeleteCheck(ctx context.Context, id string) error
	PauseCheck(ctx context.Context, id string) error
	ResumeCheck(ctx context.Context, id string) error
	ListPings(ctx context.Context, checkID string, limit int) ([]model.Ping, error)
	ListAlerts(ctx context.Context, checkID string, limit int) ([]model.Alert, error)

	InsertChannel(ctx context.Context, ch *model.Channel) error
	ListChannels(ctx context.Context, userID string) ([]model.Channel, error)
	DeleteChannel(ctx context.Context, id string) error
	LinkChannel(ctx context.Context, checkID, channelID string) error
	UnlinkChannel(ctx context.Context, checkID, channelID string) error

	UpsertAccount(ctx context.Context, a *model.Account) error
}

// Ingestor accepts a signal and processes it in the background.
type Ingestor interface {
	Go(sig model.Signal)
}

type Handler struct {
	db        Store
	cache     cache.Cache
	ingest    Ingestor
	scheduler *schedule.Scheduler
	health    *health.Poller
	cfg       *config.Config
	log       *zap.Logger
}

func New(db Store, c cache.Cache, in Ingestor, scheduler *schedule.Scheduler, poller *health.Poller, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{
		db:        db,
		cache:     c,
		ingest:    in,
		scheduler: scheduler,
		health:    poller,
		cfg:       cfg,
		log:       log,
	}
}

// ValidateID is middleware that rejects management requests whose {id}
// is not a UUID.
func ValidateID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chi.URLParam(r, "id"); id != "" {
			if _, err := uuid.Parse(id); err != nil {
				http.Error(w, "invalid id", http.StatusBadRequest)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeValidation(w http.ResponseWriter, r *model.ValidationResult) {
	writeJSONStatus(w, http.StatusBadRequest, map[string]interface{}{
		"error":    r.FirstError(),
		"findings": r.Findings,
	})
}

// writeStoreError maps store errors to status codes.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	h.log.Error("handler: store error", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func limitParam(r *http.Request, fallback int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return fallback
}

func (h *Handler) invalidate(ctx context.Context, checkID string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.cache.Invalidate(ctx, checkID); err != nil {
		h.log.Debug("handler: cache invalidate failed", zap.String("check_id", checkID), zap.Error(err))
	}
}
