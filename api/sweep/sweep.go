// Package sweep finds checks that have gone silent and marks them down.
package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"deadman/api/cache"
	"deadman/api/hub"
	"deadman/api/maintenance"
	"deadman/api/model"
)

type Store interface {
	ListOverdue(ctx context.Context, now time.Time, afterID string, limit int) ([]model.Check, error)
	MarkDown(ctx context.Context, id string, now time.Time) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, check model.Check, typ model.AlertType) error
}

type Broadcaster interface {
	Broadcast(evt hub.Event)
}

type Sweeper struct {
	Store    Store
	Cache    cache.Cache
	Notifier Notifier
	Hub      Broadcaster
	Log      *zap.Logger
	PageSize int
	MaxRows  int
	Now      func() time.Time
}

// Result summarizes one sweep cycle.
type Result struct {
	Scanned    int
	Down       int
	Suppressed int
	Skipped    int
	Errors     int
}

// RunOnce performs one sweep cycle. Rows are read in id-ordered pages
// until a short page or the per-cycle cap.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	var (
		res   Result
		after string
	)
	for res.Scanned < s.MaxRows {
		limit := s.PageSize
		if rest := s.MaxRows - res.Scanned; rest < limit {
			limit = rest
		}
		page, err := s.Store.ListOverdue(ctx, s.Now(), after, limit)
		if err != nil {
			return res, fmt.Errorf("sweep page after %q: %w", after, err)
		}
		for i := range page {
			res.Scanned++
			s.process(ctx, page[i], &res)
		}
		if len(page) < limit {
			break
		}
		after = page[len(page)-1].ID
	}
	if res.Scanned >= s.MaxRows {
		s.Log.Warn("sweep: hit per-cycle cap", zap.Int("max_rows", s.MaxRows))
	}
	return res, nil
}

func (s *Sweeper) process(ctx context.Context, c model.Check, res *Result) {
	now := s.Now()
	if maintenance.Suppressed(&c, now) {
		res.Suppressed++
		return
	}

	ok, err := s.Store.MarkDown(ctx, c.ID, now)
	if err != nil {
		res.Errors++
		s.Log.Error("sweep: mark down failed", zap.String("check_id", c.ID), zap.Error(err))
		return
	}
	if !ok {
		// A ping or pause landed after selection.
		res.Skipped++
		return
	}
	res.Down++

	c.Status = model.CheckDown
	c.AlertCount++
	c.LastAlertAt = &now
	s.Log.Info("sweep: check down",
		zap.String("check_id", c.ID),
		zap.String("name", c.Name),
		zap.Timep("next_expected_at", c.NextExpectedAt),
	)

	if err := s.Cache.Invalidate(ctx, c.ID); err != nil {
		s.Log.Debug("sweep: cache invalidate failed", zap.String("check_id", c.ID), zap.Error(err))
	}
	if s.Hub != nil {
		s.Hub.Broadcast(hub.Event{Type: hub.EventCheckDown, CheckID: c.ID, Payload: c})
	}
	if err := s.Notifier.Notify(ctx, c, model.AlertDown); err != nil {
		res.Errors++
		s.Log.Error("sweep: notify failed", zap.String("check_id", c.ID), zap.Error(err))
	}
}
