package notify

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"deadman/api/model"
	"deadman/api/store"
)

type RetryStore interface {
	DueRetries(ctx context.Context, now time.Time, limit int) ([]store.PendingRetry, error)
	MarkAlertSent(ctx context.Context, id int64) error
	MarkAlertRetry(ctx context.Context, id int64, retryCount int, next *time.Time, errMsg string) error
}

type Retrier struct {
	Store      RetryStore
	Dispatcher *Dispatcher
	BatchSize  int
	Log        *zap.Logger
	Now        func() time.Time
}

// Backoff is the delay before the next attempt once retryCount attempts
// have failed: 30s × 4^retryCount.
func Backoff(retryCount int) time.Duration {
	return time.Duration(30*math.Pow(4, float64(retryCount))) * time.Second
}

// RunOnce re-attempts one batch of due alerts and returns how many were
// delivered. Each alert is handled independently.
func (r *Retrier) RunOnce(ctx context.Context) (int, error) {
	now := r.Now()
	due, err := r.Store.DueRetries(ctx, now, r.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("load due retries: %w", err)
	}

	delivered := 0
	for _, p := range due {
		ok, err := r.retry(ctx, p, now)
		if err != nil {
			r.Log.Error("retry: update failed", zap.Int64("alert_id", p.Alert.ID), zap.Error(err))
			continue
		}
		if ok {
			delivered++
		}
	}
	return delivered, nil
}

func statusFor(t model.AlertType) model.CheckStatus {
	if t == model.AlertRecovery {
		return model.CheckUp
	}
	return model.CheckDown
}

func (r *Retrier) retry(ctx context.Context, p store.PendingRetry, now time.Time) (bool, error) {
	a := p.Alert
	attempt := a.RetryCount + 1

	// The check may have moved on since the alert; announce the state the
	// alert was raised for.
	check := p.Check
	check.Status = statusFor(a.Type)

	target, err := ParseTarget(a.Kind, a.Target, p.SigningSecret)
	if err == nil {
		err = r.Dispatcher.Deliver(ctx, target, Event{Type: a.Type, Check: check, At: now, Retry: attempt})
	}
	if err == nil {
		if err := r.Store.MarkAlertSent(ctx, a.ID); err != nil {
			return false, err
		}
		a.Status = model.AlertSent
		a.Error, a.NextRetryAt = nil, nil
		r.Dispatcher.announce(&a)
		r.Log.Info("retry: delivered", zap.Int64("alert_id", a.ID), zap.Int("attempt", attempt))
		return true, nil
	}

	var next *time.Time
	if attempt < model.MaxAlertRetries {
		t := now.Add(Backoff(attempt))
		next = &t
	}
	msg := err.Error()
	if err := r.Store.MarkAlertRetry(ctx, a.ID, attempt, next, msg); err != nil {
		return false, err
	}
	a.RetryCount, a.NextRetryAt, a.Error = attempt, next, &msg
	r.Dispatcher.announce(&a)
	r.Log.Warn("retry: attempt failed",
		zap.Int64("alert_id", a.ID),
		zap.Int("attempt", attempt),
		zap.Bool("terminal", next == nil),
		zap.Error(err),
	)
	return false, nil
}
