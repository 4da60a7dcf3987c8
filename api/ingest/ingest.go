// Package ingest applies inbound liveness signals to checks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"deadman/api/cache"
	"deadman/api/hub"
	"deadman/api/model"
	"deadman/api/store"
)

type Store interface {
	GetCheckConfig(ctx context.Context, id string) (*model.CheckConfig, error)
	RecordSuccess(ctx context.Context, checkID string, at time.Time, sourceIP string) (*store.PingOutcome, error)
	RecordSignal(ctx context.Context, checkID string, typ model.PingType, at time.Time, sourceIP string) (*model.Ping, error)
}

type Notifier interface {
	Notify(ctx context.Context, check model.Check, typ model.AlertType) error
}

type Broadcaster interface {
	Broadcast(evt hub.Event)
}

// Source tags where a lookup was answered from.
type Source int

const (
	NotFound Source = iota
	FromCache
	FromStore
)

func (s Source) String() string {
	switch s {
	case FromCache:
		return "cache"
	case FromStore:
		return "store"
	default:
		return "not_found"
	}
}

// Lookup is the result of resolving a check's configuration.
type Lookup struct {
	Source Source
	Config model.CheckConfig
}

type Ingestor struct {
	Store    Store
	Cache    cache.Cache
	Notifier Notifier
	Hub      Broadcaster
	Log      *zap.Logger
}

// Resolve finds a check's configuration, preferring the cache. Any cache
// error is treated as a miss; store errors other than not-found are returned.
func (in *Ingestor) Resolve(ctx context.Context, checkID string) (Lookup, error) {
	cfg, err := in.Cache.Get(ctx, checkID)
	if err == nil {
		return Lookup{Source: FromCache, Config: *cfg}, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		in.Log.Debug("ingest: cache unavailable, using store", zap.String("check_id", checkID), zap.Error(err))
	}

	cfg, err = in.Store.GetCheckConfig(ctx, checkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Lookup{Source: NotFound}, nil
		}
		return Lookup{}, fmt.Errorf("load check %s: %w", checkID, err)
	}
	return Lookup{Source: FromStore, Config: *cfg}, nil
}

// Ingest processes one signal to completion. Unknown and paused checks are
// discarded without error.
func (in *Ingestor) Ingest(ctx context.Context, sig model.Signal) error {
	lk, err := in.Resolve(ctx, sig.CheckID)
	if err != nil {
		return err
	}
	if lk.Source == NotFound || lk.Config.Status == model.CheckPaused {
		return nil
	}

	if sig.Type != model.PingSuccess {
		p, err := in.Store.RecordSignal(ctx, sig.CheckID, sig.Type, sig.Timestamp, sig.SourceIP)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("record %s signal: %w", sig.Type, err)
		}
		in.broadcast(hub.Event{Type: hub.EventPingReceived, CheckID: sig.CheckID, Payload: p})
		return nil
	}

	out, err := in.Store.RecordSuccess(ctx, sig.CheckID, sig.Timestamp, sig.SourceIP)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrPaused) {
			// Changed since the lookup; the store is authoritative.
			_ = in.Cache.Invalidate(ctx, sig.CheckID)
			return nil
		}
		return fmt.Errorf("record ping: %w", err)
	}

	in.broadcast(hub.Event{Type: hub.EventPingReceived, CheckID: sig.CheckID, Payload: out.Ping})

	if out.WasDown {
		in.Log.Info("ingest: check recovered", zap.String("check_id", sig.CheckID))
		in.broadcast(hub.Event{Type: hub.EventCheckUp, CheckID: sig.CheckID, Payload: out.Check})
		if err := in.Notifier.Notify(ctx, out.Check, model.AlertRecovery); err != nil {
			in.Log.Error("ingest: recovery notification failed", zap.String("check_id", sig.CheckID), zap.Error(err))
		}
	}

	if err := in.Cache.Set(ctx, out.Check.Config()); err != nil {
		in.Log.Debug("ingest: cache refresh failed", zap.String("check_id", sig.CheckID), zap.Error(err))
	}
	return nil
}

// Go runs Ingest detached from the request that delivered the signal and
// logs the outcome.
func (in *Ingestor) Go(sig model.Signal) {
	go func() {
		if err := in.Ingest(context.Background(), sig); err != nil {
			in.Log.Error("ingest: ping dropped",
				zap.String("check_id", sig.CheckID),
				zap.String("type", string(sig.Type)),
				zap.Error(err),
			)
		}
	}()
}

func (in *Ingestor) broadcast(evt hub.Event) {
	if in.Hub != nil {
		in.Hub.Broadcast(evt)
	}
}
