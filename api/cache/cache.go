// Package cache holds the short-lived check configuration projection used
// by ping ingestion. The cache is never authoritative: callers fall back to
// the store on any miss or error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"deadman/api/model"
)

var ErrMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, checkID string) (*model.CheckConfig, error)
	Set(ctx context.Context, cfg model.CheckConfig) error
	Invalidate(ctx context.Context, checkID string) error
	Healthy(ctx context.Context) error
}

func key(checkID string) string {
	return "check:" + checkID
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, checkID string) (*model.CheckConfig, error) {
	raw, err := r.client.Get(ctx, key(checkID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	var cfg model.CheckConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode cached check %s: %w", checkID, err)
	}
	return &cfg, nil
}

func (r *Redis) Set(ctx context.Context, cfg model.CheckConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(cfg.ID), raw, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, checkID string) error {
	return r.client.Del(ctx, key(checkID)).Err()
}

func (r *Redis) Healthy(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop is used when no cache is configured. Every lookup misses.
type Nop struct{}

func (Nop) Get(context.Context, string) (*model.CheckConfig, error) { return nil, ErrMiss }
func (Nop) Set(context.Context, model.CheckConfig) error            { return nil }
func (Nop) Invalidate(context.Context, string) error                 { return nil }
func (Nop) Healthy(context.Context) error                            { return nil }
