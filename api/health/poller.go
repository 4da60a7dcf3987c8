package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Probe checks one dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
	// Optional dependencies do not make the service unhealthy.
	Optional bool
}

type Component struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Optional  bool      `json:"optional,omitempty"`
	Error     string    `json:"error,omitempty"`
	LatencyMs int64     `json:"latencyMs"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Poller periodically probes dependencies and keeps the latest results.
type Poller struct {
	Probes   []Probe
	Interval time.Duration
	Timeout  time.Duration
	Log      *zap.Logger

	mu     sync.RWMutex
	latest map[string]Component
}

// Run starts the polling loop. It blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	if p.Interval == 0 {
		p.Interval = 30 * time.Second
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	// Run once immediately on start
	p.PollAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollAll(ctx)
		}
	}
}

// PollAll probes every dependency concurrently and waits for all of them.
func (p *Poller) PollAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, probe := range p.Probes {
		wg.Add(1)
		go func(probe Probe) {
			defer wg.Done()
			p.checkOne(ctx, probe)
		}(probe)
	}
	wg.Wait()
}

func (p *Poller) checkOne(ctx context.Context, probe Probe) {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := probe.Check(ctx)
	c := Component{
		Name:      probe.Name,
		Healthy:   err == nil,
		Optional:  probe.Optional,
		LatencyMs: time.Since(start).Milliseconds(),
		CheckedAt: time.Now(),
	}
	if err != nil {
		c.Error = err.Error()
	}

	p.mu.Lock()
	prev, seen := p.latest[probe.Name]
	if p.latest == nil {
		p.latest = make(map[string]Component)
	}
	p.latest[probe.Name] = c
	p.mu.Unlock()

	if !seen || prev.Healthy != c.Healthy {
		if c.Healthy {
			p.Log.Info("health: dependency up", zap.String("component", c.Name))
		} else {
			p.Log.Warn("health: dependency down", zap.String("component", c.Name), zap.String("error", c.Error))
		}
	}
}

// Snapshot returns the latest result per dependency, sorted by name, and
// whether every required dependency is healthy.
func (p *Poller) Snapshot() ([]Component, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ok := true
	out := make([]Component, 0, len(p.latest))
	for _, c := range p.latest {
		out = append(out, c)
		if !c.Healthy && !c.Optional {
			ok = false
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, ok
}
