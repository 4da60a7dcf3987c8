// Package schedule drives the periodic engine jobs (overdue sweep, alert
// retry) from robfig/cron.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one periodic unit of work. Runs are never cancelled once started.
type Job func(ctx context.Context) error

type JobState struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	NextRunAt *time.Time `json:"nextRunAt,omitempty"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	Runs      int64      `json:"runs"`
}

type entry struct {
	id    cron.EntryID
	state JobState
}

type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	mu      sync.Mutex
	entries map[string]*entry
}

// cronLogger bridges robfig/cron's logger to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

func New(log *zap.Logger) *Scheduler {
	cl := cronLogger{s: log.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:     log,
		entries: make(map[string]*entry),
	}
}

// Add registers a named job. A job whose previous run is still going is
// skipped rather than queued.
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("job %q already scheduled", name)
	}
	e := &entry{state: JobState{Name: name, Schedule: spec}}
	id, err := s.cron.AddFunc(spec, func() { s.execute(e, job) })
	if err != nil {
		return fmt.Errorf("schedule %s with %q: %w", name, spec, err)
	}
	e.id = id
	s.entries[name] = e
	s.log.Info("cron: scheduled job", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) execute(e *entry, job Job) {
	start := time.Now()
	err := job(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	e.state.Runs++
	e.state.LastRunAt = &start
	e.state.LastError = ""
	if err != nil {
		e.state.LastError = err.Error()
		s.log.Error("cron: job failed", zap.String("job", e.state.Name), zap.Error(err))
	}
}

// Trigger runs a job immediately, outside its schedule.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no job %q", name)
	}
	go s.cron.Entry(e.id).WrappedJob.Run()
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("cron: scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("cron: scheduler stopped")
}

// States reports every job with its next run time, sorted by name.
func (s *Scheduler) States() []JobState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobState, 0, len(s.entries))
	for _, e := range s.entries {
		st := e.state
		if next := s.cron.Entry(e.id).Next; !next.IsZero() {
			st.NextRunAt = &next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
