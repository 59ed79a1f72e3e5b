package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"FinScan/internal/domain/models"
	"FinScan/pkg/cache"
	applogger "FinScan/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ScanRunner executes one scan.
type ScanRunner interface {
	Execute(ctx context.Context, cfg models.ScanConfig) (*models.ScanReport, error)
}

// Profile is a named scan request run on a cron schedule.
type Profile struct {
	Name    string
	Cron    string
	Request models.ScanRequest
}

// ProfileStatus reports the last run of a profile.
type ProfileStatus struct {
	Name      string    `json:"name"`
	Cron      string    `json:"cron"`
	NextRun   time.Time `json:"next_run"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastScan  string    `json:"last_scan,omitempty"`
	Results   int       `json:"results"`
	LastError string    `json:"last_error,omitempty"`
	Skipped   int       `json:"skipped"`
}

// Scheduler runs scan profiles on cron schedules. A profile never overlaps
// with itself; with a lock service configured it also does not overlap
// across replicas.
type Scheduler struct {
	cron    *cron.Cron
	runner  ScanRunner
	lock    cache.Service
	lockTTL time.Duration
	l       *applogger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	profiles map[string]Profile
	entries  map[string]cron.EntryID
	status   map[string]*ProfileStatus
}

// SchedulerOption configures Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLock takes a cache lock per profile run.
func WithSchedulerLock(c cache.Service, ttl time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.lock = c
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithSchedulerLogger(l *applogger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.l = l
		}
	}
}

// NewScheduler validates and registers every profile.
func NewScheduler(runner ScanRunner, profiles []Profile, opts ...SchedulerOption) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner:   runner,
		lockTTL:  10 * time.Minute,
		l:        applogger.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
		profiles: make(map[string]Profile),
		entries:  make(map[string]cron.EntryID),
		status:   make(map[string]*ProfileStatus),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{l: s.l}
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	for _, p := range profiles {
		if err := s.add(p); err != nil {
			cancel()
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("schedule: profile name required")
	}
	if _, dup := s.profiles[p.Name]; dup {
		return fmt.Errorf("schedule %q: duplicate profile", p.Name)
	}
	req := p.Request
	if err := req.Normalize(); err != nil {
		return fmt.Errorf("schedule %q: %w", p.Name, err)
	}
	p.Request = req
	if err := req.ToConfig().Validate(); err != nil {
		return fmt.Errorf("schedule %q: %w", p.Name, err)
	}

	name := p.Name
	id, err := s.cron.AddFunc(p.Cron, func() { _ = s.run(name) })
	if err != nil {
		return fmt.Errorf("schedule %q: parse cron %q: %w", p.Name, p.Cron, err)
	}
	s.profiles[name] = p
	s.entries[name] = id
	s.status[name] = &ProfileStatus{Name: name, Cron: p.Cron}
	return nil
}

// Start begins firing schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.l.Info("scheduler started", applogger.Int("profiles", len(s.profiles)))
}

// Stop prevents new runs and waits for running ones. When ctx expires first
// the running scans are aborted.
func (s *Scheduler) Stop(ctx context.Context) error {
	defer s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.l.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs a profile immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	return s.run(name)
}

// Status returns every profile sorted by name.
func (s *Scheduler) Status() []ProfileStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProfileStatus, 0, len(s.status))
	for name, st := range s.status {
		cp := *st
		cp.NextRun = s.cron.Entry(s.entries[name]).Next
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) run(name string) error {
	s.mu.Lock()
	p, ok := s.profiles[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("schedule %q: unknown profile", name)
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}
	l := s.l.With(applogger.String("profile", name))

	if s.lock != nil {
		key := cache.GenerateKey("scan-lock", name)
		acquired, err := s.lock.TryLock(s.ctx, key, s.lockTTL)
		if err != nil {
			l.Warn("schedule lock failed, running anyway", applogger.Error(err))
		} else if !acquired {
			l.Info("schedule skipped, held by another runner")
			s.record(name, func(st *ProfileStatus) { st.Skipped++ })
			return nil
		} else {
			defer func() {
				if err := s.lock.Unlock(context.Background(), key); err != nil {
					l.Warn("schedule unlock failed", applogger.Error(err))
				}
			}()
		}
	}

	started := time.Now()
	rep, err := s.runner.Execute(s.ctx, p.Request.ToConfig())
	s.record(name, func(st *ProfileStatus) {
		st.LastRun = started.UTC()
		st.LastError = ""
		if err != nil {
			st.LastError = err.Error()
			return
		}
		st.LastScan = rep.ID.String()
		st.Results = len(rep.Results)
	})
	if err != nil {
		l.Error("scheduled scan failed", applogger.Error(err))
		return err
	}
	l.Info("scheduled scan done",
		applogger.String("scan_id", rep.ID.String()),
		applogger.Int("results", len(rep.Results)),
		applogger.Duration("duration_ms", time.Since(started)),
	)
	return nil
}

func (s *Scheduler) record(name string, fn func(*ProfileStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.status[name]; ok {
		fn(st)
	}
}

// cronLogger routes cron's key/value logs into the structured logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	fields := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, applogger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
