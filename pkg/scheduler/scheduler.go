package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/timoknapp/orienteering-finder/pkg/config"
	"github.com/timoknapp/orienteering-finder/pkg/logger"
	"github.com/timoknapp/orienteering-finder/pkg/metrics"
)

var log = logger.Named("scheduler")

// Job is the periodic work, usually the competition warmup.
type Job func(ctx context.Context) error

type Scheduler struct {
	mu      sync.Mutex
	c       *cron.Cron
	config  config.SchedulerConfig
	job     Job
	running sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// New validates the cron spec and prepares the scheduler; nothing runs until Start.
func New(cfg config.SchedulerConfig, job Job) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{config: cfg, job: job, ctx: ctx, cancel: cancel}
	c, err := s.build(cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	s.c = c
	return s, nil
}

// build returns a cron with the job registered. Standard 5-field spec, server local time.
func (s *Scheduler) build(cfg config.SchedulerConfig) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(cfg.CronSpec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", cfg.CronSpec, err)
	}
	return c, nil
}

// tick runs the job unless the previous run is still going.
func (s *Scheduler) tick() {
	if !s.running.TryLock() {
		log.Warn("Scheduler tick skipped: previous warmup still running")
		metrics.WarmupRunsTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer s.running.Unlock()

	log.Info("Scheduler tick: running warmup job")
	if err := s.job(s.ctx); err != nil {
		log.Error("Scheduler warmup failed: %v", err)
		metrics.WarmupRunsTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.WarmupRunsTotal.WithLabelValues("ok").Inc()
}

// RunNow runs the job once in the caller's goroutine.
func (s *Scheduler) RunNow() {
	s.tick()
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.config.Enabled {
		log.Info("Scheduler disabled")
		return
	}
	log.Info("Starting scheduler (cron=%s)", s.config.CronSpec)
	s.c.Start()
}

// Stop stops the cron, cancels a running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.c
	s.mu.Unlock()
	<-c.Stop().Done()
	s.cancel()
	s.running.Lock()
	s.running.Unlock()
}

// Reload re-reads the scheduler configuration from the environment and restarts
// the cron if it changed.
func (s *Scheduler) Reload() error {
	return s.Apply(config.SchedulerFromEnv())
}

// Apply switches to cfg. An invalid spec leaves the current schedule running.
func (s *Scheduler) Apply(cfg config.SchedulerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == cfg {
		log.Info("Scheduler configuration unchanged, no restart needed")
		return nil
	}
	c, err := s.build(cfg)
	if err != nil {
		return err
	}

	s.c.Stop()
	s.c = c
	s.config = cfg
	if cfg.Enabled {
		s.c.Start()
		log.Info("Scheduler restarted with new configuration (cron=%s)", cfg.CronSpec)
	} else {
		log.Info("Scheduler disabled via configuration reload")
	}
	return nil
}

// GetConfig returns the current scheduler configuration
func (s *Scheduler) GetConfig() config.SchedulerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Entries returns the number of scheduled entries of a running cron.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.config.Enabled {
		return 0
	}
	return len(s.c.Entries())
}

// Status is the scheduler's state as reported on /stats.
type Status struct {
	Enabled  bool   `json:"enabled"`
	CronSpec string `json:"cron_spec"`
	Entries  int    `json:"entries"`
	Running  bool   `json:"running"`
}

func (s *Scheduler) Status() Status {
	cfg := s.GetConfig()
	st := Status{Enabled: cfg.Enabled, CronSpec: cfg.CronSpec, Entries: s.Entries()}
	if s.running.TryLock() {
		s.running.Unlock()
	} else {
		st.Running = true
	}
	return st
}
