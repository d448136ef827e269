package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron"
	"go.uber.org/atomic"

	"github.com/i474232898/weather-radar-loop/internal/radar"
)

// Runner builds one radar loop.
type Runner interface {
	BuildLoop(ctx context.Context) (radar.Artifact, error)
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running   bool      `json:"running"`
	Runs      int64     `json:"runs"`
	Skipped   int64     `json:"skipped"`
	LastStart time.Time `json:"lastStart,omitempty"`
	LastLoop  string    `json:"lastLoop,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

// Scheduler periodically rebuilds the radar loop. Runs never overlap: a
// tick that arrives while a run is in progress is skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration
	cronExpr  string

	running *atomic.Bool
	runs    *atomic.Int64
	skipped *atomic.Int64

	mu        sync.Mutex
	lastStart time.Time
	lastLoop  string
	lastErr   string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *log.Logger
}

// New creates a new Scheduler. A non-empty cronExpr takes precedence over interval.
func New(runner Runner, interval time.Duration, cronExpr string) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		interval:  interval,
		cronExpr:  cronExpr,
		running:   atomic.NewBool(false),
		runs:      atomic.NewInt64(0),
		skipped:   atomic.NewInt64(0),
		logger:    log.WithPrefix("scheduler"),
	}
}

// Start performs the initial run on the calling goroutine, then schedules
// the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("running initial radar loop build")
	s.RunNow()

	var job *gocron.Scheduler
	if s.cronExpr != "" {
		job = s.scheduler.Cron(s.cronExpr)
	} else {
		interval := s.interval
		if interval <= 0 {
			interval = 10 * time.Minute
		}
		// Ticks are measured from run starts. If the initial run already
		// overran the interval, the first tick fires right away.
		job = s.scheduler.Every(interval)
		if next := s.Status().LastStart.Add(interval); next.After(time.Now()) {
			job = job.StartAt(next)
		}
	}

	if _, err := job.SingletonMode().Do(s.RunNow); err != nil {
		s.cancel()
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval, "cron", s.cronExpr)
	return nil
}

// RunNow executes one build unless one is already in progress.
func (s *Scheduler) RunNow() {
	if !s.running.CAS(false, true) {
		s.skipped.Inc()
		s.logger.Warn("previous build still running; skipping tick")
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.running.Store(false)

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now().UTC()
	s.mu.Lock()
	s.lastStart = start
	s.mu.Unlock()
	s.runs.Inc()

	s.logger.Info("running radar loop job")
	artifact, err := s.runner.BuildLoop(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.lastLoop = artifact.Name
		s.lastErr = ""
		s.logger.Info("completed radar loop job", "name", artifact.Name, "took", time.Since(start).Round(time.Millisecond))
	case errors.Is(err, radar.ErrNoFrames):
		s.lastErr = ""
		s.logger.Info("radar loop job produced no frames")
	default:
		s.lastErr = err.Error()
		s.logger.Error("radar loop job failed", "err", err)
	}
}

// Status reports the current scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:   s.running.Load(),
		Runs:      s.runs.Load(),
		Skipped:   s.skipped.Load(),
		LastStart: s.lastStart,
		LastLoop:  s.lastLoop,
		LastError: s.lastErr,
	}
}

// Stop cancels future jobs, signals an in-flight build to abort and waits
// for it to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}
