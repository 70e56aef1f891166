// Package worker runs the bot's background jobs on a shared gocron scheduler.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/service"
)

// sweepTimeout bounds a single archival pass.
const sweepTimeout = 5 * time.Minute

// Sweeper runs one archival pass.
type Sweeper interface {
	Sweep(ctx context.Context) service.SweepResult
}

// Scheduler owns the gocron scheduler shared by the sweep job and deferred
// channel deletions.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger

	started   bool
	startedMu sync.RWMutex
}

// NewScheduler creates a stopped scheduler in UTC.
func NewScheduler(logger *zap.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// RegisterSweep runs sweeper every interval, starting immediately. A pass
// that overruns the interval delays the next one instead of overlapping it.
func (m *Scheduler) RegisterSweep(sweeper Sweeper, interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			defer cancel()
			m.runSweep(ctx, sweeper)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("archive", "sweep"),
		gocron.WithName("archival-sweep"),
	)
	if err != nil {
		return err
	}
	m.logger.Info("registered archival sweep", zap.Duration("interval", interval))
	return nil
}

func (m *Scheduler) runSweep(ctx context.Context, sweeper Sweeper) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("archival sweep panicked", zap.Any("panic", r))
		}
	}()
	start := time.Now()
	result := sweeper.Sweep(ctx)
	m.logger.Debug("archival sweep finished",
		zap.Int("archived", result.Archived),
		zap.Int("failures", result.Failures),
		zap.Duration("duration", time.Since(start)),
	)
}

// Start begins running jobs. Calling it twice is a no-op.
func (m *Scheduler) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}
	m.scheduler.Start()
	m.started = true
	m.logger.Info("scheduler started", zap.Int("job_count", len(m.scheduler.Jobs())))
}

// Stop shuts the scheduler down and waits for running jobs.
func (m *Scheduler) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}
	err := m.scheduler.Shutdown()
	m.started = false
	if err != nil {
		m.logger.Error("scheduler shutdown with error", zap.Error(err))
		return err
	}
	m.logger.Info("scheduler stopped")
	return nil
}

// IsStarted reports whether jobs are running.
func (m *Scheduler) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns the registered jobs.
func (m *Scheduler) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
