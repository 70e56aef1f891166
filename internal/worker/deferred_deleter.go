package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/events"
	"github.com/spec-kit/guild-tickets/internal/observability"
	"github.com/spec-kit/guild-tickets/internal/platform"
)

const deleteTimeout = 30 * time.Second

type pendingDeletion struct {
	token uuid.UUID
	jobID uuid.UUID
}

// DeferredDeleter deletes a closed ticket's channel after a grace period.
// A pending deletion is keyed by ticket id and can be cancelled until it
// fires.
type DeferredDeleter struct {
	scheduler      gocron.Scheduler
	platform       platform.Platform
	delay          time.Duration
	cancelOnReopen bool
	metrics        *observability.Metrics
	logger         *zap.Logger

	mu      sync.Mutex
	pending map[int64]pendingDeletion
}

// DeferredDeleterDependencies bundles collaborators for the deleter.
type DeferredDeleterDependencies struct {
	Platform       platform.Platform
	Delay          time.Duration
	CancelOnReopen bool
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewDeferredDeleter schedules its jobs on s.
func NewDeferredDeleter(s *Scheduler, deps DeferredDeleterDependencies) *DeferredDeleter {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeferredDeleter{
		scheduler:      s.scheduler,
		platform:       deps.Platform,
		delay:          deps.Delay,
		cancelOnReopen: deps.CancelOnReopen,
		metrics:        deps.Metrics,
		logger:         logger,
		pending:        make(map[int64]pendingDeletion),
	}
}

// RegisterHandlers schedules deletion on close and cancels it on reopen
// (when configured) and on archive, which deletes the channel itself.
func (d *DeferredDeleter) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketClosed, func(_ context.Context, e events.Event) error {
		return d.Schedule(e.TicketID, e.ChannelID, d.delay)
	})
	dispatcher.Subscribe(events.EventTicketReopened, func(_ context.Context, e events.Event) error {
		if d.cancelOnReopen && d.Cancel(e.TicketID) {
			d.logger.Info("cancelled channel deletion on reopen", zap.Int64("ticket_id", e.TicketID))
		}
		return nil
	})
	dispatcher.Subscribe(events.EventTicketArchived, func(_ context.Context, e events.Event) error {
		d.Cancel(e.TicketID)
		return nil
	})
}

// Schedule deletes channelID after delay, replacing any deletion already
// pending for the ticket. A non-positive delay disables deletion.
func (d *DeferredDeleter) Schedule(ticketID int64, channelID string, delay time.Duration) error {
	if delay <= 0 || channelID == "" {
		return nil
	}
	d.Cancel(ticketID)

	token := uuid.New()
	d.mu.Lock()
	d.pending[ticketID] = pendingDeletion{token: token}
	d.mu.Unlock()

	job, err := d.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(delay))),
		gocron.NewTask(func() { d.fire(ticketID, channelID, token) }),
		gocron.WithName(fmt.Sprintf("delete-ticket-channel-%d", ticketID)),
		gocron.WithTags("channel-delete"),
	)

	d.mu.Lock()
	if p, ok := d.pending[ticketID]; ok && p.token == token {
		if err != nil {
			delete(d.pending, ticketID)
		} else {
			d.pending[ticketID] = pendingDeletion{token: token, jobID: job.ID()}
		}
	}
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("schedule channel deletion: %w", err)
	}

	d.logger.Debug("scheduled channel deletion",
		zap.Int64("ticket_id", ticketID), zap.String("channel_id", channelID), zap.Duration("delay", delay))
	return nil
}

// Cancel drops the pending deletion for ticketID and reports whether one
// existed.
func (d *DeferredDeleter) Cancel(ticketID int64) bool {
	d.mu.Lock()
	p, ok := d.pending[ticketID]
	delete(d.pending, ticketID)
	d.mu.Unlock()

	if ok {
		_ = d.scheduler.RemoveJob(p.jobID)
	}
	return ok
}

// Pending returns the number of scheduled deletions.
func (d *DeferredDeleter) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *DeferredDeleter) fire(ticketID int64, channelID string, token uuid.UUID) {
	d.mu.Lock()
	p, ok := d.pending[ticketID]
	if !ok || p.token != token {
		d.mu.Unlock()
		return
	}
	delete(d.pending, ticketID)
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()
	if err := d.platform.DeleteChannel(ctx, channelID); err != nil {
		d.metrics.SideEffectFailed("deferred delete channel")
		d.logger.Warn("deferred channel deletion failed",
			zap.Int64("ticket_id", ticketID), zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	d.logger.Info("deleted closed ticket channel", zap.Int64("ticket_id", ticketID), zap.String("channel_id", channelID))
}
