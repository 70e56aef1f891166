package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/observability"
	"github.com/spec-kit/guild-tickets/internal/platform"
	"github.com/spec-kit/guild-tickets/internal/repository"
)

// Archiver performs the terminal archive transition.
type Archiver interface {
	Archive(ctx context.Context, ticketID int64) (*domain.Ticket, error)
}

// ArchivalSweeper archives closed tickets older than each guild's retention
// window and deletes their channels.
type ArchivalSweeper struct {
	configs  repository.GuildConfigRepository
	tickets  repository.TicketRepository
	archiver Archiver
	platform platform.Platform
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// SweeperDependencies bundles collaborators for the sweeper.
type SweeperDependencies struct {
	ConfigRepo repository.GuildConfigRepository
	TicketRepo repository.TicketRepository
	Archiver   Archiver
	Platform   platform.Platform
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewArchivalSweeper constructs the sweeper.
func NewArchivalSweeper(deps SweeperDependencies) *ArchivalSweeper {
	return &ArchivalSweeper{
		configs:  deps.ConfigRepo,
		tickets:  deps.TicketRepo,
		archiver: deps.Archiver,
		platform: deps.Platform,
		metrics:  deps.Metrics,
		logger:   loggerOrNop(deps.Logger),
		now:      nowOrDefault(deps.Now),
	}
}

// SweepResult summarizes one pass.
type SweepResult struct {
	Archived int
	Failures int
}

// Sweep runs one pass. Channel deletion is best-effort and the ticket is
// archived whatever its outcome. A failing guild or ticket is logged and
// skipped; the pass always visits every guild.
func (s *ArchivalSweeper) Sweep(ctx context.Context) SweepResult {
	var result SweepResult
	defer func() { s.metrics.SweepCompleted(result.Archived, result.Failures) }()

	guilds, err := s.configs.ListAutoArchive(ctx)
	if err != nil {
		s.logger.Error("sweep: list guilds failed", zap.Error(err))
		result.Failures++
		return result
	}

	now := s.now()
	for _, cfg := range guilds {
		if ctx.Err() != nil {
			return result
		}
		hours := cfg.ArchiveAfterHours()
		if hours <= 0 {
			continue
		}
		cutoff := now.Add(-time.Duration(hours) * time.Hour)

		tickets, err := s.tickets.ListArchivable(ctx, cfg.GuildID, cutoff)
		if err != nil {
			s.logger.Error("sweep: list archivable tickets failed", zap.String("guild_id", cfg.GuildID), zap.Error(err))
			result.Failures++
			continue
		}

		for i := range tickets {
			s.sweepTicket(ctx, &tickets[i], &result)
		}
	}

	if result.Archived > 0 || result.Failures > 0 {
		s.logger.Info("sweep completed", zap.Int("archived", result.Archived), zap.Int("failures", result.Failures))
	}
	return result
}

func (s *ArchivalSweeper) sweepTicket(ctx context.Context, ticket *domain.Ticket, result *SweepResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweep: panic archiving ticket", zap.Int64("ticket_id", ticket.ID), zap.Any("panic", r))
			result.Failures++
		}
	}()

	if s.platform != nil {
		if err := s.platform.DeleteChannel(ctx, ticket.ChannelID); err != nil {
			s.metrics.SideEffectFailed("sweep delete channel")
			s.logger.Warn("sweep: channel deletion failed; archiving anyway",
				zap.Int64("ticket_id", ticket.ID), zap.String("channel_id", ticket.ChannelID), zap.Error(err))
		}
	}

	if _, err := s.archiver.Archive(ctx, ticket.ID); err != nil {
		s.logger.Warn("sweep: archive failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		result.Failures++
		return
	}
	result.Archived++
}
