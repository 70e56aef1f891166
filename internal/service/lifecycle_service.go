package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/auth"
	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/events"
	"github.com/spec-kit/guild-tickets/internal/observability"
	"github.com/spec-kit/guild-tickets/internal/platform"
	"github.com/spec-kit/guild-tickets/internal/repository"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// LifecycleService executes ticket state transitions.
//
//	open -> closed -> archived
//	closed -> open
//
// Staff-restricted transitions consult the auth.Policy before touching the
// store. Platform side effects after a committed transition are advisory:
// they are logged and counted, never returned.
type LifecycleService struct {
	configs    repository.GuildConfigRepository
	panels     repository.PanelRepository
	tickets    repository.TicketRepository
	members    repository.TicketMemberRepository
	policy     auth.Policy
	platform   platform.Platform
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	ConfigRepo repository.GuildConfigRepository
	PanelRepo  repository.PanelRepository
	TicketRepo repository.TicketRepository
	MemberRepo repository.TicketMemberRepository
	Policy     auth.Policy
	Platform   platform.Platform
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	policy := deps.Policy
	if policy == nil {
		policy = auth.NewStaffPolicy()
	}
	return &LifecycleService{
		configs:    deps.ConfigRepo,
		panels:     deps.PanelRepo,
		tickets:    deps.TicketRepo,
		members:    deps.MemberRepo,
		policy:     policy,
		platform:   deps.Platform,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     loggerOrNop(deps.Logger),
		now:        nowOrDefault(deps.Now),
	}
}

// Claim marks actor as the staff member handling the ticket. Claiming again
// overwrites the previous holder.
func (s *LifecycleService) Claim(ctx context.Context, actor domain.Actor, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	staffID := actor.UserID
	updated, err := s.tickets.SetClaim(ctx, ticket.ID, &staffID)
	if err != nil {
		return nil, s.transitionError(ctx, err, ticket, "claim")
	}
	s.committed(ctx, "claim", events.EventTicketClaimed, updated, actor, events.TicketClaimPayload{StaffID: staffID})
	return updated, nil
}

// Unclaim clears the holder. Unclaiming an unclaimed ticket succeeds.
func (s *LifecycleService) Unclaim(ctx context.Context, actor domain.Actor, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	previous := ticket.Claimer()
	updated, err := s.tickets.SetClaim(ctx, ticket.ID, nil)
	if err != nil {
		return nil, s.transitionError(ctx, err, ticket, "unclaim")
	}
	s.committed(ctx, "unclaim", events.EventTicketUnclaimed, updated, actor, events.TicketClaimPayload{StaffID: previous})
	return updated, nil
}

// Close moves an open ticket to closed, recording the reason and time. The
// channel is renamed and the opener loses access; deletion is scheduled by
// the ticket_closed subscriber.
func (s *LifecycleService) Close(ctx context.Context, actor domain.Actor, ticketID int64, reason string) (*domain.Ticket, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = domain.DefaultCloseReason
	}

	updated, err := s.tickets.Close(ctx, ticket.ID, s.now(), reason)
	if err != nil {
		return nil, s.transitionError(ctx, err, ticket, "close")
	}

	s.advisory("rename channel", updated, func() error {
		return s.platform.RenameChannel(ctx, updated.ChannelID, platform.ClosedChannelName(updated.ID))
	})
	s.advisory("revoke opener access", updated, func() error {
		return s.platform.RevokeAccess(ctx, updated.ChannelID, updated.UserID)
	})
	s.committed(ctx, "close", events.EventTicketClosed, updated, actor, events.TicketClosedPayload{Reason: reason})
	return updated, nil
}

// Reopen moves a closed ticket back to open on the same channel. The last
// close time and reason are kept as history.
func (s *LifecycleService) Reopen(ctx context.Context, actor domain.Actor, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	updated, err := s.tickets.Reopen(ctx, ticket.ID)
	if err != nil {
		return nil, s.transitionError(ctx, err, ticket, "reopen")
	}

	s.advisory("rename channel", updated, func() error {
		return s.platform.RenameChannel(ctx, updated.ChannelID, platform.TicketChannelName(updated.ID))
	})
	s.advisory("restore opener access", updated, func() error {
		return s.platform.GrantAccess(ctx, updated.ChannelID, updated.UserID)
	})
	s.committed(ctx, "reopen", events.EventTicketReopened, updated, actor, nil)
	return updated, nil
}

// Archive is the terminal transition used by the retention sweep. It has no
// authorization step and no platform side effects.
func (s *LifecycleService) Archive(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	updated, err := s.tickets.Archive(ctx, ticketID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, apperrors.NewInvalidTransition("Only closed tickets can be archived.", map[string]any{"ticket_id": ticketID})
		}
		return nil, storeError(err, "ticket")
	}
	s.committed(ctx, "archive", events.EventTicketArchived, updated, domain.SystemActor, nil)
	return updated, nil
}

// AddParticipant gives userID access to the ticket. It reports false when
// the user was already a participant.
func (s *LifecycleService) AddParticipant(ctx context.Context, actor domain.Actor, ticketID int64, userID string) (bool, error) {
	ticket, err := s.loadParticipantTarget(ctx, actor, ticketID, userID)
	if err != nil {
		return false, err
	}
	added, err := s.members.Add(ctx, ticket.ID, userID)
	if err != nil {
		return false, apperrors.NewPersistence(err)
	}
	if !added {
		return false, nil
	}
	s.advisory("grant participant access", ticket, func() error {
		return s.platform.GrantAccess(ctx, ticket.ChannelID, userID)
	})
	s.committed(ctx, "add_participant", events.EventTicketMemberAdded, ticket, actor, events.TicketMemberPayload{UserID: userID})
	return true, nil
}

// RemoveParticipant revokes userID's access. It reports false when the user
// was not a participant.
func (s *LifecycleService) RemoveParticipant(ctx context.Context, actor domain.Actor, ticketID int64, userID string) (bool, error) {
	ticket, err := s.loadParticipantTarget(ctx, actor, ticketID, userID)
	if err != nil {
		return false, err
	}
	removed, err := s.members.Remove(ctx, ticket.ID, userID)
	if err != nil {
		return false, apperrors.NewPersistence(err)
	}
	if !removed {
		return false, nil
	}
	s.advisory("revoke participant access", ticket, func() error {
		return s.platform.RevokeAccess(ctx, ticket.ChannelID, userID)
	})
	s.committed(ctx, "remove_participant", events.EventTicketMemberRemoved, ticket, actor, events.TicketMemberPayload{UserID: userID})
	return true, nil
}

func (s *LifecycleService) loadParticipantTarget(ctx context.Context, actor domain.Actor, ticketID int64, userID string) (*domain.Ticket, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewValidationError("Please choose a user.", nil)
	}
	ticket, err := s.loadAuthorized(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.IsArchived() {
		return nil, apperrors.NewInvalidTransition("This ticket is archived.", map[string]any{"ticket_id": ticket.ID})
	}
	if userID == ticket.UserID {
		return nil, apperrors.NewValidationError("That user opened this ticket and already has access.", nil)
	}
	return ticket, nil
}

// loadAuthorized fetches the ticket and checks actor is staff for its guild
// and panel. Nothing is mutated when either step fails.
func (s *LifecycleService) loadAuthorized(ctx context.Context, actor domain.Actor, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	if err := authorizeStaff(ctx, s.policy, s.configs, s.panels, actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// authorizeStaff resolves the guild config and the ticket's panel, then asks
// the policy. A deleted panel simply contributes no override.
func authorizeStaff(ctx context.Context, policy auth.Policy, configs repository.GuildConfigRepository,
	panels repository.PanelRepository, actor domain.Actor, ticket *domain.Ticket) error {
	cfg, err := configs.Get(ctx, ticket.GuildID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewPersistence(err)
	}
	var panel *domain.Panel
	if ticket.PanelID != nil {
		panel, err = panels.GetByID(ctx, *ticket.PanelID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewPersistence(err)
		}
	}
	return policy.RequireStaff(actor, cfg, panel)
}

func (s *LifecycleService) transitionError(ctx context.Context, err error, ticket *domain.Ticket, action string) error {
	if !errors.Is(err, repository.ErrStateConflict) {
		return storeError(err, "ticket")
	}
	details := map[string]any{"ticket_id": ticket.ID, "action": action}
	current, getErr := s.tickets.GetByID(ctx, ticket.ID)
	if getErr == nil {
		ticket = current
	}
	switch {
	case ticket.IsArchived():
		return apperrors.NewInvalidTransition("This ticket is archived and can no longer change.", details)
	case action == "close" && ticket.Status == domain.TicketStatusClosed:
		return apperrors.NewInvalidTransition("This ticket is already closed.", details)
	case action == "reopen" && ticket.Status == domain.TicketStatusOpen:
		return apperrors.NewInvalidTransition("This ticket is already open.", details)
	default:
		return apperrors.NewInvalidTransition("This ticket cannot "+action+" right now.", details)
	}
}

func (s *LifecycleService) advisory(op string, ticket *domain.Ticket, fn func() error) {
	if s.platform == nil {
		return
	}
	if err := fn(); err != nil {
		s.metrics.SideEffectFailed(op)
		s.logger.Warn("advisory step failed",
			zap.String("op", op),
			zap.Int64("ticket_id", ticket.ID),
			zap.String("channel_id", ticket.ChannelID),
			zap.Error(err),
		)
	}
}

func (s *LifecycleService) committed(ctx context.Context, action string, eventType events.EventType, ticket *domain.Ticket, actor domain.Actor, payload interface{}) {
	s.metrics.Transition(action)
	s.logger.Info("ticket transition",
		zap.String("action", action),
		zap.Int64("ticket_id", ticket.ID),
		zap.String("guild_id", ticket.GuildID),
		zap.String("actor_id", actor.UserID),
		zap.String("status", string(ticket.Status)),
	)
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewTicketEvent(eventType, ticket, actor, s.now(), payload))
}
