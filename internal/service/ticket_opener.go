package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/events"
	"github.com/spec-kit/guild-tickets/internal/lock"
	"github.com/spec-kit/guild-tickets/internal/observability"
	"github.com/spec-kit/guild-tickets/internal/platform"
	"github.com/spec-kit/guild-tickets/internal/repository"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// MaxReasonLength bounds the free-text reason on open.
const MaxReasonLength = 1000

// OpenRequest describes an open-ticket request from the interaction layer.
type OpenRequest struct {
	GuildID string
	Actor   domain.Actor
	PanelID *int64
	Reason  string
}

// TicketOpener runs the open flow: creation lock, quota, provisioning,
// channel creation, insert.
type TicketOpener struct {
	panels       repository.PanelRepository
	tickets      repository.TicketRepository
	quota        *QuotaGuard
	provisioning *ProvisioningService
	locker       lock.Locker
	platform     platform.Platform
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// OpenerDependencies bundles collaborators for the opener.
type OpenerDependencies struct {
	PanelRepo    repository.PanelRepository
	TicketRepo   repository.TicketRepository
	Quota        *QuotaGuard
	Provisioning *ProvisioningService
	Locker       lock.Locker
	Platform     platform.Platform
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Now          func() time.Time
}

// NewTicketOpener constructs the opener.
func NewTicketOpener(deps OpenerDependencies) *TicketOpener {
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &TicketOpener{
		panels:       deps.PanelRepo,
		tickets:      deps.TicketRepo,
		quota:        deps.Quota,
		provisioning: deps.Provisioning,
		locker:       locker,
		platform:     deps.Platform,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       loggerOrNop(deps.Logger),
		now:          nowOrDefault(deps.Now),
	}
}

// Open creates a ticket for req.Actor. The quota check and the insert run
// under a lock on (guild, user[, panel]) so concurrent opens by one member
// cannot exceed the limit. Channel creation is critical; if the insert then
// fails the new channel is deleted on a best-effort basis.
func (o *TicketOpener) Open(ctx context.Context, req OpenRequest) (*domain.Ticket, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("Please describe your issue.", nil)
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return nil, apperrors.NewValidationError("Please keep the description under 1000 characters.", nil)
	}

	var panel *domain.Panel
	if req.PanelID != nil {
		p, err := o.panels.GetByID(ctx, *req.PanelID)
		if err != nil {
			return nil, storeError(err, "panel")
		}
		if p.GuildID != req.GuildID {
			return nil, apperrors.NewNotFound("panel", map[string]any{"panel_id": *req.PanelID})
		}
		panel = p
	}

	release, err := o.locker.Acquire(ctx, lock.OpenKey(req.GuildID, req.Actor.UserID, req.PanelID))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer release()

	if err := o.quota.CheckCanOpen(ctx, req.GuildID, req.Actor.UserID, panel); err != nil {
		o.metrics.OpenRejected(strings.ToLower(apperrors.ToDomainError(err).Code))
		return nil, err
	}

	infra, err := o.provisioning.EnsureInfrastructure(ctx, req.GuildID)
	if err != nil {
		return nil, err
	}

	spec := platform.TicketChannelSpec{
		GuildID:      req.GuildID,
		Name:         platform.OpenChannelName(req.Actor.Username),
		CategoryID:   infra.CategoryID,
		OpenerID:     req.Actor.UserID,
		StaffRoleIDs: []string{infra.StaffRoleID},
		Topic:        reason,
	}
	source := "general"
	if panel != nil {
		source = "panel"
		if panel.CategoryID != "" {
			spec.CategoryID = panel.CategoryID
		}
		if role := panel.StaffRole(); role != "" && role != infra.StaffRoleID {
			spec.StaffRoleIDs = append(spec.StaffRoleIDs, role)
		}
	}

	channelID, err := o.platform.CreateTicketChannel(ctx, spec)
	if err != nil {
		return nil, apperrors.NewExternalResource("create ticket channel", err)
	}

	ticket := &domain.Ticket{
		GuildID:   req.GuildID,
		ChannelID: channelID,
		UserID:    req.Actor.UserID,
		PanelID:   req.PanelID,
		Reason:    reason,
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityNormal,
		Tags:      []string{},
		CreatedAt: o.now(),
	}
	if err := o.tickets.Create(ctx, ticket); err != nil {
		if delErr := o.platform.DeleteChannel(ctx, channelID); delErr != nil {
			o.metrics.SideEffectFailed("delete orphan channel")
			o.logger.Warn("failed to delete orphan ticket channel",
				zap.String("guild_id", req.GuildID), zap.String("channel_id", channelID), zap.Error(delErr))
		}
		return nil, apperrors.NewPersistence(err)
	}

	o.metrics.TicketOpened(source)
	o.logger.Info("ticket opened",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("guild_id", ticket.GuildID),
		zap.String("user_id", ticket.UserID),
		zap.String("channel_id", ticket.ChannelID),
	)
	if o.dispatcher != nil {
		_ = o.dispatcher.Publish(ctx, events.NewTicketEvent(events.EventTicketOpened, ticket, req.Actor, ticket.CreatedAt,
			events.TicketOpenedPayload{UserID: ticket.UserID, PanelID: ticket.PanelID, Reason: reason}))
	}
	return ticket, nil
}
