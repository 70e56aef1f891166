package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/events"
	"github.com/spec-kit/guild-tickets/internal/interaction/customid"
	"github.com/spec-kit/guild-tickets/internal/platform"
)

// NotificationService announces lifecycle events inside the ticket channel
// and writes an audit log line for each of them.
type NotificationService struct {
	dispatcher events.Dispatcher
	platform   platform.Platform
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, p platform.Platform, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		platform:   p,
		logger:     loggerOrNop(logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketOpened, n.handleTicketOpened)
	n.dispatcher.Subscribe(events.EventTicketClaimed, n.handleTicketClaimed)
	n.dispatcher.Subscribe(events.EventTicketUnclaimed, n.handleTicketUnclaimed)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
	n.dispatcher.Subscribe(events.EventTicketReopened, n.handleTicketReopened)
	n.dispatcher.Subscribe(events.EventTicketArchived, n.audit)
	n.dispatcher.Subscribe(events.EventTicketMemberAdded, n.handleMemberAdded)
	n.dispatcher.Subscribe(events.EventTicketMemberRemoved, n.handleMemberRemoved)
}

func (n *NotificationService) handleTicketOpened(ctx context.Context, event events.Event) error {
	n.audit(ctx, event)
	payload, _ := event.Payload.(events.TicketOpenedPayload)
	return n.announce(ctx, event, fmt.Sprintf("Welcome <@%s>! Staff will be with you shortly.\n**Reason:** %s", payload.UserID, payload.Reason),
		ticketButton(customid.ActionClaim, event.TicketID, "Claim", domain.PanelStylePrimary),
		ticketButton(customid.ActionClose, event.TicketID, "Close", domain.PanelStyleDanger),
		ticketButton(customid.ActionCloseReason, event.TicketID, "Close With Reason", domain.PanelStyleDanger),
		ticketButton(customid.ActionTranscript, event.TicketID, "Transcript", domain.PanelStyleSecondary),
	)
}

func (n *NotificationService) handleTicketClaimed(ctx context.Context, event events.Event) error {
	n.audit(ctx, event)
	return n.announce(ctx, event, fmt.Sprintf("Ticket claimed by <@%s>.", event.ActorID))
}

func (n *NotificationService) handleTicketUnclaimed(ctx context.Context, event events.Event) error {
	n.audit(ctx, event)
	return n.announce(ctx, event, "Ticket unclaimed.")
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	n.audit(ctx, event)
	payload, _ := event.Payload.(events.TicketClosedPayload)
	return n.announce(ctx, event, fmt.Sprintf("Ticket closed by <@%s>.\n**Reason:** %s", event.ActorID, payload.Reason),
		ticketButton(customid.ActionReopen, event.TicketID, "Reopen", domain.PanelStyleSuccess),
		ticketButton(customid.ActionTranscript, event.TicketID, "Transcript", domain.PanelStyleSecondary),
	)
}

func (n *NotificationService) handleTicketReopened(ctx context.Context, event events.Event) error {
	n.audit(ctx, event)
	return n.announce(ctx, event, fmt.Sprintf("Ticket reopened by <@%s>.", event.ActorID))
}

func (n *NotificationService) handleMemberAdded(ctx context.Context, event events.Event) error {
	n.audit(ctx, event)
	payload, _ := event.Payload.(events.TicketMemberPayload)
	return n.announce(ctx, event, fmt.Sprintf("<@%s> was added to this ticket.", payload.UserID))
}

func (n *NotificationService) handleMemberRemoved(ctx context.Context, event events.Event) error {
	n.audit(ctx, event)
	payload, _ := event.Payload.(events.TicketMemberPayload)
	return n.announce(ctx, event, fmt.Sprintf("<@%s> was removed from this ticket.", payload.UserID))
}

func (n *NotificationService) audit(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("guild_id", event.GuildID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload),
	)
	return nil
}

// announce posts into the ticket channel. Failures surface to the
// dispatcher, which logs them; the transition itself already committed.
func (n *NotificationService) announce(ctx context.Context, event events.Event, content string, buttons ...platform.Button) error {
	if n.platform == nil || event.ChannelID == "" {
		return nil
	}
	return n.platform.SendMessage(ctx, event.ChannelID, content, buttons...)
}

func ticketButton(action customid.Action, ticketID int64, label string, style domain.PanelStyle) platform.Button {
	return platform.Button{CustomID: customid.Format(action, ticketID), Label: label, Style: string(style)}
}
