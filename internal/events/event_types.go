package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/guild-tickets/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketOpened        EventType = "ticket_opened"
	EventTicketClaimed       EventType = "ticket_claimed"
	EventTicketUnclaimed     EventType = "ticket_unclaimed"
	EventTicketClosed        EventType = "ticket_closed"
	EventTicketReopened      EventType = "ticket_reopened"
	EventTicketArchived      EventType = "ticket_archived"
	EventTicketMemberAdded   EventType = "ticket_member_added"
	EventTicketMemberRemoved EventType = "ticket_member_removed"
)

// Event represents a lifecycle change emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	GuildID   string      `json:"guild_id"`
	ChannelID string      `json:"channel_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewTicketEvent stamps an event for ticket with a fresh id.
func NewTicketEvent(eventType EventType, ticket *domain.Ticket, actor domain.Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticket.ID,
		GuildID:   ticket.GuildID,
		ChannelID: ticket.ChannelID,
		ActorID:   actor.UserID,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketOpenedPayload payload.
type TicketOpenedPayload struct {
	UserID  string `json:"user_id"`
	PanelID *int64 `json:"panel_id,omitempty"`
	Reason  string `json:"reason"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Reason string `json:"reason"`
}

// TicketClaimPayload is used by claim and unclaim.
type TicketClaimPayload struct {
	StaffID string `json:"staff_id"`
}

// TicketMemberPayload is used by member added and removed.
type TicketMemberPayload struct {
	UserID string `json:"user_id"`
}
