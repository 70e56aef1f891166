package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusClosed   TicketStatus = "closed"
	TicketStatusArchived TicketStatus = "archived"
)

// TicketPriority enumerates triage urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// DefaultCloseReason is recorded when a ticket is closed without a reason.
const DefaultCloseReason = "No reason provided"

// ParsePriority normalizes user input; anything unknown becomes normal.
func ParsePriority(s string) TicketPriority {
	switch p := TicketPriority(strings.ToLower(strings.TrimSpace(s))); p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return p
	}
	return TicketPriorityNormal
}

// NormalizeTags trims, drops empties and removes duplicates while keeping
// the first occurrence order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}

// Ticket is a support request bound to one platform channel.
type Ticket struct {
	ID          int64
	GuildID     string
	ChannelID   string
	UserID      string
	PanelID     *int64
	Reason      string
	Status      TicketStatus
	ClaimedBy   *string
	Priority    TicketPriority
	Tags        []string
	CreatedAt   time.Time
	ClosedAt    *time.Time
	ArchivedAt  *time.Time
	CloseReason *string
}

// IsArchived reports whether the ticket reached the terminal state.
func (t *Ticket) IsArchived() bool {
	return t.Status == TicketStatusArchived || t.ArchivedAt != nil
}

// Claimer returns the staff member currently holding the ticket, "" when unclaimed.
func (t *Ticket) Claimer() string {
	if t.ClaimedBy == nil || t.IsArchived() {
		return ""
	}
	return *t.ClaimedBy
}

// TicketNote is an append-only staff note.
type TicketNote struct {
	ID        int64
	TicketID  int64
	UserID    string
	Note      string
	CreatedAt time.Time
}

// TicketStats aggregates ticket counts for a guild.
type TicketStats struct {
	Open     int
	Closed   int
	Archived int
}
