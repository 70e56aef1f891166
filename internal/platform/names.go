package platform

import (
	"strconv"
	"strings"
)

// Default names used when the bot provisions a guild.
const (
	StaffRoleName    = "Ticket Staff"
	TicketsCategory  = "Tickets"
	maxChannelLength = 100
)

// OpenChannelName names a channel for a ticket before its id is known.
func OpenChannelName(username string) string {
	return sanitize("ticket-" + username)
}

// TicketChannelName is the name used while a ticket is open.
func TicketChannelName(ticketID int64) string {
	return "ticket-" + strconv.FormatInt(ticketID, 10)
}

// ClosedChannelName is the name used while a ticket is closed.
func ClosedChannelName(ticketID int64) string {
	return "closed-" + strconv.FormatInt(ticketID, 10)
}

// sanitize lowercases and keeps characters allowed in text channel names.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" || out == "ticket" {
		out = "ticket"
	}
	if len(out) > maxChannelLength {
		out = out[:maxChannelLength]
	}
	return out
}
