// Package platform describes the chat-platform capabilities the ticket
// services need. The discord subpackage implements it on discordgo.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrResourceNotFound is returned by lookups when the platform reports the
// resource does not exist. Any other error is treated as transient.
var ErrResourceNotFound = errors.New("platform resource not found")

// Channel is the subset of channel state the services inspect.
type Channel struct {
	ID         string
	Name       string
	IsCategory bool
}

// TicketChannelSpec describes a private ticket channel. Only the opener, the
// staff roles and the bot itself can see it.
type TicketChannelSpec struct {
	GuildID      string
	Name         string
	CategoryID   string
	OpenerID     string
	StaffRoleIDs []string
	Topic        string
}

// Message is one channel message as used by transcripts.
type Message struct {
	AuthorID   string
	AuthorName string
	Content    string
	Timestamp  time.Time
}

// Button is an interactive control attached to a message. CustomID carries
// a ticket action token.
type Button struct {
	CustomID string
	Label    string
	Style    string
	Emoji    string
}

// Platform is the chat-platform surface used by provisioning, lifecycle side
// effects and the retention sweep.
type Platform interface {
	CreateStaffRole(ctx context.Context, guildID string) (string, error)
	CreateCategory(ctx context.Context, guildID string) (string, error)
	LookupChannel(ctx context.Context, guildID, channelID string) (*Channel, error)
	CreateTicketChannel(ctx context.Context, spec TicketChannelSpec) (string, error)
	DeleteChannel(ctx context.Context, channelID string) error
	RenameChannel(ctx context.Context, channelID, name string) error
	GrantAccess(ctx context.Context, channelID, userID string) error
	RevokeAccess(ctx context.Context, channelID, userID string) error
	SendMessage(ctx context.Context, channelID, content string, buttons ...Button) error
	// ChannelMessages returns up to limit messages, oldest first.
	ChannelMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
}
