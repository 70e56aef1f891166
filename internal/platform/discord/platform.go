package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/guild-tickets/internal/platform"
)

// TicketPerms is what the opener, participants and staff get in a ticket channel.
const TicketPerms = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionEmbedLinks |
	discordgo.PermissionAttachFiles

// messagePage is the largest page the messages endpoint returns.
const messagePage = 100

// Adapter implements platform.Platform with a discordgo session.
type Adapter struct {
	session Session
	botID   func() string
}

// NewAdapter wraps session. botID returns the bot's user id once the
// gateway is ready, or "" before that.
func NewAdapter(session Session, botID func() string) *Adapter {
	if botID == nil {
		botID = func() string { return "" }
	}
	return &Adapter{session: session, botID: botID}
}

var _ platform.Platform = (*Adapter)(nil)

func (a *Adapter) CreateStaffRole(ctx context.Context, guildID string) (string, error) {
	mentionable := true
	role, err := a.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        platform.StaffRoleName,
		Mentionable: &mentionable,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return role.ID, nil
}

func (a *Adapter) CreateCategory(ctx context.Context, guildID string) (string, error) {
	ch, err := a.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: platform.TicketsCategory,
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (a *Adapter) LookupChannel(ctx context.Context, guildID, channelID string) (*platform.Channel, error) {
	ch, err := a.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	if ch.GuildID != guildID {
		return nil, platform.ErrResourceNotFound
	}
	return &platform.Channel{ID: ch.ID, Name: ch.Name, IsCategory: ch.Type == discordgo.ChannelTypeGuildCategory}, nil
}

// CreateTicketChannel creates a text channel hidden from @everyone and
// visible to the opener, the bot and each staff role.
func (a *Adapter) CreateTicketChannel(ctx context.Context, spec platform.TicketChannelSpec) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{ID: spec.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: spec.OpenerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: TicketPerms},
	}
	if bot := a.botID(); bot != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: bot, Type: discordgo.PermissionOverwriteTypeMember, Allow: TicketPerms | discordgo.PermissionManageChannels,
		})
	}
	seen := map[string]bool{}
	for _, role := range spec.StaffRoleIDs {
		if role == "" || seen[role] {
			continue
		}
		seen[role] = true
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: role, Type: discordgo.PermissionOverwriteTypeRole, Allow: TicketPerms,
		})
	}

	ch, err := a.session.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.CategoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (a *Adapter) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := a.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return translate(err)
}

func (a *Adapter) RenameChannel(ctx context.Context, channelID, name string) error {
	_, err := a.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return translate(err)
}

func (a *Adapter) GrantAccess(ctx context.Context, channelID, userID string) error {
	return a.session.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, TicketPerms, 0, discordgo.WithContext(ctx))
}

func (a *Adapter) RevokeAccess(ctx context.Context, channelID, userID string) error {
	return translate(a.session.ChannelPermissionDelete(channelID, userID, discordgo.WithContext(ctx)))
}

func (a *Adapter) SendMessage(ctx context.Context, channelID, content string, buttons ...platform.Button) error {
	_, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    content,
		Components: buttonRows(buttons),
	}, discordgo.WithContext(ctx))
	return err
}

// ChannelMessages pages backwards from the newest message and returns up to
// limit messages, oldest first.
func (a *Adapter) ChannelMessages(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	var collected []*discordgo.Message
	before := ""
	for len(collected) < limit {
		page := messagePage
		if rest := limit - len(collected); rest < page {
			page = rest
		}
		msgs, err := a.session.ChannelMessages(channelID, page, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, translate(err)
		}
		collected = append(collected, msgs...)
		if len(msgs) < page {
			break
		}
		before = msgs[len(msgs)-1].ID
	}

	result := make([]platform.Message, 0, len(collected))
	for i := len(collected) - 1; i >= 0; i-- {
		m := collected[i]
		msg := platform.Message{Content: m.Content, Timestamp: m.Timestamp}
		if m.Author != nil {
			msg.AuthorID = m.Author.ID
			msg.AuthorName = m.Author.Username
		}
		for _, att := range m.Attachments {
			msg.Content += " (attachment: " + att.Filename + ")"
		}
		result = append(result, msg)
	}
	return result, nil
}

// translate maps a 404 from the REST API to platform.ErrResourceNotFound.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return platform.ErrResourceNotFound
	}
	return err
}

func buttonStyle(style string) discordgo.ButtonStyle {
	switch style {
	case "Primary":
		return discordgo.PrimaryButton
	case "Secondary":
		return discordgo.SecondaryButton
	case "Danger":
		return discordgo.DangerButton
	default:
		return discordgo.SuccessButton
	}
}

// buttonRows packs buttons five to a row.
func buttonRows(buttons []platform.Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return nil
	}
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += 5 {
		end := start + 5
		if end > len(buttons) {
			end = len(buttons)
		}
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			btn := discordgo.Button{Label: b.Label, Style: buttonStyle(b.Style), CustomID: b.CustomID}
			if b.Emoji != "" {
				btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			row.Components = append(row.Components, btn)
		}
		rows = append(rows, row)
	}
	return rows
}
