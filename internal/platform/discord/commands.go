package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/interaction"
)

// Commands describes /ticket and its subcommands.
func Commands() []*discordgo.ApplicationCommand {
	dm := false
	zero := float64(0)

	intOpt := func(name, desc string, required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type: discordgo.ApplicationCommandOptionInteger, Name: name, Description: desc, Required: required, MinValue: &zero,
		}
	}
	strOpt := func(name, desc string, required bool, maxLength int) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type: discordgo.ApplicationCommandOptionString, Name: name, Description: desc, Required: required, MaxLength: maxLength,
		}
	}
	roleOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionRole, Name: interaction.OptStaffRole, Description: desc}
	}
	categoryOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type: discordgo.ApplicationCommandOptionChannel, Name: interaction.OptCategory, Description: desc,
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
		}
	}
	ticketOpt := func() *discordgo.ApplicationCommandOption {
		return intOpt(interaction.OptTicketID, "Ticket number (defaults to this channel's ticket)", false)
	}
	sub := func(name, desc string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionSubCommand, Name: name, Description: desc, Options: opts}
	}

	styles := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Primary", Value: "Primary"},
		{Name: "Secondary", Value: "Secondary"},
		{Name: "Success", Value: "Success"},
		{Name: "Danger", Value: "Danger"},
	}
	styleOpt := strOpt(interaction.OptStyle, "Button style", false, 0)
	styleOpt.Choices = styles

	levels := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "low", Value: "low"},
		{Name: "normal", Value: "normal"},
		{Name: "high", Value: "high"},
		{Name: "urgent", Value: "urgent"},
	}
	levelOpt := strOpt(interaction.OptLevel, "Priority", true, 0)
	levelOpt.Choices = levels

	return []*discordgo.ApplicationCommand{{
		Name:         interaction.CommandName,
		Description:  "Ticket system",
		DMPermission: &dm,
		Options: []*discordgo.ApplicationCommandOption{
			sub(interaction.SubSetup, "Set up the staff role and ticket category",
				roleOpt("Existing staff role"), categoryOpt("Existing category for tickets")),
			sub(interaction.SubConfig, "Show or change quota, cooldown and retention",
				intOpt(interaction.OptMaxOpenTickets, "Open tickets per member (0 = unlimited)", false),
				intOpt(interaction.OptOpenCooldownSec, "Seconds between opens (0 = none)", false),
				intOpt(interaction.OptAutoArchiveHours, "Archive closed tickets after this many hours (0 = never)", false)),
			sub(interaction.SubPanelCreate, "Create a ticket panel in this channel",
				strOpt(interaction.OptLabel, "Button label", true, 80),
				styleOpt,
				strOpt(interaction.OptEmoji, "Button emoji", false, 64),
				categoryOpt("Category for this panel's tickets")),
			sub(interaction.SubPanelList, "List ticket panels"),
			sub(interaction.SubPanelDelete, "Delete a ticket panel",
				intOpt(interaction.OptPanelID, "Panel number", true)),
			sub(interaction.SubPanelConfig, "Override staff role, quota or cooldown for a panel",
				intOpt(interaction.OptPanelID, "Panel number", true),
				roleOpt("Staff role for this panel"),
				intOpt(interaction.OptMaxOpenTickets, "Open tickets per member in this panel (0 = guild default)", false),
				intOpt(interaction.OptOpenCooldownSec, "Seconds between opens in this panel (0 = guild default)", false)),
			sub(interaction.SubPriority, "Set a ticket's priority", levelOpt, ticketOpt()),
			sub(interaction.SubTags, "Replace a ticket's tags",
				strOpt(interaction.OptTags, "Comma separated tags", true, 500), ticketOpt()),
			sub(interaction.SubNote, "Add a staff note",
				strOpt(interaction.OptText, "Note", true, 2000), ticketOpt()),
			sub(interaction.SubNotes, "Show staff notes", ticketOpt()),
			sub(interaction.SubStats, "Ticket counts for this server"),
		},
	}}
}

// RegisterCommands overwrites the application's commands. With a guildID
// they are registered in that guild only, which applies instantly.
func RegisterCommands(ctx context.Context, session Session, appID, guildID string, logger *zap.Logger) error {
	created, err := session.ApplicationCommandBulkOverwrite(appID, guildID, Commands(), discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	scope := "global"
	if guildID != "" {
		scope = "guild"
	}
	if logger != nil {
		logger.Info("registered commands", zap.Int("count", len(created)), zap.String("scope", scope), zap.String("guild_id", guildID))
	}
	return nil
}
