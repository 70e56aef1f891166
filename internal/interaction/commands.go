package interaction

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/interaction/customid"
	"github.com/spec-kit/guild-tickets/internal/platform"
	"github.com/spec-kit/guild-tickets/internal/service"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// CommandName is the root slash command.
const CommandName = "ticket"

// Subcommands of /ticket.
const (
	SubSetup       = "setup"
	SubConfig      = "config"
	SubPanelCreate = "panel-create"
	SubPanelList   = "panel-list"
	SubPanelDelete = "panel-delete"
	SubPanelConfig = "panel-config"
	SubPriority    = "priority"
	SubTags        = "tags"
	SubNote        = "note"
	SubNotes       = "notes"
	SubStats       = "stats"
)

// Option names shared with command registration.
const (
	OptStaffRole        = "staff_role"
	OptCategory         = "category"
	OptMaxOpenTickets   = "max_open_tickets"
	OptOpenCooldownSec  = "open_cooldown_sec"
	OptAutoArchiveHours = "auto_archive_hours"
	OptLabel            = "label"
	OptEmoji            = "emoji"
	OptStyle            = "style"
	OptPanelID          = "panel_id"
	OptTicketID         = "ticket_id"
	OptLevel            = "level"
	OptTags             = "tags"
	OptText             = "text"
)

// CommandRequest is a /ticket invocation. Options hold the raw option values;
// role, channel and user options carry ids.
type CommandRequest struct {
	Subcommand string
	GuildID    string
	ChannelID  string
	Actor      domain.Actor
	Options    map[string]string
}

// HandleCommand routes a /ticket subcommand.
func (r *Router) HandleCommand(ctx context.Context, req CommandRequest) *Response {
	asRequest := Request{Kind: "command", CustomID: CommandName + " " + req.Subcommand, GuildID: req.GuildID, ChannelID: req.ChannelID, Actor: req.Actor}
	if req.GuildID == "" {
		return ephemeral("Tickets only work inside a server.")
	}
	resp, err := r.runCommand(ctx, req)
	return r.finish("command:"+req.Subcommand, asRequest, resp, err)
}

func (r *Router) runCommand(ctx context.Context, req CommandRequest) (*Response, error) {
	opt := func(name string) string { return strings.TrimSpace(req.Options[name]) }

	switch req.Subcommand {
	case SubSetup:
		infra, err := r.config.Setup(ctx, req.Actor, req.GuildID, opt(OptStaffRole), opt(OptCategory))
		if err != nil {
			return nil, err
		}
		return &Response{
			Content: fmt.Sprintf("Ticket system ready. Staff role <@&%s>, category <#%s>.\nNeed help? Press the button below to open a ticket.",
				infra.StaffRoleID, infra.CategoryID),
			Buttons: []platform.Button{{
				CustomID: customid.Format(customid.ActionOpen, 0),
				Label:    "Open Ticket",
				Style:    string(domain.PanelStyleSuccess),
			}},
		}, nil

	case SubConfig:
		patch, err := guildPatch(req.Options)
		if err != nil {
			return nil, err
		}
		var cfg *domain.GuildConfig
		if patch == (domain.GuildConfigPatch{}) {
			cfg, err = r.config.Get(ctx, req.Actor, req.GuildID)
		} else {
			cfg, err = r.config.Configure(ctx, req.Actor, req.GuildID, patch)
		}
		if err != nil {
			return nil, err
		}
		return ephemeral(describeConfig(cfg)), nil

	case SubPanelCreate:
		panel, err := r.config.CreatePanel(ctx, req.Actor, req.GuildID, service.PanelInput{
			Label:      opt(OptLabel),
			CategoryID: opt(OptCategory),
			Emoji:      opt(OptEmoji),
			Style:      opt(OptStyle),
		})
		if err != nil {
			return nil, err
		}
		return &Response{
			Content: fmt.Sprintf("**%s**\nPress the button below to open a ticket.", panel.Label),
			Buttons: []platform.Button{panelButton(panel)},
		}, nil

	case SubPanelList:
		panels, err := r.config.ListPanels(ctx, req.Actor, req.GuildID)
		if err != nil {
			return nil, err
		}
		if len(panels) == 0 {
			return ephemeral("No panels configured."), nil
		}
		lines := make([]string, 0, len(panels))
		for _, p := range panels {
			lines = append(lines, fmt.Sprintf("#%d %s (%s) category <#%s>", p.ID, p.Label, p.Style, p.CategoryID))
		}
		return ephemeral(strings.Join(lines, "\n")), nil

	case SubPanelDelete:
		panelID, err := requiredID(req.Options, OptPanelID)
		if err != nil {
			return nil, err
		}
		if err := r.config.DeletePanel(ctx, req.Actor, req.GuildID, panelID); err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Panel #%d deleted.", panelID)), nil

	case SubPanelConfig:
		panelID, err := requiredID(req.Options, OptPanelID)
		if err != nil {
			return nil, err
		}
		patch, err := panelPatch(req.Options)
		if err != nil {
			return nil, err
		}
		panel, err := r.config.ConfigurePanel(ctx, req.Actor, req.GuildID, panelID, patch)
		if err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Panel #%d updated: staff role %s, max open %s, cooldown %s.",
			panel.ID, orDash(mentionRole(panel.StaffRole())), orDash(intString(panel.MaxOpenTickets)), orDash(intString(panel.OpenCooldownSec)))), nil

	case SubPriority:
		ticketID, err := r.commandTicket(ctx, req)
		if err != nil {
			return nil, err
		}
		p, err := r.details.SetPriority(ctx, req.Actor, ticketID, opt(OptLevel))
		if err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Ticket #%d priority set to %s.", ticketID, p)), nil

	case SubTags:
		ticketID, err := r.commandTicket(ctx, req)
		if err != nil {
			return nil, err
		}
		tags, err := r.details.SetTags(ctx, req.Actor, ticketID, service.ParseTagList(req.Options[OptTags]))
		if err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Ticket #%d tags: %s", ticketID, orDash(strings.Join(tags, ", ")))), nil

	case SubNote:
		ticketID, err := r.commandTicket(ctx, req)
		if err != nil {
			return nil, err
		}
		if _, err := r.details.AddNote(ctx, req.Actor, ticketID, req.Options[OptText]); err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Note added to ticket #%d.", ticketID)), nil

	case SubNotes:
		ticketID, err := r.commandTicket(ctx, req)
		if err != nil {
			return nil, err
		}
		notes, err := r.details.Notes(ctx, req.Actor, ticketID)
		if err != nil {
			return nil, err
		}
		if len(notes) == 0 {
			return ephemeral(fmt.Sprintf("Ticket #%d has no notes.", ticketID)), nil
		}
		lines := make([]string, 0, len(notes))
		for _, n := range notes {
			lines = append(lines, fmt.Sprintf("<@%s> (%s): %s", n.UserID, n.CreatedAt.UTC().Format("2006-01-02 15:04"), n.Note))
		}
		return ephemeral(strings.Join(lines, "\n")), nil

	case SubStats:
		stats, err := r.details.Stats(ctx, req.Actor, req.GuildID)
		if err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Open: %d\nClosed: %d\nArchived: %d", stats.Open, stats.Closed, stats.Archived)), nil
	}
	return nil, apperrors.NewValidationError("Unknown subcommand.", map[string]any{"subcommand": req.Subcommand})
}

// commandTicket takes the ticket_id option or the ticket bound to the channel.
func (r *Router) commandTicket(ctx context.Context, req CommandRequest) (int64, error) {
	token := customid.Token{}
	if raw := strings.TrimSpace(req.Options[OptTicketID]); raw != "" {
		id, err := parseID(OptTicketID, raw)
		if err != nil {
			return 0, err
		}
		token.ID = id
	}
	return r.resolveTicket(ctx, token, req.ChannelID)
}

func guildPatch(opts map[string]string) (domain.GuildConfigPatch, error) {
	var patch domain.GuildConfigPatch
	var err error
	if patch.MaxOpenTickets, err = optionalInt(opts, OptMaxOpenTickets); err != nil {
		return patch, err
	}
	if patch.OpenCooldownSec, err = optionalInt(opts, OptOpenCooldownSec); err != nil {
		return patch, err
	}
	patch.AutoArchiveHours, err = optionalInt(opts, OptAutoArchiveHours)
	return patch, err
}

func panelPatch(opts map[string]string) (domain.PanelPatch, error) {
	var patch domain.PanelPatch
	var err error
	if role := strings.TrimSpace(opts[OptStaffRole]); role != "" {
		patch.StaffRoleID = &role
	}
	if patch.MaxOpenTickets, err = optionalInt(opts, OptMaxOpenTickets); err != nil {
		return patch, err
	}
	patch.OpenCooldownSec, err = optionalInt(opts, OptOpenCooldownSec)
	return patch, err
}

func optionalInt(opts map[string]string, name string) (*int, error) {
	raw := strings.TrimSpace(opts[name])
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s must be a whole number.", name), map[string]any{"value": raw})
	}
	return &v, nil
}

func requiredID(opts map[string]string, name string) (int64, error) {
	raw := strings.TrimSpace(opts[name])
	if raw == "" {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s is required.", name), nil)
	}
	return parseID(name, raw)
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s must be a positive number.", name), map[string]any{"value": raw})
	}
	return id, nil
}

func panelButton(panel *domain.Panel) platform.Button {
	b := platform.Button{
		CustomID: customid.Format(customid.ActionOpenPanel, panel.ID),
		Label:    panel.Label,
		Style:    string(panel.Style),
	}
	if panel.Emoji != nil {
		b.Emoji = *panel.Emoji
	}
	return b
}

func describeConfig(cfg *domain.GuildConfig) string {
	return fmt.Sprintf("Staff role: %s\nCategory: %s\nMax open tickets: %s\nOpen cooldown (s): %s\nAuto-archive (h): %s",
		orDash(mentionRole(cfg.StaffRole())),
		orDash(mentionChannel(cfg.TicketsCategory())),
		orDash(intString(cfg.MaxOpenTickets)),
		orDash(intString(cfg.OpenCooldownSec)),
		orDash(intString(cfg.AutoArchiveHours)),
	)
}

func intString(v *int) string {
	if n := domain.Positive(v); n > 0 {
		return strconv.Itoa(n)
	}
	return ""
}

func mentionRole(id string) string {
	if id == "" {
		return ""
	}
	return "<@&" + id + ">"
}

func mentionChannel(id string) string {
	if id == "" {
		return ""
	}
	return "<#" + id + ">"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
