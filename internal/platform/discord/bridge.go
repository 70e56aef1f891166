package discord

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/interaction"
	"github.com/spec-kit/guild-tickets/internal/interaction/customid"
)

// handleTimeout bounds the work behind one interaction. Deferred responses
// stay editable for much longer, so this only guards against hangs.
const handleTimeout = 30 * time.Second

// Bridge feeds gateway interactions into the router and writes its
// responses back.
type Bridge struct {
	session Session
	router  *interaction.Router
	logger  *zap.Logger
}

// NewBridge constructs a bridge.
func NewBridge(session Session, router *interaction.Router, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{session: session, router: router, logger: logger}
}

// OnInteraction is registered with discordgo's AddHandler.
func (b *Bridge) OnInteraction(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	b.Handle(ic.Interaction)
}

// Handle routes one interaction. Buttons that open a modal are answered
// directly; everything else is deferred first so slow platform calls do not
// miss the acknowledgement window.
func (b *Bridge) Handle(i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		req, ok := commandRequest(i)
		if !ok {
			return
		}
		b.deferred(ctx, i, func() *interaction.Response { return b.router.HandleCommand(ctx, req) })

	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		token, ok := customid.Parse(data.CustomID)
		if !ok {
			return
		}
		req := componentRequest(i, interaction.KindButton, data.CustomID, nil)
		if opensModal(token.Action) {
			b.respond(ctx, i, b.router.HandleComponent(ctx, req))
			return
		}
		b.deferred(ctx, i, func() *interaction.Response { return b.router.HandleComponent(ctx, req) })

	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		if _, ok := customid.Parse(data.CustomID); !ok {
			return
		}
		req := componentRequest(i, interaction.KindModal, data.CustomID, modalFields(data.Components))
		b.deferred(ctx, i, func() *interaction.Response { return b.router.HandleComponent(ctx, req) })
	}
}

func opensModal(action customid.Action) bool {
	switch action {
	case customid.ActionOpen, customid.ActionOpenPanel, customid.ActionCloseReason,
		customid.ActionAddUser, customid.ActionRemoveUser:
		return true
	}
	return false
}

// respond answers immediately with a modal or a message.
func (b *Bridge) respond(ctx context.Context, i *discordgo.Interaction, resp *interaction.Response) {
	if resp == nil {
		return
	}
	out := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseChannelMessageWithSource}
	if resp.Modal != nil {
		out.Type = discordgo.InteractionResponseModal
		out.Data = modalData(resp.Modal)
	} else {
		out.Data = &discordgo.InteractionResponseData{
			Content:    resp.Content,
			Components: buttonRows(resp.Buttons),
			Files:      files(resp.File),
		}
		if resp.Ephemeral {
			out.Data.Flags = discordgo.MessageFlagsEphemeral
		}
	}
	if err := b.session.InteractionRespond(i, out, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("interaction response failed", zap.String("interaction_id", i.ID), zap.Error(err))
	}
}

// deferred acknowledges ephemerally, runs fn and edits the acknowledgement.
// A public response is posted to the channel as a regular message and the
// ephemeral reply only confirms it.
func (b *Bridge) deferred(ctx context.Context, i *discordgo.Interaction, fn func() *interaction.Response) {
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Warn("interaction acknowledgement failed", zap.String("interaction_id", i.ID), zap.Error(err))
		return
	}

	resp := fn()
	if resp == nil {
		resp = &interaction.Response{Content: interaction.GenericFailure, Ephemeral: true}
	}

	content := resp.Content
	if !resp.Ephemeral {
		_, err := b.session.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
			Content:    resp.Content,
			Components: buttonRows(resp.Buttons),
			Files:      files(resp.File),
		}, discordgo.WithContext(ctx))
		if err != nil {
			b.logger.Warn("posting public response failed", zap.String("channel_id", i.ChannelID), zap.Error(err))
			content = interaction.GenericFailure
		} else {
			content = "Done."
		}
		resp = &interaction.Response{Content: content, Ephemeral: true}
	}

	edit := &discordgo.WebhookEdit{Content: &content, Files: files(resp.File)}
	if _, err := b.session.InteractionResponseEdit(i, edit, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("interaction edit failed", zap.String("interaction_id", i.ID), zap.Error(err))
	}
}

func modalData(m *interaction.Modal) *discordgo.InteractionResponseData {
	rows := make([]discordgo.MessageComponent, 0, len(m.Fields))
	for _, f := range m.Fields {
		style := discordgo.TextInputShort
		if f.Paragraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:  f.ID,
				Label:     f.Label,
				Style:     style,
				Required:  f.Required,
				MaxLength: f.MaxLength,
			},
		}})
	}
	return &discordgo.InteractionResponseData{CustomID: m.CustomID, Title: m.Title, Components: rows}
}

func files(f *interaction.File) []*discordgo.File {
	if f == nil {
		return nil
	}
	return []*discordgo.File{{Name: f.Name, ContentType: "text/plain", Reader: bytes.NewReader(f.Content)}}
}

func modalFields(components []discordgo.MessageComponent) map[string]string {
	fields := map[string]string{}
	for _, c := range components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				fields[input.CustomID] = input.Value
			}
		}
	}
	return fields
}

func actorOf(i *discordgo.Interaction) domain.Actor {
	if i.Member != nil && i.Member.User != nil {
		return domain.Actor{
			UserID:          i.Member.User.ID,
			Username:        i.Member.User.Username,
			IsAdministrator: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
			RoleIDs:         i.Member.Roles,
		}
	}
	if i.User != nil {
		return domain.Actor{UserID: i.User.ID, Username: i.User.Username}
	}
	return domain.Actor{}
}

func componentRequest(i *discordgo.Interaction, kind interaction.Kind, customID string, fields map[string]string) interaction.Request {
	return interaction.Request{
		Kind:      kind,
		CustomID:  customID,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Actor:     actorOf(i),
		Fields:    fields,
	}
}

func commandRequest(i *discordgo.Interaction) (interaction.CommandRequest, bool) {
	data := i.ApplicationCommandData()
	if data.Name != interaction.CommandName || len(data.Options) == 0 {
		return interaction.CommandRequest{}, false
	}
	sub := data.Options[0]
	options := make(map[string]string, len(sub.Options))
	for _, opt := range sub.Options {
		options[opt.Name] = optionString(opt)
	}
	return interaction.CommandRequest{
		Subcommand: sub.Name,
		GuildID:    i.GuildID,
		ChannelID:  i.ChannelID,
		Actor:      actorOf(i),
		Options:    options,
	}, true
}

// optionString renders an option value. Role, channel and user options carry
// their snowflake as a string; integers arrive as JSON numbers.
func optionString(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	switch v := opt.Value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
