package interaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guild-tickets/internal/auth"
	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/interaction/customid"
	"github.com/spec-kit/guild-tickets/internal/lock"
	"github.com/spec-kit/guild-tickets/internal/platform"
	"github.com/spec-kit/guild-tickets/internal/platform/platformtest"
	"github.com/spec-kit/guild-tickets/internal/repository"
	"github.com/spec-kit/guild-tickets/internal/service"
)

var (
	admin  = domain.Actor{UserID: "100", Username: "admin", IsAdministrator: true}
	member = domain.Actor{UserID: "200", Username: "member"}
)

type harness struct {
	router   *Router
	stores   repository.Stores
	platform *platformtest.Fake
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	stores := repository.NewMemoryStore().Stores()
	fake := platformtest.NewFake()
	locker := lock.NewKeyedMutex()
	policy := auth.NewStaffPolicy()

	provisioning := service.NewProvisioningService(service.ProvisioningDependencies{
		ConfigRepo: stores.GuildConfigs, Platform: fake, Locker: locker,
	})
	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		ConfigRepo: stores.GuildConfigs, PanelRepo: stores.Panels, TicketRepo: stores.Tickets,
		MemberRepo: stores.Members, Policy: policy, Platform: fake,
	})
	opener := service.NewTicketOpener(service.OpenerDependencies{
		PanelRepo: stores.Panels, TicketRepo: stores.Tickets, Locker: locker, Platform: fake,
		Provisioning: provisioning,
		Quota:        service.NewQuotaGuard(service.QuotaDependencies{ConfigRepo: stores.GuildConfigs, TicketRepo: stores.Tickets}),
	})
	details := service.NewTicketDetailsService(service.TicketDetailsDependencies{
		ConfigRepo: stores.GuildConfigs, PanelRepo: stores.Panels, TicketRepo: stores.Tickets,
		NoteRepo: stores.Notes, Policy: policy,
	})
	config := service.NewConfigService(service.ConfigDependencies{
		ConfigRepo: stores.GuildConfigs, PanelRepo: stores.Panels, Provisioning: provisioning,
		Platform: fake, Policy: policy,
	})
	transcripts := service.NewTranscriptService(service.TranscriptDependencies{
		ConfigRepo: stores.GuildConfigs, PanelRepo: stores.Panels, TicketRepo: stores.Tickets,
		NoteRepo: stores.Notes, Platform: fake, Policy: policy,
	})

	return &harness{
		router: NewRouter(RouterDependencies{
			Opener: opener, Lifecycle: lifecycle, Details: details, Config: config, Transcripts: transcripts,
		}),
		stores:   stores,
		platform: fake,
	}
}

func (h *harness) openTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	resp := h.router.HandleComponent(context.Background(), Request{
		Kind: KindModal, CustomID: "ticket:open", GuildID: "g1", Actor: member,
		Fields: map[string]string{FieldReason: "my order is missing"},
	})
	require.NotNil(t, resp)
	require.Contains(t, resp.Content, "Ticket created: <#")
	specs := h.platform.Specs()
	require.NotEmpty(t, specs)
	ticket, err := h.stores.Tickets.GetByChannelID(context.Background(), "channel-3")
	require.NoError(t, err)
	return ticket
}

func TestHandleComponent_IgnoresForeignTokens(t *testing.T) {
	h := newHarness(t)
	assert.Nil(t, h.router.HandleComponent(context.Background(), Request{Kind: KindButton, CustomID: "poll:vote:1", GuildID: "g1"}))
	assert.Nil(t, h.router.HandleComponent(context.Background(), Request{Kind: KindButton, CustomID: "ticket:dance", GuildID: "g1"}))
}

func TestHandleComponent_OpenButtonShowsModal(t *testing.T) {
	h := newHarness(t)
	resp := h.router.HandleComponent(context.Background(), Request{Kind: KindButton, CustomID: "ticket:openpanel:4", GuildID: "g1", Actor: member})
	require.NotNil(t, resp)
	require.NotNil(t, resp.Modal)
	assert.Equal(t, "ticket:openpanel:4", resp.Modal.CustomID)
	require.Len(t, resp.Modal.Fields, 1)
	assert.Equal(t, FieldReason, resp.Modal.Fields[0].ID)
	assert.Equal(t, service.MaxReasonLength, resp.Modal.Fields[0].MaxLength)
}

func TestHandleComponent_OpenThenCloseByChannel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ticket := h.openTicket(t)
	assert.Equal(t, "my order is missing", ticket.Reason)

	resp := h.router.HandleComponent(ctx, Request{Kind: KindButton, CustomID: "ticket:close", GuildID: "g1", ChannelID: ticket.ChannelID, Actor: member})
	require.NotNil(t, resp)
	assert.True(t, resp.Ephemeral)
	assert.Equal(t, "Only staff can do that.", resp.Content)

	resp = h.router.HandleComponent(ctx, Request{Kind: KindButton, CustomID: "ticket:close", GuildID: "g1", ChannelID: ticket.ChannelID, Actor: admin})
	require.NotNil(t, resp)
	assert.Contains(t, resp.Content, "closed")

	stored, err := h.stores.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)

	resp = h.router.HandleComponent(ctx, Request{Kind: KindButton, CustomID: customid.Format(customid.ActionClose, ticket.ID), GuildID: "g1", Actor: admin})
	require.NotNil(t, resp)
	assert.Contains(t, resp.Content, "already closed")
}

func TestHandleComponent_QuotaMessageIsShown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.stores.GuildConfigs.UpsertAdvanced(ctx, "g1", domain.GuildConfigPatch{MaxOpenTickets: domain.IntPtr(1)})
	require.NoError(t, err)
	h.openTicket(t)

	resp := h.router.HandleComponent(ctx, Request{
		Kind: KindModal, CustomID: "ticket:open", GuildID: "g1", Actor: member,
		Fields: map[string]string{FieldReason: "again"},
	})
	require.NotNil(t, resp)
	assert.Contains(t, resp.Content, "(1)")
	assert.True(t, resp.Ephemeral)
}

func TestHandleComponent_InternalErrorsAreGeneric(t *testing.T) {
	h := newHarness(t)
	h.platform.CreateTicketChannelFunc = func(context.Context, platform.TicketChannelSpec) (string, error) {
		return "", errors.New("discord 500")
	}

	resp := h.router.HandleComponent(context.Background(), Request{
		Kind: KindModal, CustomID: "ticket:open", GuildID: "g1", Actor: member,
		Fields: map[string]string{FieldReason: "help"},
	})
	require.NotNil(t, resp)
	assert.Equal(t, GenericFailure, resp.Content)
	assert.NotContains(t, resp.Content, "discord 500")
}

func TestHandleComponent_ParticipantsAndTranscript(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ticket := h.openTicket(t)

	resp := h.router.HandleComponent(ctx, Request{
		Kind: KindModal, CustomID: customid.Format(customid.ActionAddUser, ticket.ID), GuildID: "g1", Actor: admin,
		Fields: map[string]string{FieldUserID: "<@!300>"},
	})
	require.NotNil(t, resp)
	assert.Equal(t, "Added <@300> to ticket #1.", resp.Content)

	resp = h.router.HandleComponent(ctx, Request{
		Kind: KindModal, CustomID: customid.Format(customid.ActionAddUser, ticket.ID), GuildID: "g1", Actor: admin,
		Fields: map[string]string{FieldUserID: "not a user"},
	})
	require.NotNil(t, resp)
	assert.Equal(t, "Please enter a user mention or id.", resp.Content)

	resp = h.router.HandleComponent(ctx, Request{Kind: KindButton, CustomID: customid.Format(customid.ActionTranscript, ticket.ID), GuildID: "g1", Actor: admin})
	require.NotNil(t, resp)
	require.NotNil(t, resp.File)
	assert.Equal(t, "ticket-1-transcript.txt", resp.File.Name)
}

func TestHandleCommand_PanelCreateAndTags(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	resp := h.router.HandleCommand(ctx, CommandRequest{
		Subcommand: SubPanelCreate, GuildID: "g1", Actor: admin,
		Options: map[string]string{OptLabel: "Billing", OptStyle: "danger", OptEmoji: "💳"},
	})
	require.NotNil(t, resp)
	assert.False(t, resp.Ephemeral)
	require.Len(t, resp.Buttons, 1)
	assert.Equal(t, "ticket:openpanel:1", resp.Buttons[0].CustomID)
	assert.Equal(t, "Danger", resp.Buttons[0].Style)

	resp = h.router.HandleCommand(ctx, CommandRequest{Subcommand: SubConfig, GuildID: "g1", Actor: member,
		Options: map[string]string{OptMaxOpenTickets: "2"}})
	assert.Equal(t, "Only server administrators can change ticket settings.", resp.Content)

	resp = h.router.HandleCommand(ctx, CommandRequest{Subcommand: SubConfig, GuildID: "g1", Actor: admin,
		Options: map[string]string{OptMaxOpenTickets: "two"}})
	assert.Contains(t, resp.Content, "whole number")

	ticket := h.openTicket(t)
	resp = h.router.HandleCommand(ctx, CommandRequest{Subcommand: SubTags, GuildID: "g1", ChannelID: ticket.ChannelID, Actor: admin,
		Options: map[string]string{OptTags: "a, a ,b"}})
	assert.Equal(t, "Ticket #1 tags: a, b", resp.Content)

	resp = h.router.HandleCommand(ctx, CommandRequest{Subcommand: SubPriority, GuildID: "g1", Actor: admin,
		Options: map[string]string{OptTicketID: "1", OptLevel: "URGENT"}})
	assert.Equal(t, "Ticket #1 priority set to urgent.", resp.Content)

	resp = h.router.HandleCommand(ctx, CommandRequest{Subcommand: SubStats, GuildID: "g1", Actor: admin})
	assert.Equal(t, "Open: 1\nClosed: 0\nArchived: 0", resp.Content)
}

func TestParseUserMention(t *testing.T) {
	assert.Equal(t, "123", ParseUserMention("<@123>"))
	assert.Equal(t, "123", ParseUserMention("<@!123>"))
	assert.Equal(t, "123", ParseUserMention(" 123 "))
	assert.Equal(t, "", ParseUserMention("@someone"))
}
