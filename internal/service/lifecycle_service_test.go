package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/events"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

func staffActor(t *testing.T, f *fixture) domain.Actor {
	t.Helper()
	cfg, err := f.stores.GuildConfigs.Get(context.Background(), "g1")
	require.NoError(t, err)
	return domain.Actor{UserID: "staff1", Username: "staff", RoleIDs: []string{cfg.StaffRole()}}
}

func TestLifecycle_CloseReopenKeepsChannel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.open(t, member, nil)
	staff := staffActor(t, f)

	closed, err := f.lifecycle.Close(ctx, staff, ticket.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.CloseReason)
	assert.Equal(t, domain.DefaultCloseReason, *closed.CloseReason)
	require.NotNil(t, closed.ClosedAt)
	assert.True(t, closed.ClosedAt.Equal(f.clock.Now()))

	reopened, err := f.lifecycle.Reopen(ctx, staff, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
	assert.Equal(t, ticket.ChannelID, reopened.ChannelID)
	assert.NotNil(t, reopened.ClosedAt, "close metadata is kept across reopen")

	_, err = f.lifecycle.Reopen(ctx, staff, ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	assert.Contains(t, err.Error(), "already open")

	assert.Equal(t, 1, f.platform.Count("CreateTicketChannel"))
	assert.Equal(t, 1, f.platform.Count("RenameChannel:"+ticket.ChannelID+":closed-"))
	assert.Equal(t, 1, f.platform.Count("RevokeAccess:"+ticket.ChannelID+":"+member.UserID))
	assert.Equal(t, 1, f.platform.Count("GrantAccess:"+ticket.ChannelID+":"+member.UserID))
	assert.Equal(t, []events.EventType{events.EventTicketOpened, events.EventTicketClosed, events.EventTicketReopened}, f.eventTypes())
}

func TestLifecycle_CloseTwiceIsInvalidTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.open(t, member, nil)

	_, err := f.lifecycle.Close(ctx, admin, ticket.ID, "resolved")
	require.NoError(t, err)
	_, err = f.lifecycle.Close(ctx, admin, ticket.ID, "again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already closed")

	stored, err := f.stores.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "resolved", *stored.CloseReason)
}

func TestLifecycle_RequiresStaff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.open(t, member, nil)

	_, err := f.lifecycle.Close(ctx, member, ticket.ID, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	_, err = f.lifecycle.Claim(ctx, member, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	_, err = f.lifecycle.AddParticipant(ctx, member, ticket.ID, "u9")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	stored, err := f.stores.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Nil(t, stored.ClaimedBy)
}

func TestLifecycle_PanelStaffOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	panel := &domain.Panel{GuildID: "g1", Label: "Billing", Style: domain.PanelStyleSuccess}
	require.NoError(t, f.stores.Panels.Create(ctx, panel))
	_, err := f.stores.Panels.UpdateAdvanced(ctx, panel.ID, domain.PanelPatch{StaffRoleID: domain.StringPtr("billing")})
	require.NoError(t, err)

	billing := domain.Actor{UserID: "b1", RoleIDs: []string{"billing"}}
	panelTicket := f.open(t, member, &panel.ID)
	general := f.open(t, domain.Actor{UserID: "u2", Username: "two"}, nil)

	_, err = f.lifecycle.Claim(ctx, billing, panelTicket.ID)
	assert.NoError(t, err)

	_, err = f.lifecycle.Claim(ctx, billing, general.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	specs := f.platform.Specs()
	require.Len(t, specs, 2)
	assert.Contains(t, specs[0].StaffRoleIDs, "billing")
}

func TestLifecycle_ClaimUnclaimIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.open(t, member, nil)

	updated, err := f.lifecycle.Unclaim(ctx, admin, ticket.ID)
	require.NoError(t, err, "unclaiming a never-claimed ticket is a no-op")
	assert.Nil(t, updated.ClaimedBy)

	updated, err = f.lifecycle.Claim(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.UserID, updated.Claimer())

	staff := staffActor(t, f)
	updated, err = f.lifecycle.Claim(ctx, staff, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, staff.UserID, updated.Claimer(), "re-claim overwrites the holder")
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
}

func TestLifecycle_ArchivedIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.open(t, member, nil)

	_, err := f.lifecycle.Archive(ctx, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "open tickets cannot be archived")

	_, err = f.lifecycle.Close(ctx, admin, ticket.ID, "")
	require.NoError(t, err)
	archived, err := f.lifecycle.Archive(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusArchived, archived.Status)

	_, err = f.lifecycle.Reopen(ctx, admin, ticket.ID)
	assert.Contains(t, err.Error(), "archived")
	_, err = f.lifecycle.Claim(ctx, admin, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	_, err = f.lifecycle.AddParticipant(ctx, admin, ticket.ID, "u5")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestLifecycle_UnknownTicket(t *testing.T) {
	f := newFixture(t)
	_, err := f.lifecycle.Close(context.Background(), admin, 404, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestLifecycle_Participants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.open(t, member, nil)

	added, err := f.lifecycle.AddParticipant(ctx, admin, ticket.ID, "u7")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.lifecycle.AddParticipant(ctx, admin, ticket.ID, "u7")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, f.platform.Count("GrantAccess:"+ticket.ChannelID+":u7"))

	_, err = f.lifecycle.AddParticipant(ctx, admin, ticket.ID, member.UserID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	removed, err := f.lifecycle.RemoveParticipant(ctx, admin, ticket.ID, "u7")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = f.lifecycle.RemoveParticipant(ctx, admin, ticket.ID, "u7")
	require.NoError(t, err)
	assert.False(t, removed)

	members, err := f.stores.Members.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestLifecycle_AdvisoryFailuresDoNotFailTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.open(t, member, nil)

	f.platform.RenameChannelFunc = func(context.Context, string, string) error { return errors.New("rate limited") }
	f.platform.RevokeAccessFunc = func(context.Context, string, string) error { return errors.New("missing access") }

	closed, err := f.lifecycle.Close(ctx, admin, ticket.ID, "done")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
}
