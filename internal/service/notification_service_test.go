package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guild-tickets/internal/events"
	"github.com/spec-kit/guild-tickets/internal/interaction/customid"
)

func TestNotifications_AnnounceInTicketChannel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	var messages []string
	f.platform.SendMessageFunc = func(_ context.Context, channelID, content string) error {
		messages = append(messages, channelID+"|"+content)
		return nil
	}
	NewNotificationService(f.dispatcher, f.platform, nil).RegisterHandlers()

	ticket := f.open(t, member, nil)
	_, err := f.lifecycle.Claim(ctx, admin, ticket.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Close(ctx, admin, ticket.ID, "resolved")
	require.NoError(t, err)

	require.Len(t, messages, 3)
	assert.Contains(t, messages[0], ticket.ChannelID+"|Welcome <@u1>!")
	assert.Contains(t, messages[0], "need help")
	assert.Equal(t, ticket.ChannelID+"|Ticket claimed by <@admin>.", messages[1])
	assert.Contains(t, messages[2], "**Reason:** resolved")
}

func TestNotifications_SendFailureDoesNotFailTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.platform.SendMessageFunc = func(context.Context, string, string) error {
		return errors.New("rate limited")
	}
	NewNotificationService(f.dispatcher, f.platform, nil).RegisterHandlers()

	ticket := f.open(t, member, nil)
	_, err := f.lifecycle.Close(ctx, admin, ticket.ID, "")
	require.NoError(t, err)
	assert.Contains(t, f.eventTypes(), events.EventTicketClosed)
}

func TestNotifications_WelcomeCarriesTicketControls(t *testing.T) {
	f := newFixture(t)
	NewNotificationService(f.dispatcher, f.platform, nil).RegisterHandlers()

	ticket := f.open(t, member, nil)

	sent := f.platform.Sent()
	require.Len(t, sent, 1)
	ids := make([]string, 0, len(sent[0].Buttons))
	for _, b := range sent[0].Buttons {
		ids = append(ids, b.CustomID)
	}
	assert.Equal(t, []string{
		customid.Format(customid.ActionClaim, ticket.ID),
		customid.Format(customid.ActionClose, ticket.ID),
		customid.Format(customid.ActionCloseReason, ticket.ID),
		customid.Format(customid.ActionTranscript, ticket.ID),
	}, ids)
}
