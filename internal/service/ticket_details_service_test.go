package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guild-tickets/internal/domain"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

func TestDetails_TagsNormalized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.open(t, member, nil)

	_, err := f.details.SetTags(ctx, admin, ticket.ID, []string{"a", "a", "b", " c "})
	require.NoError(t, err)

	tags, err := f.details.Tags(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tags)

	assert.Equal(t, []string{"x", "y"}, ParseTagList(" x, y ,,x"))
	assert.Equal(t, []string{}, ParseTagList("  "))
}

func TestDetails_PriorityNormalized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.open(t, member, nil)

	p, err := f.details.SetPriority(ctx, admin, ticket.ID, "URGENT")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, p)

	p, err = f.details.SetPriority(ctx, admin, ticket.ID, "bogus")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityNormal, p)

	stored, err := f.details.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityNormal, stored.Priority)
}

func TestDetails_StaffOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.open(t, member, nil)

	_, err := f.details.SetPriority(ctx, member, ticket.ID, "high")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
	_, err = f.details.AddNote(ctx, member, ticket.ID, "sneaky")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
	_, err = f.details.Stats(ctx, member, "g1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
}

func TestDetails_NotesInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.open(t, member, nil)

	_, err := f.details.AddNote(ctx, admin, ticket.ID, "first")
	require.NoError(t, err)
	_, err = f.details.AddNote(ctx, admin, ticket.ID, "second")
	require.NoError(t, err)
	_, err = f.details.AddNote(ctx, admin, ticket.ID, "  ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	notes, err := f.details.Notes(ctx, admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "first", notes[0].Note)
	assert.Equal(t, "second", notes[1].Note)
	assert.Equal(t, admin.UserID, notes[0].UserID)
}

func TestDetails_StatsAndChannelLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.open(t, member, nil)
	f.open(t, domain.Actor{UserID: "u2", Username: "two"}, nil)
	_, err := f.lifecycle.Close(ctx, admin, a.ID, "")
	require.NoError(t, err)

	stats, err := f.details.Stats(ctx, admin, "g1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStats{Open: 1, Closed: 1}, stats)

	found, err := f.details.ByChannel(ctx, a.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	_, err = f.details.ByChannel(ctx, "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
