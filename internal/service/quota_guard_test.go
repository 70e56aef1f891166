package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/repository"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

func TestQuotaGuard_MaxOpenOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.stores.GuildConfigs.UpsertAdvanced(ctx, "g1", domain.GuildConfigPatch{MaxOpenTickets: domain.IntPtr(1)})
	require.NoError(t, err)

	f.open(t, member, nil)

	_, err = f.opener.Open(ctx, OpenRequest{GuildID: "g1", Actor: member, Reason: "again"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeQuotaExceeded))
	assert.Contains(t, err.Error(), "1")

	count, err := f.stores.Tickets.CountOpen(ctx, repository.TicketScope{GuildID: "g1", UserID: member.UserID})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "rejected open must not insert a row")
}

func TestQuotaGuard_CooldownCeil(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.stores.GuildConfigs.UpsertAdvanced(ctx, "g1", domain.GuildConfigPatch{OpenCooldownSec: domain.IntPtr(60)})
	require.NoError(t, err)

	ticket := f.open(t, member, nil)
	_, err = f.lifecycle.Close(ctx, admin, ticket.ID, "")
	require.NoError(t, err)

	f.clock.Advance(30 * time.Second)
	err = f.quota.CheckCanOpen(ctx, "g1", member.UserID, nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCooldown))
	assert.Contains(t, err.Error(), "wait 30s")

	f.clock.Advance(500 * time.Millisecond)
	err = f.quota.CheckCanOpen(ctx, "g1", member.UserID, nil)
	assert.Contains(t, err.Error(), "wait 30s", "partial seconds round up")

	f.clock.Advance(30*time.Second + 500*time.Millisecond)
	assert.NoError(t, f.quota.CheckCanOpen(ctx, "g1", member.UserID, nil))
}

func TestQuotaGuard_PanelOverrideScopesCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.stores.GuildConfigs.UpsertAdvanced(ctx, "g1", domain.GuildConfigPatch{MaxOpenTickets: domain.IntPtr(5)})
	require.NoError(t, err)

	panel := &domain.Panel{GuildID: "g1", Label: "Billing", CategoryID: "", Style: domain.PanelStyleSuccess}
	require.NoError(t, f.stores.Panels.Create(ctx, panel))
	_, err = f.stores.Panels.UpdateAdvanced(ctx, panel.ID, domain.PanelPatch{MaxOpenTickets: domain.IntPtr(2)})
	require.NoError(t, err)
	panel, err = f.stores.Panels.GetByID(ctx, panel.ID)
	require.NoError(t, err)

	f.open(t, member, nil)
	f.open(t, member, nil)
	f.open(t, member, &panel.ID)

	assert.NoError(t, f.quota.CheckCanOpen(ctx, "g1", member.UserID, panel), "general tickets do not count toward the panel")

	f.open(t, member, &panel.ID)
	err = f.quota.CheckCanOpen(ctx, "g1", member.UserID, panel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(2)")
}

func TestQuotaGuard_ZeroMeansUnlimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.stores.GuildConfigs.UpsertAdvanced(ctx, "g1", domain.GuildConfigPatch{
		MaxOpenTickets:  domain.IntPtr(0),
		OpenCooldownSec: domain.IntPtr(0),
	})
	require.NoError(t, err)

	f.open(t, member, nil)
	f.open(t, member, nil)
	assert.NoError(t, f.quota.CheckCanOpen(ctx, "g1", member.UserID, nil))
}

func TestEffectivePolicy(t *testing.T) {
	cfg := &domain.GuildConfig{MaxOpenTickets: domain.IntPtr(5), OpenCooldownSec: domain.IntPtr(30)}
	panel := &domain.Panel{MaxOpenTickets: domain.IntPtr(2)}

	assert.Equal(t, QuotaPolicy{MaxOpen: 5, CooldownSec: 30}, EffectivePolicy(cfg, nil))
	assert.Equal(t, QuotaPolicy{MaxOpen: 2, CooldownSec: 30}, EffectivePolicy(cfg, panel))
	assert.Equal(t, QuotaPolicy{}, EffectivePolicy(nil, nil))
}

func TestCeilSeconds(t *testing.T) {
	assert.Equal(t, int64(1), ceilSeconds(time.Nanosecond))
	assert.Equal(t, int64(30), ceilSeconds(30*time.Second))
	assert.Equal(t, int64(31), ceilSeconds(30*time.Second+time.Millisecond))
}
