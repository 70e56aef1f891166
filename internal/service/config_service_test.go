package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/platform"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

func TestConfig_AdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.config.Configure(ctx, member, "g1", domain.GuildConfigPatch{MaxOpenTickets: domain.IntPtr(1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
	_, err = f.config.CreatePanel(ctx, member, "g1", PanelInput{Label: "Billing", Style: "Primary"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
	assert.True(t, apperrors.HasCode(f.config.DeletePanel(ctx, member, "g1", 1), apperrors.CodePermissionDenied))
}

func TestConfig_ConfigureMergesAndRejectsNegative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cfg, err := f.config.Get(ctx, admin, "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", cfg.GuildID)

	_, err = f.config.Configure(ctx, admin, "g1", domain.GuildConfigPatch{MaxOpenTickets: domain.IntPtr(-1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.config.Configure(ctx, admin, "g1", domain.GuildConfigPatch{MaxOpenTickets: domain.IntPtr(3)})
	require.NoError(t, err)
	cfg, err = f.config.Configure(ctx, admin, "g1", domain.GuildConfigPatch{OpenCooldownSec: domain.IntPtr(60)})
	require.NoError(t, err)
	assert.Equal(t, 3, domain.Positive(cfg.MaxOpenTickets))
	assert.Equal(t, 60, domain.Positive(cfg.OpenCooldownSec))
}

func TestConfig_SetupRecordsExplicitValues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.platform.AddChannel(platform.Channel{ID: "existing-cat", IsCategory: true})
	f.platform.AddChannel(platform.Channel{ID: "text", IsCategory: false})

	_, err := f.config.Setup(ctx, admin, "g1", "", "text")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	infra, err := f.config.Setup(ctx, admin, "g1", "mods", "existing-cat")
	require.NoError(t, err)
	assert.Equal(t, Infrastructure{StaffRoleID: "mods", CategoryID: "existing-cat"}, infra)
	assert.Zero(t, f.platform.Count("CreateStaffRole"))
	assert.Zero(t, f.platform.Count("CreateCategory"))
}

func TestConfig_PanelLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.config.CreatePanel(ctx, admin, "g1", PanelInput{Label: "Billing", Style: "Sparkly"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = f.config.CreatePanel(ctx, admin, "g1", PanelInput{Label: "  ", Style: "Primary"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = f.config.CreatePanel(ctx, admin, "g1", PanelInput{Label: "Billing", CategoryID: "missing", Style: "Primary"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	panel, err := f.config.CreatePanel(ctx, admin, "g1", PanelInput{Label: "Billing", Emoji: "💳", Style: "success"})
	require.NoError(t, err)
	assert.Equal(t, domain.PanelStyleSuccess, panel.Style)
	assert.Equal(t, "category-2", panel.CategoryID, "defaults to the provisioned category")
	require.NotNil(t, panel.Emoji)

	updated, err := f.config.ConfigurePanel(ctx, admin, "g1", panel.ID, domain.PanelPatch{
		StaffRoleID:    domain.StringPtr("billing-staff"),
		MaxOpenTickets: domain.IntPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "billing-staff", updated.StaffRole())

	_, err = f.config.ConfigurePanel(ctx, admin, "g2", panel.ID, domain.PanelPatch{MaxOpenTickets: domain.IntPtr(2)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	panels, err := f.config.ListPanels(ctx, admin, "g1")
	require.NoError(t, err)
	require.Len(t, panels, 1)

	assert.True(t, apperrors.HasCode(f.config.DeletePanel(ctx, admin, "g2", panel.ID), apperrors.CodeNotFound))
	require.NoError(t, f.config.DeletePanel(ctx, admin, "g1", panel.ID))
	panels, err = f.config.ListPanels(ctx, admin, "g1")
	require.NoError(t, err)
	assert.Empty(t, panels)
}
