package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/auth"
	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/platform"
	"github.com/spec-kit/guild-tickets/internal/repository"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

const maxPanelLabelLength = 80

// ConfigService backs the administrator configuration commands.
type ConfigService struct {
	configs      repository.GuildConfigRepository
	panels       repository.PanelRepository
	provisioning *ProvisioningService
	platform     platform.Platform
	policy       auth.Policy
	logger       *zap.Logger
}

// ConfigDependencies bundles collaborators for the config service.
type ConfigDependencies struct {
	ConfigRepo   repository.GuildConfigRepository
	PanelRepo    repository.PanelRepository
	Provisioning *ProvisioningService
	Platform     platform.Platform
	Policy       auth.Policy
	Logger       *zap.Logger
}

// NewConfigService constructs the service.
func NewConfigService(deps ConfigDependencies) *ConfigService {
	policy := deps.Policy
	if policy == nil {
		policy = auth.NewStaffPolicy()
	}
	return &ConfigService{
		configs:      deps.ConfigRepo,
		panels:       deps.PanelRepo,
		provisioning: deps.Provisioning,
		platform:     deps.Platform,
		policy:       policy,
		logger:       loggerOrNop(deps.Logger),
	}
}

// PanelInput describes a new panel.
type PanelInput struct {
	Label      string
	CategoryID string
	Emoji      string
	Style      string
}

// Get returns the guild config, or an empty one for an unconfigured guild.
func (s *ConfigService) Get(ctx context.Context, actor domain.Actor, guildID string) (*domain.GuildConfig, error) {
	if err := s.policy.RequireAdministrator(actor); err != nil {
		return nil, err
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.GuildConfig{GuildID: guildID}, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistence(err)
	}
	return cfg, nil
}

// Setup records an explicit staff role and category, then provisions
// whatever is still missing. Empty arguments keep the stored value.
func (s *ConfigService) Setup(ctx context.Context, actor domain.Actor, guildID, staffRoleID, categoryID string) (Infrastructure, error) {
	if err := s.policy.RequireAdministrator(actor); err != nil {
		return Infrastructure{}, err
	}
	staffRoleID = strings.TrimSpace(staffRoleID)
	categoryID = strings.TrimSpace(categoryID)

	if staffRoleID != "" || categoryID != "" {
		if categoryID != "" {
			if err := s.requireCategory(ctx, guildID, categoryID); err != nil {
				return Infrastructure{}, err
			}
		}
		current, err := s.configs.Get(ctx, guildID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return Infrastructure{}, apperrors.NewPersistence(err)
		}
		if staffRoleID == "" {
			staffRoleID = current.StaffRole()
		}
		if categoryID == "" {
			categoryID = current.TicketsCategory()
		}
		if err := s.configs.UpsertBasic(ctx, guildID, staffRoleID, categoryID); err != nil {
			return Infrastructure{}, apperrors.NewPersistence(err)
		}
	}

	return s.provisioning.EnsureInfrastructure(ctx, guildID)
}

// Configure merges the supplied quota, cooldown and retention settings.
// Zero disables a setting; negative values are rejected.
func (s *ConfigService) Configure(ctx context.Context, actor domain.Actor, guildID string, patch domain.GuildConfigPatch) (*domain.GuildConfig, error) {
	if err := s.policy.RequireAdministrator(actor); err != nil {
		return nil, err
	}
	if err := nonNegative(map[string]*int{
		"max_open_tickets":   patch.MaxOpenTickets,
		"open_cooldown_sec":  patch.OpenCooldownSec,
		"auto_archive_hours": patch.AutoArchiveHours,
	}); err != nil {
		return nil, err
	}
	cfg, err := s.configs.UpsertAdvanced(ctx, guildID, patch)
	if err != nil {
		return nil, apperrors.NewPersistence(err)
	}
	s.logger.Info("guild config updated", zap.String("guild_id", guildID), zap.String("actor_id", actor.UserID))
	return cfg, nil
}

// CreatePanel validates and stores a new intake panel. Without an explicit
// category the guild's provisioned ticket category is used.
func (s *ConfigService) CreatePanel(ctx context.Context, actor domain.Actor, guildID string, input PanelInput) (*domain.Panel, error) {
	if err := s.policy.RequireAdministrator(actor); err != nil {
		return nil, err
	}
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return nil, apperrors.NewValidationError("Panel label is required.", nil)
	}
	if utf8.RuneCountInString(label) > maxPanelLabelLength {
		return nil, apperrors.NewValidationError("Panel labels are limited to 80 characters.", nil)
	}
	style, ok := domain.ParsePanelStyle(input.Style)
	if !ok {
		return nil, apperrors.NewValidationError("Style must be one of Primary, Secondary, Success or Danger.",
			map[string]any{"style": input.Style})
	}

	categoryID := strings.TrimSpace(input.CategoryID)
	if categoryID == "" {
		infra, err := s.provisioning.EnsureInfrastructure(ctx, guildID)
		if err != nil {
			return nil, err
		}
		categoryID = infra.CategoryID
	} else if err := s.requireCategory(ctx, guildID, categoryID); err != nil {
		return nil, err
	}

	panel := &domain.Panel{
		GuildID:    guildID,
		Label:      label,
		CategoryID: categoryID,
		Style:      style,
	}
	if emoji := strings.TrimSpace(input.Emoji); emoji != "" {
		panel.Emoji = &emoji
	}
	if err := s.panels.Create(ctx, panel); err != nil {
		return nil, apperrors.NewPersistence(err)
	}
	s.logger.Info("panel created", zap.String("guild_id", guildID), zap.Int64("panel_id", panel.ID))
	return panel, nil
}

// ListPanels returns the guild's panels ordered by id.
func (s *ConfigService) ListPanels(ctx context.Context, actor domain.Actor, guildID string) ([]domain.Panel, error) {
	if err := s.policy.RequireAdministrator(actor); err != nil {
		return nil, err
	}
	panels, err := s.panels.ListByGuild(ctx, guildID)
	if err != nil {
		return nil, apperrors.NewPersistence(err)
	}
	return panels, nil
}

// DeletePanel removes a panel of this guild. Tickets opened from it keep
// their panel id.
func (s *ConfigService) DeletePanel(ctx context.Context, actor domain.Actor, guildID string, panelID int64) error {
	if err := s.policy.RequireAdministrator(actor); err != nil {
		return err
	}
	if err := s.panels.Delete(ctx, guildID, panelID); err != nil {
		return storeError(err, "panel")
	}
	s.logger.Info("panel deleted", zap.String("guild_id", guildID), zap.Int64("panel_id", panelID))
	return nil
}

// ConfigurePanel merges staff-role, quota and cooldown overrides into a panel.
func (s *ConfigService) ConfigurePanel(ctx context.Context, actor domain.Actor, guildID string, panelID int64, patch domain.PanelPatch) (*domain.Panel, error) {
	if err := s.policy.RequireAdministrator(actor); err != nil {
		return nil, err
	}
	if err := nonNegative(map[string]*int{
		"max_open_tickets":  patch.MaxOpenTickets,
		"open_cooldown_sec": patch.OpenCooldownSec,
	}); err != nil {
		return nil, err
	}
	panel, err := s.panels.GetByID(ctx, panelID)
	if err != nil {
		return nil, storeError(err, "panel")
	}
	if panel.GuildID != guildID {
		return nil, apperrors.NewNotFound("panel", map[string]any{"panel_id": panelID})
	}
	updated, err := s.panels.UpdateAdvanced(ctx, panelID, patch)
	if err != nil {
		return nil, storeError(err, "panel")
	}
	return updated, nil
}

func (s *ConfigService) requireCategory(ctx context.Context, guildID, categoryID string) error {
	ch, err := s.platform.LookupChannel(ctx, guildID, categoryID)
	if errors.Is(err, platform.ErrResourceNotFound) || (err == nil && !ch.IsCategory) {
		return apperrors.NewValidationError("That channel is not a category in this server.",
			map[string]any{"category_id": categoryID})
	}
	if err != nil {
		return apperrors.NewExternalResource("lookup category", err)
	}
	return nil
}

func nonNegative(fields map[string]*int) error {
	for name, v := range fields {
		if v != nil && *v < 0 {
			return apperrors.NewValidationError("Values must be zero or positive.", map[string]any{"field": name})
		}
	}
	return nil
}
