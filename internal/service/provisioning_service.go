package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/lock"
	"github.com/spec-kit/guild-tickets/internal/platform"
	"github.com/spec-kit/guild-tickets/internal/repository"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// Infrastructure is the set of platform resources a guild needs before its
// first ticket.
type Infrastructure struct {
	StaffRoleID string
	CategoryID  string
}

// ProvisioningService creates or repairs a guild's staff role and ticket category.
type ProvisioningService struct {
	configs  repository.GuildConfigRepository
	platform platform.Platform
	locker   lock.Locker
	logger   *zap.Logger
}

// ProvisioningDependencies bundles collaborators for provisioning.
type ProvisioningDependencies struct {
	ConfigRepo repository.GuildConfigRepository
	Platform   platform.Platform
	Locker     lock.Locker
	Logger     *zap.Logger
}

// NewProvisioningService constructs the service.
func NewProvisioningService(deps ProvisioningDependencies) *ProvisioningService {
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &ProvisioningService{
		configs:  deps.ConfigRepo,
		platform: deps.Platform,
		locker:   locker,
		logger:   loggerOrNop(deps.Logger),
	}
}

// EnsureInfrastructure returns the guild's staff role and category, creating
// whichever is missing. A stored category that no longer resolves, or is no
// longer a category, is replaced. Any other lookup failure is returned as is
// so a transient outage never produces duplicates. The config row is written
// only when an identifier changed.
func (s *ProvisioningService) EnsureInfrastructure(ctx context.Context, guildID string) (Infrastructure, error) {
	release, err := s.locker.Acquire(ctx, lock.ProvisionKey(guildID))
	if err != nil {
		return Infrastructure{}, apperrors.NewInternalError(err)
	}
	defer release()

	cfg, err := s.configs.Get(ctx, guildID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		cfg = &domain.GuildConfig{GuildID: guildID}
	case err != nil:
		return Infrastructure{}, apperrors.NewPersistence(err)
	}

	infra := Infrastructure{StaffRoleID: cfg.StaffRole(), CategoryID: cfg.TicketsCategory()}
	changed := false

	if infra.StaffRoleID == "" {
		roleID, err := s.platform.CreateStaffRole(ctx, guildID)
		if err != nil {
			return Infrastructure{}, apperrors.NewExternalResource("create staff role", err)
		}
		s.logger.Info("created staff role", zap.String("guild_id", guildID), zap.String("role_id", roleID))
		infra.StaffRoleID = roleID
		changed = true
	}

	if infra.CategoryID != "" {
		valid, err := s.categoryValid(ctx, guildID, infra.CategoryID)
		if err != nil {
			s.persistPartial(ctx, guildID, infra.StaffRoleID, infra.CategoryID, changed)
			return Infrastructure{}, apperrors.NewExternalResource("lookup ticket category", err)
		}
		if !valid {
			s.logger.Warn("stored ticket category is gone or not a category; replacing",
				zap.String("guild_id", guildID), zap.String("category_id", infra.CategoryID))
			infra.CategoryID = ""
		}
	}

	if infra.CategoryID == "" {
		categoryID, err := s.platform.CreateCategory(ctx, guildID)
		if err != nil {
			s.persistPartial(ctx, guildID, infra.StaffRoleID, cfg.TicketsCategory(), changed)
			return Infrastructure{}, apperrors.NewExternalResource("create ticket category", err)
		}
		s.logger.Info("created ticket category", zap.String("guild_id", guildID), zap.String("category_id", categoryID))
		infra.CategoryID = categoryID
		changed = true
	}

	if changed {
		if err := s.configs.UpsertBasic(ctx, guildID, infra.StaffRoleID, infra.CategoryID); err != nil {
			return Infrastructure{}, apperrors.NewPersistence(err)
		}
	}
	return infra, nil
}

func (s *ProvisioningService) categoryValid(ctx context.Context, guildID, categoryID string) (bool, error) {
	ch, err := s.platform.LookupChannel(ctx, guildID, categoryID)
	if errors.Is(err, platform.ErrResourceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ch.IsCategory, nil
}

// persistPartial keeps a role created earlier in a failed run so the next
// attempt reuses it instead of creating another.
func (s *ProvisioningService) persistPartial(ctx context.Context, guildID, roleID, categoryID string, changed bool) {
	if !changed {
		return
	}
	if err := s.configs.UpsertBasic(ctx, guildID, roleID, categoryID); err != nil {
		s.logger.Warn("failed to persist partially provisioned guild", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
