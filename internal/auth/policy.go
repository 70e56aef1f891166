package auth

import (
	"github.com/spec-kit/guild-tickets/internal/domain"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// Policy decides whether an actor may perform restricted ticket actions.
// The platform has already authenticated the actor; this only checks roles.
type Policy interface {
	// RequireStaff allows administrators, holders of the guild staff role and,
	// when panel is non-nil, holders of the panel's staff-role override.
	RequireStaff(actor domain.Actor, cfg *domain.GuildConfig, panel *domain.Panel) error
	// RequireAdministrator guards guild configuration commands.
	RequireAdministrator(actor domain.Actor) error
}

// StaffPolicy is the role-based Policy used in production.
type StaffPolicy struct{}

// NewStaffPolicy constructs the default policy.
func NewStaffPolicy() StaffPolicy {
	return StaffPolicy{}
}

func (StaffPolicy) RequireStaff(actor domain.Actor, cfg *domain.GuildConfig, panel *domain.Panel) error {
	if IsStaff(actor, cfg, panel) {
		return nil
	}
	return apperrors.NewPermissionDenied("Only staff can do that.")
}

func (StaffPolicy) RequireAdministrator(actor domain.Actor) error {
	if actor.IsAdministrator {
		return nil
	}
	return apperrors.NewPermissionDenied("Only server administrators can change ticket settings.")
}

// IsStaff reports whether actor counts as staff for the guild and optional panel.
func IsStaff(actor domain.Actor, cfg *domain.GuildConfig, panel *domain.Panel) bool {
	if actor.IsAdministrator {
		return true
	}
	if actor.HasRole(cfg.StaffRole()) {
		return true
	}
	return panel != nil && actor.HasRole(panel.StaffRole())
}
