package domain

// GuildConfig holds per-guild ticket settings.
type GuildConfig struct {
	GuildID           string
	StaffRoleID       *string
	TicketsCategoryID *string
	MaxOpenTickets    *int
	OpenCooldownSec   *int
	AutoArchiveHours  *int
}

// GuildConfigPatch is a partial update; nil fields keep the stored value.
type GuildConfigPatch struct {
	MaxOpenTickets   *int
	OpenCooldownSec  *int
	AutoArchiveHours *int
}

// Merge applies the non-nil fields of patch over cfg.
func (cfg *GuildConfig) Merge(patch GuildConfigPatch) {
	if patch.MaxOpenTickets != nil {
		cfg.MaxOpenTickets = patch.MaxOpenTickets
	}
	if patch.OpenCooldownSec != nil {
		cfg.OpenCooldownSec = patch.OpenCooldownSec
	}
	if patch.AutoArchiveHours != nil {
		cfg.AutoArchiveHours = patch.AutoArchiveHours
	}
}

// StaffRole returns the configured staff role or "".
func (cfg *GuildConfig) StaffRole() string {
	if cfg == nil || cfg.StaffRoleID == nil {
		return ""
	}
	return *cfg.StaffRoleID
}

// TicketsCategory returns the configured ticket category or "".
func (cfg *GuildConfig) TicketsCategory() string {
	if cfg == nil || cfg.TicketsCategoryID == nil {
		return ""
	}
	return *cfg.TicketsCategoryID
}

// ArchiveAfterHours returns the retention window, 0 when auto-archive is disabled.
func (cfg *GuildConfig) ArchiveAfterHours() int {
	if cfg == nil {
		return 0
	}
	return Positive(cfg.AutoArchiveHours)
}

// Positive returns *v when it is set and greater than zero, otherwise 0.
// Zero and negative values are treated like an unset limit.
func Positive(v *int) int {
	if v == nil || *v <= 0 {
		return 0
	}
	return *v
}

// IntPtr is a small helper for building optional settings.
func IntPtr(v int) *int {
	return &v
}

// StringPtr is a small helper for building optional identifiers.
func StringPtr(v string) *string {
	return &v
}
