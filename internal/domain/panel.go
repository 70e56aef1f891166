package domain

import "strings"

// PanelStyle is the button style used when rendering a panel.
type PanelStyle string

const (
	PanelStylePrimary   PanelStyle = "Primary"
	PanelStyleSecondary PanelStyle = "Secondary"
	PanelStyleSuccess   PanelStyle = "Success"
	PanelStyleDanger    PanelStyle = "Danger"
)

// ParsePanelStyle matches s case-insensitively; ok is false for unknown styles.
func ParsePanelStyle(s string) (PanelStyle, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PanelStyleSuccess, true
	}
	for _, style := range []PanelStyle{PanelStylePrimary, PanelStyleSecondary, PanelStyleSuccess, PanelStyleDanger} {
		if strings.EqualFold(s, string(style)) {
			return style, true
		}
	}
	return "", false
}

// Panel is a named intake point inside a guild.
type Panel struct {
	ID              int64
	GuildID         string
	Label           string
	CategoryID      string
	Emoji           *string
	Style           PanelStyle
	StaffRoleID     *string
	MaxOpenTickets  *int
	OpenCooldownSec *int
}

// PanelPatch updates the per-panel overrides; nil fields keep the stored value.
type PanelPatch struct {
	StaffRoleID     *string
	MaxOpenTickets  *int
	OpenCooldownSec *int
}

// Merge applies the non-nil fields of patch over p.
func (p *Panel) Merge(patch PanelPatch) {
	if patch.StaffRoleID != nil {
		p.StaffRoleID = patch.StaffRoleID
	}
	if patch.MaxOpenTickets != nil {
		p.MaxOpenTickets = patch.MaxOpenTickets
	}
	if patch.OpenCooldownSec != nil {
		p.OpenCooldownSec = patch.OpenCooldownSec
	}
}

// StaffRole returns the panel override or "".
func (p *Panel) StaffRole() string {
	if p == nil || p.StaffRoleID == nil {
		return ""
	}
	return *p.StaffRoleID
}
