package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input    string
		expected TicketPriority
	}{
		{input: "URGENT", expected: TicketPriorityUrgent},
		{input: " high ", expected: TicketPriorityHigh},
		{input: "low", expected: TicketPriorityLow},
		{input: "bogus", expected: TicketPriorityNormal},
		{input: "", expected: TicketPriorityNormal},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParsePriority(tt.input))
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, NormalizeTags([]string{"a", "a", "b", " c "}))
	assert.Equal(t, []string{"billing"}, NormalizeTags([]string{"", "  ", "billing", "billing "}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestGuildConfigMerge(t *testing.T) {
	cfg := GuildConfig{
		GuildID:         "g1",
		StaffRoleID:     StringPtr("r1"),
		MaxOpenTickets:  IntPtr(3),
		OpenCooldownSec: IntPtr(60),
	}

	cfg.Merge(GuildConfigPatch{AutoArchiveHours: IntPtr(24)})

	assert.Equal(t, 3, *cfg.MaxOpenTickets)
	assert.Equal(t, 60, *cfg.OpenCooldownSec)
	assert.Equal(t, 24, cfg.ArchiveAfterHours())
	assert.Equal(t, "r1", cfg.StaffRole())
}

func TestPositiveTreatsZeroAsUnset(t *testing.T) {
	assert.Equal(t, 0, Positive(nil))
	assert.Equal(t, 0, Positive(IntPtr(0)))
	assert.Equal(t, 0, Positive(IntPtr(-4)))
	assert.Equal(t, 5, Positive(IntPtr(5)))
}

func TestTicketClaimerIgnoredWhenArchived(t *testing.T) {
	ticket := Ticket{Status: TicketStatusClosed, ClaimedBy: StringPtr("staff")}
	assert.Equal(t, "staff", ticket.Claimer())

	ticket.Status = TicketStatusArchived
	assert.Equal(t, "", ticket.Claimer())
}

func TestParsePanelStyle(t *testing.T) {
	style, ok := ParsePanelStyle("danger")
	assert.True(t, ok)
	assert.Equal(t, PanelStyleDanger, style)

	style, ok = ParsePanelStyle("")
	assert.True(t, ok)
	assert.Equal(t, PanelStyleSuccess, style)

	_, ok = ParsePanelStyle("rainbow")
	assert.False(t, ok)
}
