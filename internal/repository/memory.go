package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/guild-tickets/internal/domain"
)

// MemoryStore is an in-process implementation of every repository. It backs
// the service tests and runs the bot when no POSTGRES_DSN is configured.
// Each method holds the store mutex for its whole body, which gives the same
// single-row atomicity the SQL statements provide.
type MemoryStore struct {
	mu sync.Mutex

	configs map[string]domain.GuildConfig
	panels  map[int64]domain.Panel
	tickets map[int64]domain.Ticket
	members map[int64]map[string]struct{}
	notes   []domain.TicketNote

	nextPanelID  int64
	nextTicketID int64
	nextNoteID   int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[string]domain.GuildConfig),
		panels:  make(map[int64]domain.Panel),
		tickets: make(map[int64]domain.Ticket),
		members: make(map[int64]map[string]struct{}),
	}
}

// Stores exposes the store through the repository interfaces.
func (s *MemoryStore) Stores() Stores {
	return Stores{
		GuildConfigs: memoryGuildConfigs{s},
		Panels:       memoryPanels{s},
		Tickets:      memoryTickets{s},
		Members:      memoryMembers{s},
		Notes:        memoryNotes{s},
	}
}

type memoryGuildConfigs struct{ s *MemoryStore }

func (m memoryGuildConfigs) Get(_ context.Context, guildID string) (*domain.GuildConfig, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cfg, ok := m.s.configs[guildID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGuildConfig(cfg), nil
}

func (m memoryGuildConfigs) UpsertBasic(_ context.Context, guildID, staffRoleID, categoryID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cfg := m.s.configs[guildID]
	cfg.GuildID = guildID
	cfg.StaffRoleID = optionalString(staffRoleID)
	cfg.TicketsCategoryID = optionalString(categoryID)
	m.s.configs[guildID] = cfg
	return nil
}

func (m memoryGuildConfigs) UpsertAdvanced(_ context.Context, guildID string, patch domain.GuildConfigPatch) (*domain.GuildConfig, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cfg := m.s.configs[guildID]
	cfg.GuildID = guildID
	cfg.Merge(patch)
	m.s.configs[guildID] = *cloneGuildConfig(cfg)
	return cloneGuildConfig(cfg), nil
}

func (m memoryGuildConfigs) ListAutoArchive(_ context.Context) ([]domain.GuildConfig, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []domain.GuildConfig
	for _, cfg := range m.s.configs {
		if cfg.ArchiveAfterHours() > 0 {
			result = append(result, *cloneGuildConfig(cfg))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GuildID < result[j].GuildID })
	return result, nil
}

type memoryPanels struct{ s *MemoryStore }

func (m memoryPanels) Create(_ context.Context, panel *domain.Panel) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.nextPanelID++
	panel.ID = m.s.nextPanelID
	m.s.panels[panel.ID] = *clonePanel(*panel)
	return nil
}

func (m memoryPanels) GetByID(_ context.Context, id int64) (*domain.Panel, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	panel, ok := m.s.panels[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePanel(panel), nil
}

func (m memoryPanels) ListByGuild(_ context.Context, guildID string) ([]domain.Panel, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []domain.Panel
	for _, panel := range m.s.panels {
		if panel.GuildID == guildID {
			result = append(result, *clonePanel(panel))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m memoryPanels) Delete(_ context.Context, guildID string, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	panel, ok := m.s.panels[id]
	if !ok || panel.GuildID != guildID {
		return ErrNotFound
	}
	delete(m.s.panels, id)
	return nil
}

func (m memoryPanels) UpdateAdvanced(_ context.Context, id int64, patch domain.PanelPatch) (*domain.Panel, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	panel, ok := m.s.panels[id]
	if !ok {
		return nil, ErrNotFound
	}
	panel.Merge(patch)
	m.s.panels[id] = *clonePanel(panel)
	return clonePanel(panel), nil
}

type memoryTickets struct{ s *MemoryStore }

func (m memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.nextTicketID++
	ticket.ID = m.s.nextTicketID
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	if ticket.Tags == nil {
		ticket.Tags = []string{}
	}
	m.s.tickets[ticket.ID] = *cloneTicket(*ticket)
	return nil
}

func (m memoryTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ticket, ok := m.s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTicket(ticket), nil
}

func (m memoryTickets) GetByChannelID(_ context.Context, channelID string) (*domain.Ticket, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var found *domain.Ticket
	for _, ticket := range m.s.tickets {
		if ticket.ChannelID != channelID {
			continue
		}
		if found == nil || ticket.ID > found.ID {
			found = cloneTicket(ticket)
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (m memoryTickets) CountOpen(_ context.Context, scope TicketScope) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	count := 0
	for _, ticket := range m.s.tickets {
		if inScope(ticket, scope) && ticket.Status == domain.TicketStatusOpen {
			count++
		}
	}
	return count, nil
}

func (m memoryTickets) LastCreatedAt(_ context.Context, scope TicketScope) (*time.Time, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var latest *domain.Ticket
	for id := range m.s.tickets {
		ticket := m.s.tickets[id]
		if !inScope(ticket, scope) {
			continue
		}
		if latest == nil || ticket.CreatedAt.After(latest.CreatedAt) ||
			(ticket.CreatedAt.Equal(latest.CreatedAt) && ticket.ID > latest.ID) {
			latest = &ticket
		}
	}
	if latest == nil {
		return nil, nil
	}
	createdAt := latest.CreatedAt
	return &createdAt, nil
}

func (m memoryTickets) Close(_ context.Context, id int64, at time.Time, reason string) (*domain.Ticket, error) {
	return m.transition(id, func(t *domain.Ticket) bool {
		if t.Status != domain.TicketStatusOpen {
			return false
		}
		t.Status = domain.TicketStatusClosed
		t.ClosedAt = &at
		t.CloseReason = &reason
		return true
	})
}

func (m memoryTickets) Reopen(_ context.Context, id int64) (*domain.Ticket, error) {
	return m.transition(id, func(t *domain.Ticket) bool {
		if t.Status != domain.TicketStatusClosed || t.ArchivedAt != nil {
			return false
		}
		t.Status = domain.TicketStatusOpen
		return true
	})
}

func (m memoryTickets) Archive(_ context.Context, id int64, at time.Time) (*domain.Ticket, error) {
	return m.transition(id, func(t *domain.Ticket) bool {
		if t.Status != domain.TicketStatusClosed || t.ArchivedAt != nil || t.ClosedAt == nil {
			return false
		}
		t.Status = domain.TicketStatusArchived
		t.ArchivedAt = &at
		return true
	})
}

func (m memoryTickets) SetClaim(_ context.Context, id int64, staffID *string) (*domain.Ticket, error) {
	return m.transition(id, func(t *domain.Ticket) bool {
		if t.Status == domain.TicketStatusArchived {
			return false
		}
		if staffID == nil {
			t.ClaimedBy = nil
		} else {
			claimer := *staffID
			t.ClaimedBy = &claimer
		}
		return true
	})
}

func (m memoryTickets) transition(id int64, apply func(*domain.Ticket) bool) (*domain.Ticket, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ticket, ok := m.s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := cloneTicket(ticket)
	if !apply(working) {
		return nil, ErrStateConflict
	}
	m.s.tickets[id] = *cloneTicket(*working)
	return working, nil
}

func (m memoryTickets) SetPriority(_ context.Context, id int64, priority domain.TicketPriority) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ticket, ok := m.s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	ticket.Priority = priority
	m.s.tickets[id] = ticket
	return nil
}

func (m memoryTickets) SetTags(_ context.Context, id int64, tags []string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ticket, ok := m.s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	ticket.Tags = append([]string{}, tags...)
	m.s.tickets[id] = ticket
	return nil
}

func (m memoryTickets) GetTags(_ context.Context, id int64) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ticket, ok := m.s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string{}, ticket.Tags...), nil
}

func (m memoryTickets) ListArchivable(_ context.Context, guildID string, cutoff time.Time) ([]domain.Ticket, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range m.s.tickets {
		if ticket.GuildID != guildID || ticket.Status != domain.TicketStatusClosed || ticket.ArchivedAt != nil {
			continue
		}
		if ticket.ClosedAt == nil || !ticket.ClosedAt.Before(cutoff) {
			continue
		}
		result = append(result, *cloneTicket(ticket))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m memoryTickets) Stats(_ context.Context, guildID string) (domain.TicketStats, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var stats domain.TicketStats
	for _, ticket := range m.s.tickets {
		if ticket.GuildID != guildID {
			continue
		}
		switch ticket.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusClosed:
			stats.Closed++
		case domain.TicketStatusArchived:
			stats.Archived++
		}
	}
	return stats, nil
}

type memoryMembers struct{ s *MemoryStore }

func (m memoryMembers) Add(_ context.Context, ticketID int64, userID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	set, ok := m.s.members[ticketID]
	if !ok {
		set = make(map[string]struct{})
		m.s.members[ticketID] = set
	}
	if _, exists := set[userID]; exists {
		return false, nil
	}
	set[userID] = struct{}{}
	return true, nil
}

func (m memoryMembers) Remove(_ context.Context, ticketID int64, userID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	set := m.s.members[ticketID]
	if _, exists := set[userID]; !exists {
		return false, nil
	}
	delete(set, userID)
	return true, nil
}

func (m memoryMembers) ListByTicket(_ context.Context, ticketID int64) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []string
	for userID := range m.s.members[ticketID] {
		result = append(result, userID)
	}
	sort.Strings(result)
	return result, nil
}

type memoryNotes struct{ s *MemoryStore }

func (m memoryNotes) Create(_ context.Context, note *domain.TicketNote) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.nextNoteID++
	note.ID = m.s.nextNoteID
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	m.s.notes = append(m.s.notes, *note)
	return nil
}

func (m memoryNotes) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketNote, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []domain.TicketNote
	for _, note := range m.s.notes {
		if note.TicketID == ticketID {
			result = append(result, note)
		}
	}
	return result, nil
}

func inScope(ticket domain.Ticket, scope TicketScope) bool {
	if ticket.GuildID != scope.GuildID || ticket.UserID != scope.UserID {
		return false
	}
	if scope.PanelID == nil {
		return true
	}
	return ticket.PanelID != nil && *ticket.PanelID == *scope.PanelID
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func cloneGuildConfig(cfg domain.GuildConfig) *domain.GuildConfig {
	out := cfg
	out.StaffRoleID = cloneString(cfg.StaffRoleID)
	out.TicketsCategoryID = cloneString(cfg.TicketsCategoryID)
	out.MaxOpenTickets = cloneInt(cfg.MaxOpenTickets)
	out.OpenCooldownSec = cloneInt(cfg.OpenCooldownSec)
	out.AutoArchiveHours = cloneInt(cfg.AutoArchiveHours)
	return &out
}

func clonePanel(panel domain.Panel) *domain.Panel {
	out := panel
	out.Emoji = cloneString(panel.Emoji)
	out.StaffRoleID = cloneString(panel.StaffRoleID)
	out.MaxOpenTickets = cloneInt(panel.MaxOpenTickets)
	out.OpenCooldownSec = cloneInt(panel.OpenCooldownSec)
	return &out
}

func cloneTicket(ticket domain.Ticket) *domain.Ticket {
	out := ticket
	out.ClaimedBy = cloneString(ticket.ClaimedBy)
	out.CloseReason = cloneString(ticket.CloseReason)
	out.Tags = append([]string{}, ticket.Tags...)
	if ticket.PanelID != nil {
		id := *ticket.PanelID
		out.PanelID = &id
	}
	out.ClosedAt = cloneTime(ticket.ClosedAt)
	out.ArchivedAt = cloneTime(ticket.ArchivedAt)
	return &out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
