package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/guild-tickets/internal/auth"
	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/repository"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// MaxNoteLength bounds a single staff note.
const MaxNoteLength = 2000

// TicketDetailsService manages triage metadata: priority, tags and staff notes.
type TicketDetailsService struct {
	configs repository.GuildConfigRepository
	panels  repository.PanelRepository
	tickets repository.TicketRepository
	notes   repository.TicketNoteRepository
	policy  auth.Policy
	now     func() time.Time
}

// TicketDetailsDependencies bundles repositories for the details service.
type TicketDetailsDependencies struct {
	ConfigRepo repository.GuildConfigRepository
	PanelRepo  repository.PanelRepository
	TicketRepo repository.TicketRepository
	NoteRepo   repository.TicketNoteRepository
	Policy     auth.Policy
	Now        func() time.Time
}

// NewTicketDetailsService constructs the service.
func NewTicketDetailsService(deps TicketDetailsDependencies) *TicketDetailsService {
	policy := deps.Policy
	if policy == nil {
		policy = auth.NewStaffPolicy()
	}
	return &TicketDetailsService{
		configs: deps.ConfigRepo,
		panels:  deps.PanelRepo,
		tickets: deps.TicketRepo,
		notes:   deps.NoteRepo,
		policy:  policy,
		now:     nowOrDefault(deps.Now),
	}
}

// Get returns a ticket by id.
func (s *TicketDetailsService) Get(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	return ticket, storeError(err, "ticket")
}

// ByChannel returns the most recent ticket bound to channelID.
func (s *TicketDetailsService) ByChannel(ctx context.Context, channelID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByChannelID(ctx, channelID)
	if err != nil {
		return nil, storeError(err, "ticket for this channel")
	}
	return ticket, nil
}

// SetPriority stores the normalized priority; unknown input becomes normal.
func (s *TicketDetailsService) SetPriority(ctx context.Context, actor domain.Actor, ticketID int64, raw string) (domain.TicketPriority, error) {
	ticket, err := s.authorized(ctx, actor, ticketID)
	if err != nil {
		return "", err
	}
	priority := domain.ParsePriority(raw)
	if err := s.tickets.SetPriority(ctx, ticket.ID, priority); err != nil {
		return "", storeError(err, "ticket")
	}
	return priority, nil
}

// SetTags replaces the tag set with the trimmed, deduplicated input.
func (s *TicketDetailsService) SetTags(ctx context.Context, actor domain.Actor, ticketID int64, tags []string) ([]string, error) {
	ticket, err := s.authorized(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	normalized := domain.NormalizeTags(tags)
	if err := s.tickets.SetTags(ctx, ticket.ID, normalized); err != nil {
		return nil, storeError(err, "ticket")
	}
	return normalized, nil
}

// Tags returns the stored tags in insertion order.
func (s *TicketDetailsService) Tags(ctx context.Context, ticketID int64) ([]string, error) {
	tags, err := s.tickets.GetTags(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	return tags, nil
}

// AddNote appends a staff note.
func (s *TicketDetailsService) AddNote(ctx context.Context, actor domain.Actor, ticketID int64, text string) (*domain.TicketNote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("Note text is required.", nil)
	}
	if utf8.RuneCountInString(text) > MaxNoteLength {
		return nil, apperrors.NewValidationError("Notes are limited to 2000 characters.", nil)
	}
	ticket, err := s.authorized(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	note := &domain.TicketNote{
		TicketID:  ticket.ID,
		UserID:    actor.UserID,
		Note:      text,
		CreatedAt: s.now(),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, apperrors.NewPersistence(err)
	}
	return note, nil
}

// Notes lists staff notes oldest first. Notes are staff-only.
func (s *TicketDetailsService) Notes(ctx context.Context, actor domain.Actor, ticketID int64) ([]domain.TicketNote, error) {
	ticket, err := s.authorized(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	notes, err := s.notes.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.NewPersistence(err)
	}
	return notes, nil
}

// Stats returns per-status counts for the guild.
func (s *TicketDetailsService) Stats(ctx context.Context, actor domain.Actor, guildID string) (domain.TicketStats, error) {
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.TicketStats{}, apperrors.NewPersistence(err)
	}
	if err := s.policy.RequireStaff(actor, cfg, nil); err != nil {
		return domain.TicketStats{}, err
	}
	stats, err := s.tickets.Stats(ctx, guildID)
	if err != nil {
		return domain.TicketStats{}, apperrors.NewPersistence(err)
	}
	return stats, nil
}

func (s *TicketDetailsService) authorized(ctx context.Context, actor domain.Actor, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	if err := authorizeStaff(ctx, s.policy, s.configs, s.panels, actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ParseTagList splits a comma-separated tag string as typed by staff.
func ParseTagList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	return domain.NormalizeTags(strings.Split(raw, ","))
}
