package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/guild-tickets/internal/auth"
	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/platform"
	"github.com/spec-kit/guild-tickets/internal/repository"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// transcriptLimit caps how many messages a transcript fetches.
const transcriptLimit = 500

// Transcript is a plain-text export of a ticket channel.
type Transcript struct {
	FileName string
	Content  []byte
}

// TranscriptService renders ticket channel history for staff.
type TranscriptService struct {
	configs  repository.GuildConfigRepository
	panels   repository.PanelRepository
	tickets  repository.TicketRepository
	notes    repository.TicketNoteRepository
	platform platform.Platform
	policy   auth.Policy
}

// TranscriptDependencies bundles collaborators for transcripts.
type TranscriptDependencies struct {
	ConfigRepo repository.GuildConfigRepository
	PanelRepo  repository.PanelRepository
	TicketRepo repository.TicketRepository
	NoteRepo   repository.TicketNoteRepository
	Platform   platform.Platform
	Policy     auth.Policy
}

// NewTranscriptService constructs the service.
func NewTranscriptService(deps TranscriptDependencies) *TranscriptService {
	policy := deps.Policy
	if policy == nil {
		policy = auth.NewStaffPolicy()
	}
	return &TranscriptService{
		configs:  deps.ConfigRepo,
		panels:   deps.PanelRepo,
		tickets:  deps.TicketRepo,
		notes:    deps.NoteRepo,
		platform: deps.Platform,
		policy:   policy,
	}
}

// Build exports the ticket's channel messages followed by its staff notes.
func (s *TranscriptService) Build(ctx context.Context, actor domain.Actor, ticketID int64) (*Transcript, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	if err := authorizeStaff(ctx, s.policy, s.configs, s.panels, actor, ticket); err != nil {
		return nil, err
	}
	if ticket.IsArchived() {
		return nil, apperrors.NewInvalidTransition("This ticket is archived and its channel is gone.", nil)
	}

	messages, err := s.platform.ChannelMessages(ctx, ticket.ChannelID, transcriptLimit)
	if err != nil {
		return nil, apperrors.NewExternalResource("fetch channel messages", err)
	}
	notes, err := s.notes.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.NewPersistence(err)
	}

	return &Transcript{
		FileName: fmt.Sprintf("ticket-%d-transcript.txt", ticket.ID),
		Content:  []byte(renderTranscript(ticket, messages, notes)),
	}, nil
}

func renderTranscript(ticket *domain.Ticket, messages []platform.Message, notes []domain.TicketNote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket #%d\n", ticket.ID)
	fmt.Fprintf(&b, "Opened by: %s\n", ticket.UserID)
	fmt.Fprintf(&b, "Opened at: %s\n", ticket.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Status: %s\n", ticket.Status)
	fmt.Fprintf(&b, "Priority: %s\n", ticket.Priority)
	if len(ticket.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(ticket.Tags, ", "))
	}
	fmt.Fprintf(&b, "Reason: %s\n", ticket.Reason)
	if ticket.CloseReason != nil {
		fmt.Fprintf(&b, "Close reason: %s\n", *ticket.CloseReason)
	}

	b.WriteString("\n--- Messages ---\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp.UTC().Format(time.RFC3339), m.AuthorName, m.Content)
	}

	if len(notes) > 0 {
		b.WriteString("\n--- Staff notes ---\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "[%s] %s: %s\n", n.CreatedAt.UTC().Format(time.RFC3339), n.UserID, n.Note)
		}
	}
	return b.String()
}
