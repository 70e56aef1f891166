package interaction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/interaction/customid"
	"github.com/spec-kit/guild-tickets/internal/observability"
	"github.com/spec-kit/guild-tickets/internal/service"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// Kind distinguishes component clicks from modal submits.
type Kind string

const (
	KindButton Kind = "button"
	KindModal  Kind = "modal"
)

// Request is a button click or modal submit.
type Request struct {
	Kind      Kind
	CustomID  string
	GuildID   string
	ChannelID string
	Actor     domain.Actor
	// Fields holds modal values by field id.
	Fields map[string]string
}

// Router dispatches interactions to the ticket services.
type Router struct {
	opener      *service.TicketOpener
	lifecycle   *service.LifecycleService
	details     *service.TicketDetailsService
	config      *service.ConfigService
	transcripts *service.TranscriptService
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// RouterDependencies bundles the services behind the router.
type RouterDependencies struct {
	Opener      *service.TicketOpener
	Lifecycle   *service.LifecycleService
	Details     *service.TicketDetailsService
	Config      *service.ConfigService
	Transcripts *service.TranscriptService
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewRouter constructs the router.
func NewRouter(deps RouterDependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		opener:      deps.Opener,
		lifecycle:   deps.Lifecycle,
		details:     deps.Details,
		config:      deps.Config,
		transcripts: deps.Transcripts,
		metrics:     deps.Metrics,
		logger:      logger,
	}
}

// HandleComponent routes a button or modal submit. It returns nil when the
// custom id is not a ticket token; such interactions are left unanswered.
func (r *Router) HandleComponent(ctx context.Context, req Request) *Response {
	token, ok := customid.Parse(req.CustomID)
	if !ok {
		return nil
	}
	if req.GuildID == "" {
		return ephemeral("Tickets only work inside a server.")
	}

	var (
		resp *Response
		err  error
	)
	if req.Kind == KindModal {
		resp, err = r.submitModal(ctx, token, req)
	} else {
		resp, err = r.clickButton(ctx, token, req)
	}
	return r.finish(string(req.Kind)+":"+string(token.Action), req, resp, err)
}

func (r *Router) clickButton(ctx context.Context, token customid.Token, req Request) (*Response, error) {
	switch token.Action {
	case customid.ActionOpen, customid.ActionOpenPanel:
		return &Response{Modal: reasonModal(token, "Open a Ticket", "Briefly describe your issue", service.MaxReasonLength)}, nil
	case customid.ActionCloseReason:
		return &Response{Modal: reasonModal(token, "Close Ticket", "Reason for closing", service.MaxReasonLength)}, nil
	case customid.ActionAddUser:
		return &Response{Modal: userModal(token, "Add User")}, nil
	case customid.ActionRemoveUser:
		return &Response{Modal: userModal(token, "Remove User")}, nil
	}

	ticketID, err := r.resolveTicket(ctx, token, req.ChannelID)
	if err != nil {
		return nil, err
	}

	switch token.Action {
	case customid.ActionClose:
		t, err := r.lifecycle.Close(ctx, req.Actor, ticketID, "")
		if err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Ticket #%d closed.", t.ID)), nil
	case customid.ActionReopen:
		t, err := r.lifecycle.Reopen(ctx, req.Actor, ticketID)
		if err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Ticket #%d reopened.", t.ID)), nil
	case customid.ActionClaim:
		t, err := r.lifecycle.Claim(ctx, req.Actor, ticketID)
		if err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("You claimed ticket #%d.", t.ID)), nil
	case customid.ActionUnclaim:
		t, err := r.lifecycle.Unclaim(ctx, req.Actor, ticketID)
		if err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Ticket #%d is unclaimed.", t.ID)), nil
	case customid.ActionTranscript:
		transcript, err := r.transcripts.Build(ctx, req.Actor, ticketID)
		if err != nil {
			return nil, err
		}
		return &Response{
			Content:   fmt.Sprintf("Transcript for ticket #%d.", ticketID),
			Ephemeral: true,
			File:      &File{Name: transcript.FileName, Content: transcript.Content},
		}, nil
	}
	return nil, apperrors.NewValidationError("Unsupported action.", nil)
}

func (r *Router) submitModal(ctx context.Context, token customid.Token, req Request) (*Response, error) {
	switch token.Action {
	case customid.ActionOpen, customid.ActionOpenPanel:
		open := service.OpenRequest{GuildID: req.GuildID, Actor: req.Actor, Reason: req.Fields[FieldReason]}
		if token.Action == customid.ActionOpenPanel {
			panelID := token.ID
			open.PanelID = &panelID
		}
		t, err := r.opener.Open(ctx, open)
		if err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Ticket created: <#%s>", t.ChannelID)), nil
	}

	ticketID, err := r.resolveTicket(ctx, token, req.ChannelID)
	if err != nil {
		return nil, err
	}

	switch token.Action {
	case customid.ActionCloseReason:
		t, err := r.lifecycle.Close(ctx, req.Actor, ticketID, req.Fields[FieldReason])
		if err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Ticket #%d closed.", t.ID)), nil
	case customid.ActionAddUser, customid.ActionRemoveUser:
		userID := ParseUserMention(req.Fields[FieldUserID])
		if userID == "" {
			return nil, apperrors.NewValidationError("Please enter a user mention or id.", nil)
		}
		if token.Action == customid.ActionAddUser {
			added, err := r.lifecycle.AddParticipant(ctx, req.Actor, ticketID, userID)
			if err != nil {
				return nil, err
			}
			if !added {
				return ephemeral(fmt.Sprintf("<@%s> is already in this ticket.", userID)), nil
			}
			return ephemeral(fmt.Sprintf("Added <@%s> to ticket #%d.", userID, ticketID)), nil
		}
		removed, err := r.lifecycle.RemoveParticipant(ctx, req.Actor, ticketID, userID)
		if err != nil {
			return nil, err
		}
		if !removed {
			return ephemeral(fmt.Sprintf("<@%s> was not in this ticket.", userID)), nil
		}
		return ephemeral(fmt.Sprintf("Removed <@%s> from ticket #%d.", userID, ticketID)), nil
	}
	return nil, apperrors.NewValidationError("Unsupported action.", nil)
}

// resolveTicket uses the id carried by the token and falls back to the
// ticket bound to the channel the interaction came from.
func (r *Router) resolveTicket(ctx context.Context, token customid.Token, channelID string) (int64, error) {
	if token.HasID() {
		return token.ID, nil
	}
	t, err := r.details.ByChannel(ctx, channelID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return 0, apperrors.NewValidationError("This channel is not a ticket.", nil)
		}
		return 0, err
	}
	return t.ID, nil
}

// finish applies the boundary error policy: user-facing messages pass
// through, anything else is logged and replaced by GenericFailure.
func (r *Router) finish(kind string, req Request, resp *Response, err error) *Response {
	if err == nil {
		r.metrics.Interaction(kind, "ok")
		return resp
	}
	if apperrors.IsUserVisible(err) {
		r.metrics.Interaction(kind, "rejected")
		return ephemeral(apperrors.ToDomainError(err).Message)
	}
	r.metrics.Interaction(kind, "error")
	r.logger.Error("interaction failed",
		zap.String("kind", kind),
		zap.String("custom_id", req.CustomID),
		zap.String("guild_id", req.GuildID),
		zap.String("channel_id", req.ChannelID),
		zap.String("user_id", req.Actor.UserID),
		zap.Error(err),
	)
	return ephemeral(GenericFailure)
}

func reasonModal(token customid.Token, title, label string, maxLength int) *Modal {
	return &Modal{
		CustomID: token.String(),
		Title:    title,
		Fields: []ModalField{{
			ID:        FieldReason,
			Label:     label,
			Paragraph: true,
			Required:  token.Action != customid.ActionCloseReason,
			MaxLength: maxLength,
		}},
	}
}

func userModal(token customid.Token, title string) *Modal {
	return &Modal{
		CustomID: token.String(),
		Title:    title,
		Fields:   []ModalField{{ID: FieldUserID, Label: "User mention or id", Required: true, MaxLength: 64}},
	}
}

// ParseUserMention accepts "<@123>", "<@!123>" or a bare id.
func ParseUserMention(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "<@")
	raw = strings.TrimPrefix(raw, "!")
	raw = strings.TrimSuffix(raw, ">")
	for _, r := range raw {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return raw
}
