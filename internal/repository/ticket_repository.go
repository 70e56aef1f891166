package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guild-tickets/internal/domain"
)

// TicketScope narrows quota queries to one requester, optionally inside a panel.
type TicketScope struct {
	GuildID string
	UserID  string
	PanelID *int64
}

// TicketRepository encapsulates ticket persistence.
//
// Every method is a single statement; the state transitions (Close, Reopen,
// Archive, SetClaim) are conditional updates that either apply atomically or
// return ErrNotFound / ErrStateConflict without touching the row.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByChannelID(ctx context.Context, channelID string) (*domain.Ticket, error)
	CountOpen(ctx context.Context, scope TicketScope) (int, error)
	LastCreatedAt(ctx context.Context, scope TicketScope) (*time.Time, error)
	Close(ctx context.Context, id int64, at time.Time, reason string) (*domain.Ticket, error)
	Reopen(ctx context.Context, id int64) (*domain.Ticket, error)
	Archive(ctx context.Context, id int64, at time.Time) (*domain.Ticket, error)
	SetClaim(ctx context.Context, id int64, staffID *string) (*domain.Ticket, error)
	SetPriority(ctx context.Context, id int64, priority domain.TicketPriority) error
	SetTags(ctx context.Context, id int64, tags []string) error
	GetTags(ctx context.Context, id int64) ([]string, error)
	ListArchivable(ctx context.Context, guildID string, cutoff time.Time) ([]domain.Ticket, error)
	Stats(ctx context.Context, guildID string) (domain.TicketStats, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, guild_id, channel_id, user_id, panel_id, reason, status, claimed_by,
               priority, tags, created_at, closed_at, archived_at, close_reason`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (guild_id, channel_id, user_id, panel_id, reason, status, priority, tags, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id`
	if ticket.Tags == nil {
		ticket.Tags = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		ticket.GuildID,
		ticket.ChannelID,
		ticket.UserID,
		ticket.PanelID,
		ticket.Reason,
		ticket.Status,
		ticket.Priority,
		ticket.Tags,
		ticket.CreatedAt,
	).Scan(&ticket.ID)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByChannelID(ctx context.Context, channelID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE channel_id=$1 ORDER BY id DESC LIMIT 1`
	return r.fetchSingle(ctx, query, channelID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return ticket, nil
}

func (r *ticketRepository) CountOpen(ctx context.Context, scope TicketScope) (int, error) {
	query := `SELECT COUNT(*) FROM tickets WHERE guild_id=$1 AND user_id=$2 AND status='open'`
	args := []any{scope.GuildID, scope.UserID}
	if scope.PanelID != nil {
		query += ` AND panel_id=$3`
		args = append(args, *scope.PanelID)
	}
	var count int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *ticketRepository) LastCreatedAt(ctx context.Context, scope TicketScope) (*time.Time, error) {
	query := `SELECT created_at FROM tickets WHERE guild_id=$1 AND user_id=$2`
	args := []any{scope.GuildID, scope.UserID}
	if scope.PanelID != nil {
		query += ` AND panel_id=$3`
		args = append(args, *scope.PanelID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &createdAt, nil
}

func (r *ticketRepository) Close(ctx context.Context, id int64, at time.Time, reason string) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status='closed', closed_at=$2, close_reason=$3
        WHERE id=$1 AND status='open'
        RETURNING ` + ticketColumns
	return r.transition(ctx, id, query, id, at, reason)
}

func (r *ticketRepository) Reopen(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status='open'
        WHERE id=$1 AND status='closed' AND archived_at IS NULL
        RETURNING ` + ticketColumns
	return r.transition(ctx, id, query, id)
}

func (r *ticketRepository) Archive(ctx context.Context, id int64, at time.Time) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status='archived', archived_at=$2
        WHERE id=$1 AND status='closed' AND archived_at IS NULL AND closed_at IS NOT NULL
        RETURNING ` + ticketColumns
	return r.transition(ctx, id, query, id, at)
}

func (r *ticketRepository) SetClaim(ctx context.Context, id int64, staffID *string) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET claimed_by=$2
        WHERE id=$1 AND status<>'archived'
        RETURNING ` + ticketColumns
	return r.transition(ctx, id, query, id, staffID)
}

// transition runs a conditional update and, when it matched nothing, tells
// a missing ticket apart from one in the wrong state.
func (r *ticketRepository) transition(ctx context.Context, id int64, query string, args ...any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrStateConflict
}

func (r *ticketRepository) SetPriority(ctx context.Context, id int64, priority domain.TicketPriority) error {
	return r.execOne(ctx, `UPDATE tickets SET priority=$2 WHERE id=$1`, id, priority)
}

func (r *ticketRepository) SetTags(ctx context.Context, id int64, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	return r.execOne(ctx, `UPDATE tickets SET tags=$2 WHERE id=$1`, id, tags)
}

func (r *ticketRepository) GetTags(ctx context.Context, id int64) ([]string, error) {
	var tags []string
	if err := r.pool.QueryRow(ctx, `SELECT tags FROM tickets WHERE id=$1`, id).Scan(&tags); err != nil {
		return nil, mapNoRows(err)
	}
	return tags, nil
}

func (r *ticketRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) ListArchivable(ctx context.Context, guildID string, cutoff time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
             FROM tickets
             WHERE guild_id=$1 AND status='closed' AND archived_at IS NULL
               AND closed_at IS NOT NULL AND closed_at < $2
             ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, guildID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Stats(ctx context.Context, guildID string) (domain.TicketStats, error) {
	const query = `
        SELECT COUNT(*) FILTER (WHERE status='open'),
               COUNT(*) FILTER (WHERE status='closed'),
               COUNT(*) FILTER (WHERE status='archived')
        FROM tickets WHERE guild_id=$1`
	var stats domain.TicketStats
	err := r.pool.QueryRow(ctx, query, guildID).Scan(&stats.Open, &stats.Closed, &stats.Archived)
	return stats, err
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.GuildID,
		&ticket.ChannelID,
		&ticket.UserID,
		&ticket.PanelID,
		&ticket.Reason,
		&ticket.Status,
		&ticket.ClaimedBy,
		&ticket.Priority,
		&ticket.Tags,
		&ticket.CreatedAt,
		&ticket.ClosedAt,
		&ticket.ArchivedAt,
		&ticket.CloseReason,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
