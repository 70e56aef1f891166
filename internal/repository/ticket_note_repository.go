package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guild-tickets/internal/domain"
)

// TicketNoteRepository stores the append-only staff note log.
type TicketNoteRepository interface {
	Create(ctx context.Context, note *domain.TicketNote) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketNote, error)
}

type ticketNoteRepository struct {
	pool *pgxpool.Pool
}

// NewTicketNoteRepository builds repository.
func NewTicketNoteRepository(pool *pgxpool.Pool) TicketNoteRepository {
	return &ticketNoteRepository{pool: pool}
}

func (r *ticketNoteRepository) Create(ctx context.Context, note *domain.TicketNote) error {
	const query = `
        INSERT INTO ticket_notes (ticket_id, user_id, note, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		note.TicketID,
		note.UserID,
		note.Note,
		note.CreatedAt,
	).Scan(&note.ID)
}

func (r *ticketNoteRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketNote, error) {
	const query = `
        SELECT id, ticket_id, user_id, note, created_at
        FROM ticket_notes WHERE ticket_id=$1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketNote
	for rows.Next() {
		var note domain.TicketNote
		if err := rows.Scan(
			&note.ID,
			&note.TicketID,
			&note.UserID,
			&note.Note,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
