package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketMemberRepository manages the participants added to a ticket beyond its opener.
type TicketMemberRepository interface {
	Add(ctx context.Context, ticketID int64, userID string) (bool, error)
	Remove(ctx context.Context, ticketID int64, userID string) (bool, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]string, error)
}

type ticketMemberRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMemberRepository builds repository.
func NewTicketMemberRepository(pool *pgxpool.Pool) TicketMemberRepository {
	return &ticketMemberRepository{pool: pool}
}

// Add inserts the pair; it reports false when the user was already a member.
func (r *ticketMemberRepository) Add(ctx context.Context, ticketID int64, userID string) (bool, error) {
	const query = `
        INSERT INTO ticket_members (ticket_id, user_id) VALUES ($1,$2)
        ON CONFLICT (ticket_id, user_id) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, ticketID, userID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketMemberRepository) Remove(ctx context.Context, ticketID int64, userID string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_members WHERE ticket_id=$1 AND user_id=$2`, ticketID, userID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketMemberRepository) ListByTicket(ctx context.Context, ticketID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM ticket_members WHERE ticket_id=$1 ORDER BY user_id`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		result = append(result, userID)
	}
	return result, rows.Err()
}
