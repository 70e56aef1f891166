package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guild-tickets/internal/domain"
)

// PanelRepository persists intake panels.
type PanelRepository interface {
	Create(ctx context.Context, panel *domain.Panel) error
	GetByID(ctx context.Context, id int64) (*domain.Panel, error)
	ListByGuild(ctx context.Context, guildID string) ([]domain.Panel, error)
	Delete(ctx context.Context, guildID string, id int64) error
	UpdateAdvanced(ctx context.Context, id int64, patch domain.PanelPatch) (*domain.Panel, error)
}

type panelRepository struct {
	pool *pgxpool.Pool
}

// NewPanelRepository instantiates repository.
func NewPanelRepository(pool *pgxpool.Pool) PanelRepository {
	return &panelRepository{pool: pool}
}

const panelColumns = `id, guild_id, label, category_id, emoji, style, staff_role_id, max_open_tickets, open_cooldown_sec`

func (r *panelRepository) Create(ctx context.Context, panel *domain.Panel) error {
	const query = `
        INSERT INTO panels (guild_id, label, category_id, emoji, style)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		panel.GuildID,
		panel.Label,
		panel.CategoryID,
		panel.Emoji,
		panel.Style,
	).Scan(&panel.ID)
}

func (r *panelRepository) GetByID(ctx context.Context, id int64) (*domain.Panel, error) {
	query := `SELECT ` + panelColumns + ` FROM panels WHERE id=$1`
	panel, err := scanPanel(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return panel, nil
}

func (r *panelRepository) ListByGuild(ctx context.Context, guildID string) ([]domain.Panel, error) {
	query := `SELECT ` + panelColumns + ` FROM panels WHERE guild_id=$1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Panel
	for rows.Next() {
		panel, err := scanPanel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *panel)
	}
	return result, rows.Err()
}

func (r *panelRepository) Delete(ctx context.Context, guildID string, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM panels WHERE id=$1 AND guild_id=$2`, id, guildID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *panelRepository) UpdateAdvanced(ctx context.Context, id int64, patch domain.PanelPatch) (*domain.Panel, error) {
	query := `
        UPDATE panels SET
            staff_role_id=COALESCE($2, staff_role_id),
            max_open_tickets=COALESCE($3, max_open_tickets),
            open_cooldown_sec=COALESCE($4, open_cooldown_sec)
        WHERE id=$1
        RETURNING ` + panelColumns
	panel, err := scanPanel(r.pool.QueryRow(ctx, query, id, patch.StaffRoleID, patch.MaxOpenTickets, patch.OpenCooldownSec))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return panel, nil
}

func scanPanel(row pgx.Row) (*domain.Panel, error) {
	var panel domain.Panel
	if err := row.Scan(
		&panel.ID,
		&panel.GuildID,
		&panel.Label,
		&panel.CategoryID,
		&panel.Emoji,
		&panel.Style,
		&panel.StaffRoleID,
		&panel.MaxOpenTickets,
		&panel.OpenCooldownSec,
	); err != nil {
		return nil, err
	}
	return &panel, nil
}
