package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guild-tickets/internal/domain"
)

// GuildConfigRepository persists per-guild settings.
type GuildConfigRepository interface {
	Get(ctx context.Context, guildID string) (*domain.GuildConfig, error)
	UpsertBasic(ctx context.Context, guildID, staffRoleID, categoryID string) error
	UpsertAdvanced(ctx context.Context, guildID string, patch domain.GuildConfigPatch) (*domain.GuildConfig, error)
	ListAutoArchive(ctx context.Context) ([]domain.GuildConfig, error)
}

type guildConfigRepository struct {
	pool *pgxpool.Pool
}

// NewGuildConfigRepository instantiates repository.
func NewGuildConfigRepository(pool *pgxpool.Pool) GuildConfigRepository {
	return &guildConfigRepository{pool: pool}
}

const guildConfigColumns = `guild_id, staff_role_id, tickets_category_id, max_open_tickets, open_cooldown_sec, auto_archive_hours`

func (r *guildConfigRepository) Get(ctx context.Context, guildID string) (*domain.GuildConfig, error) {
	query := `SELECT ` + guildConfigColumns + ` FROM guild_config WHERE guild_id=$1`
	cfg, err := scanGuildConfig(r.pool.QueryRow(ctx, query, guildID))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return cfg, nil
}

func (r *guildConfigRepository) UpsertBasic(ctx context.Context, guildID, staffRoleID, categoryID string) error {
	const query = `
        INSERT INTO guild_config (guild_id, staff_role_id, tickets_category_id)
        VALUES ($1, NULLIF($2,''), NULLIF($3,''))
        ON CONFLICT (guild_id) DO UPDATE
        SET staff_role_id=EXCLUDED.staff_role_id, tickets_category_id=EXCLUDED.tickets_category_id`
	_, err := r.pool.Exec(ctx, query, guildID, staffRoleID, categoryID)
	return err
}

// UpsertAdvanced merges patch over the stored row in a single statement.
func (r *guildConfigRepository) UpsertAdvanced(ctx context.Context, guildID string, patch domain.GuildConfigPatch) (*domain.GuildConfig, error) {
	query := `
        INSERT INTO guild_config (guild_id, max_open_tickets, open_cooldown_sec, auto_archive_hours)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (guild_id) DO UPDATE SET
            max_open_tickets=COALESCE(EXCLUDED.max_open_tickets, guild_config.max_open_tickets),
            open_cooldown_sec=COALESCE(EXCLUDED.open_cooldown_sec, guild_config.open_cooldown_sec),
            auto_archive_hours=COALESCE(EXCLUDED.auto_archive_hours, guild_config.auto_archive_hours)
        RETURNING ` + guildConfigColumns
	return scanGuildConfig(r.pool.QueryRow(ctx, query,
		guildID,
		patch.MaxOpenTickets,
		patch.OpenCooldownSec,
		patch.AutoArchiveHours,
	))
}

func (r *guildConfigRepository) ListAutoArchive(ctx context.Context) ([]domain.GuildConfig, error) {
	query := `SELECT ` + guildConfigColumns + ` FROM guild_config WHERE auto_archive_hours > 0 ORDER BY guild_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.GuildConfig
	for rows.Next() {
		cfg, err := scanGuildConfig(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *cfg)
	}
	return result, rows.Err()
}

func scanGuildConfig(row pgx.Row) (*domain.GuildConfig, error) {
	var cfg domain.GuildConfig
	if err := row.Scan(
		&cfg.GuildID,
		&cfg.StaffRoleID,
		&cfg.TicketsCategoryID,
		&cfg.MaxOpenTickets,
		&cfg.OpenCooldownSec,
		&cfg.AutoArchiveHours,
	); err != nil {
		return nil, err
	}
	return &cfg, nil
}
