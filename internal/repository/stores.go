package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Stores bundles every repository the services depend on.
type Stores struct {
	GuildConfigs GuildConfigRepository
	Panels       PanelRepository
	Tickets      TicketRepository
	Members      TicketMemberRepository
	Notes        TicketNoteRepository
}

// NewPostgresStores wires the pgx-backed repositories onto one pool.
func NewPostgresStores(pool *pgxpool.Pool) Stores {
	return Stores{
		GuildConfigs: NewGuildConfigRepository(pool),
		Panels:       NewPanelRepository(pool),
		Tickets:      NewTicketRepository(pool),
		Members:      NewTicketMemberRepository(pool),
		Notes:        NewTicketNoteRepository(pool),
	}
}
