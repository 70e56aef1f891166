package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/repository"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// QuotaGuard enforces the open-ticket limit and the cooldown between opens.
type QuotaGuard struct {
	configs repository.GuildConfigRepository
	tickets repository.TicketRepository
	now     func() time.Time
}

// QuotaDependencies bundles repositories for the quota guard.
type QuotaDependencies struct {
	ConfigRepo repository.GuildConfigRepository
	TicketRepo repository.TicketRepository
	Now        func() time.Time
}

// NewQuotaGuard constructs the guard.
func NewQuotaGuard(deps QuotaDependencies) *QuotaGuard {
	return &QuotaGuard{
		configs: deps.ConfigRepo,
		tickets: deps.TicketRepo,
		now:     nowOrDefault(deps.Now),
	}
}

// QuotaPolicy is the effective quota for one open request.
type QuotaPolicy struct {
	MaxOpen     int
	CooldownSec int
}

// EffectivePolicy resolves panel overrides over the guild defaults. Zero means
// no limit.
func EffectivePolicy(cfg *domain.GuildConfig, panel *domain.Panel) QuotaPolicy {
	var policy QuotaPolicy
	if cfg != nil {
		policy.MaxOpen = domain.Positive(cfg.MaxOpenTickets)
		policy.CooldownSec = domain.Positive(cfg.OpenCooldownSec)
	}
	if panel != nil {
		if v := domain.Positive(panel.MaxOpenTickets); v > 0 {
			policy.MaxOpen = v
		}
		if v := domain.Positive(panel.OpenCooldownSec); v > 0 {
			policy.CooldownSec = v
		}
	}
	return policy
}

// CheckCanOpen returns nil when userID may open another ticket, or a
// QuotaExceeded / CooldownActive error. It only reads; two callers can both
// pass before either inserts, so TicketOpener runs it under the creation lock.
func (q *QuotaGuard) CheckCanOpen(ctx context.Context, guildID, userID string, panel *domain.Panel) error {
	cfg, err := q.configs.Get(ctx, guildID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewPersistence(err)
	}
	policy := EffectivePolicy(cfg, panel)

	scope := repository.TicketScope{GuildID: guildID, UserID: userID}
	if panel != nil {
		scope.PanelID = &panel.ID
	}

	if policy.MaxOpen > 0 {
		open, err := q.tickets.CountOpen(ctx, scope)
		if err != nil {
			return apperrors.NewPersistence(err)
		}
		if open >= policy.MaxOpen {
			return apperrors.NewQuotaExceeded(policy.MaxOpen)
		}
	}

	if policy.CooldownSec > 0 {
		last, err := q.tickets.LastCreatedAt(ctx, scope)
		if err != nil {
			return apperrors.NewPersistence(err)
		}
		if last != nil {
			remaining := last.Add(time.Duration(policy.CooldownSec) * time.Second).Sub(q.now())
			if remaining > 0 {
				return apperrors.NewCooldown(ceilSeconds(remaining))
			}
		}
	}

	return nil
}

// ceilSeconds rounds a positive duration up to whole seconds.
func ceilSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

func nowOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
