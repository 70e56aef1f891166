package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/guild-tickets/internal/auth"
	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/events"
	"github.com/spec-kit/guild-tickets/internal/lock"
	"github.com/spec-kit/guild-tickets/internal/platform/platformtest"
	"github.com/spec-kit/guild-tickets/internal/repository"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	stores       repository.Stores
	platform     *platformtest.Fake
	clock        *fakeClock
	dispatcher   events.Dispatcher
	quota        *QuotaGuard
	provisioning *ProvisioningService
	lifecycle    *LifecycleService
	opener       *TicketOpener
	details      *TicketDetailsService
	config       *ConfigService
	sweeper      *ArchivalSweeper
	transcripts  *TranscriptService
	published    []events.Event
}

var (
	admin  = domain.Actor{UserID: "admin", Username: "admin", IsAdministrator: true}
	member = domain.Actor{UserID: "u1", Username: "member"}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stores:     repository.NewMemoryStore().Stores(),
		platform:   platformtest.NewFake(),
		clock:      &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		dispatcher: events.NewInMemoryDispatcher(nil),
	}
	for _, et := range []events.EventType{
		events.EventTicketOpened, events.EventTicketClaimed, events.EventTicketUnclaimed,
		events.EventTicketClosed, events.EventTicketReopened, events.EventTicketArchived,
		events.EventTicketMemberAdded, events.EventTicketMemberRemoved,
	} {
		f.dispatcher.Subscribe(et, f.record)
	}

	locker := lock.NewKeyedMutex()
	policy := auth.NewStaffPolicy()

	f.quota = NewQuotaGuard(QuotaDependencies{
		ConfigRepo: f.stores.GuildConfigs,
		TicketRepo: f.stores.Tickets,
		Now:        f.clock.Now,
	})
	f.provisioning = NewProvisioningService(ProvisioningDependencies{
		ConfigRepo: f.stores.GuildConfigs,
		Platform:   f.platform,
		Locker:     locker,
	})
	f.lifecycle = NewLifecycleService(LifecycleDependencies{
		ConfigRepo: f.stores.GuildConfigs,
		PanelRepo:  f.stores.Panels,
		TicketRepo: f.stores.Tickets,
		MemberRepo: f.stores.Members,
		Policy:     policy,
		Platform:   f.platform,
		Dispatcher: f.dispatcher,
		Now:        f.clock.Now,
	})
	f.opener = NewTicketOpener(OpenerDependencies{
		PanelRepo:    f.stores.Panels,
		TicketRepo:   f.stores.Tickets,
		Quota:        f.quota,
		Provisioning: f.provisioning,
		Locker:       locker,
		Platform:     f.platform,
		Dispatcher:   f.dispatcher,
		Now:          f.clock.Now,
	})
	f.details = NewTicketDetailsService(TicketDetailsDependencies{
		ConfigRepo: f.stores.GuildConfigs,
		PanelRepo:  f.stores.Panels,
		TicketRepo: f.stores.Tickets,
		NoteRepo:   f.stores.Notes,
		Policy:     policy,
		Now:        f.clock.Now,
	})
	f.config = NewConfigService(ConfigDependencies{
		ConfigRepo:   f.stores.GuildConfigs,
		PanelRepo:    f.stores.Panels,
		Provisioning: f.provisioning,
		Platform:     f.platform,
		Policy:       policy,
	})
	f.sweeper = NewArchivalSweeper(SweeperDependencies{
		ConfigRepo: f.stores.GuildConfigs,
		TicketRepo: f.stores.Tickets,
		Archiver:   f.lifecycle,
		Platform:   f.platform,
		Now:        f.clock.Now,
	})
	f.transcripts = NewTranscriptService(TranscriptDependencies{
		ConfigRepo: f.stores.GuildConfigs,
		PanelRepo:  f.stores.Panels,
		TicketRepo: f.stores.Tickets,
		NoteRepo:   f.stores.Notes,
		Platform:   f.platform,
		Policy:     policy,
	})
	return f
}

func (f *fixture) record(_ context.Context, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fixture) eventTypes() []events.EventType {
	types := make([]events.EventType, 0, len(f.published))
	for _, e := range f.published {
		types = append(types, e.Type)
	}
	return types
}

func (f *fixture) open(t *testing.T, actor domain.Actor, panelID *int64) *domain.Ticket {
	t.Helper()
	ticket, err := f.opener.Open(context.Background(), OpenRequest{
		GuildID: "g1",
		Actor:   actor,
		PanelID: panelID,
		Reason:  "need help",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return ticket
}
