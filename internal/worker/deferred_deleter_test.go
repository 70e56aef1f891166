package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/events"
	"github.com/spec-kit/guild-tickets/internal/platform/platformtest"
)

func newStartedScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	s.Start()
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestDeferredDeleter_DeletesAfterDelay(t *testing.T) {
	fake := platformtest.NewFake()
	d := NewDeferredDeleter(newStartedScheduler(t), DeferredDeleterDependencies{Platform: fake})

	require.NoError(t, d.Schedule(7, "chan-7", 20*time.Millisecond))
	assert.Equal(t, 1, d.Pending())

	assert.Eventually(t, func() bool {
		return fake.Count("DeleteChannel:chan-7") == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, d.Pending())
}

func TestDeferredDeleter_CancelPreventsDeletion(t *testing.T) {
	fake := platformtest.NewFake()
	d := NewDeferredDeleter(newStartedScheduler(t), DeferredDeleterDependencies{Platform: fake})

	require.NoError(t, d.Schedule(7, "chan-7", 100*time.Millisecond))
	assert.True(t, d.Cancel(7))
	assert.False(t, d.Cancel(7))

	time.Sleep(250 * time.Millisecond)
	assert.Zero(t, fake.Count("DeleteChannel"))
}

func TestDeferredDeleter_ZeroDelayDisables(t *testing.T) {
	fake := platformtest.NewFake()
	d := NewDeferredDeleter(newStartedScheduler(t), DeferredDeleterDependencies{Platform: fake})

	require.NoError(t, d.Schedule(7, "chan-7", 0))
	assert.Zero(t, d.Pending())
}

func TestDeferredDeleter_EventWiring(t *testing.T) {
	ctx := context.Background()
	fake := platformtest.NewFake()
	dispatcher := events.NewInMemoryDispatcher(nil)
	d := NewDeferredDeleter(newStartedScheduler(t), DeferredDeleterDependencies{
		Platform:       fake,
		Delay:          time.Hour,
		CancelOnReopen: true,
	})
	d.RegisterHandlers(dispatcher)

	ticket := &domain.Ticket{ID: 3, GuildID: "g1", ChannelID: "chan-3"}
	at := time.Now()

	require.NoError(t, dispatcher.Publish(ctx, events.NewTicketEvent(events.EventTicketClosed, ticket, domain.SystemActor, at, nil)))
	assert.Equal(t, 1, d.Pending())

	require.NoError(t, dispatcher.Publish(ctx, events.NewTicketEvent(events.EventTicketReopened, ticket, domain.SystemActor, at, nil)))
	assert.Zero(t, d.Pending())

	require.NoError(t, dispatcher.Publish(ctx, events.NewTicketEvent(events.EventTicketClosed, ticket, domain.SystemActor, at, nil)))
	require.NoError(t, dispatcher.Publish(ctx, events.NewTicketEvent(events.EventTicketArchived, ticket, domain.SystemActor, at, nil)))
	assert.Zero(t, d.Pending())
}

func TestDeferredDeleter_ReopenKeepsDeletionWhenNotConfigured(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher(nil)
	d := NewDeferredDeleter(newStartedScheduler(t), DeferredDeleterDependencies{
		Platform: platformtest.NewFake(),
		Delay:    time.Hour,
	})
	d.RegisterHandlers(dispatcher)

	ticket := &domain.Ticket{ID: 3, GuildID: "g1", ChannelID: "chan-3"}
	require.NoError(t, dispatcher.Publish(ctx, events.NewTicketEvent(events.EventTicketClosed, ticket, domain.SystemActor, time.Now(), nil)))
	require.NoError(t, dispatcher.Publish(ctx, events.NewTicketEvent(events.EventTicketReopened, ticket, domain.SystemActor, time.Now(), nil)))
	assert.Equal(t, 1, d.Pending())
}
