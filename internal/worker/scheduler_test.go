package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guild-tickets/internal/service"
)

type countingSweeper struct {
	runs atomic.Int32
}

func (s *countingSweeper) Sweep(context.Context) service.SweepResult {
	s.runs.Add(1)
	return service.SweepResult{}
}

func TestScheduler_SweepStartsImmediately(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	sweeper := &countingSweeper{}
	require.NoError(t, s.RegisterSweep(sweeper, time.Hour))
	require.Len(t, s.Jobs(), 1)
	assert.Equal(t, "archival-sweep", s.Jobs()[0].Name())

	s.Start()
	s.Start()
	assert.True(t, s.IsStarted())

	assert.Eventually(t, func() bool { return sweeper.runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.False(t, s.IsStarted())
	require.NoError(t, s.Stop())
}
