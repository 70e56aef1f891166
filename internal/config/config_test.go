package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DISCORD_CLIENT_ID", "CLIENT_ID", "LOCK_BACKEND", "SWEEP_INTERVAL",
		"TICKET_CLOSE_DELETE_DELAY", "TICKET_CANCEL_DELETE_ON_REOPEN", "POSTGRES_DSN"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, LockBackendLocal, cfg.Tickets.LockBackend)
	assert.Equal(t, 5*time.Minute, cfg.Tickets.SweepInterval)
	assert.Equal(t, 10*time.Second, cfg.Tickets.CloseDeleteDelay)
	assert.True(t, cfg.Tickets.CancelDeleteOnReopen)
	assert.Empty(t, cfg.Postgres.DSN)
}

func TestLoad_ClientIDFallback(t *testing.T) {
	t.Setenv("DISCORD_CLIENT_ID", "")
	t.Setenv("CLIENT_ID", "12345")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "12345", cfg.Discord.AppID)

	t.Setenv("DISCORD_CLIENT_ID", "999")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "999", cfg.Discord.AppID)
}

func TestLoad_Durations(t *testing.T) {
	t.Setenv("TICKET_CLOSE_DELETE_DELAY", "0")
	t.Setenv("SWEEP_INTERVAL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Tickets.CloseDeleteDelay)
	assert.Equal(t, 90*time.Second, cfg.Tickets.SweepInterval)
}

func TestLoad_RejectsUnknownLockBackend(t *testing.T) {
	t.Setenv("LOCK_BACKEND", "etcd")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateDiscord(t *testing.T) {
	cases := []struct {
		name  string
		cfg   DiscordConfig
		valid bool
	}{
		{name: "valid", cfg: DiscordConfig{Token: "aaa.bbb.ccc", AppID: "1"}, valid: true},
		{name: "missing token", cfg: DiscordConfig{AppID: "1"}},
		{name: "bot prefix", cfg: DiscordConfig{Token: "Bot aaa.bbb.ccc", AppID: "1"}},
		{name: "two parts", cfg: DiscordConfig{Token: "aaa.bbb", AppID: "1"}},
		{name: "empty segment", cfg: DiscordConfig{Token: "aaa..ccc", AppID: "1"}},
		{name: "missing app id", cfg: DiscordConfig{Token: "aaa.bbb.ccc"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.ValidateDiscord()
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeConfiguration))
		})
	}
}
