package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// Lock backends accepted by LOCK_BACKEND.
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Discord  DiscordConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Tickets  TicketConfig
}

// AppConfig controls the liveness server.
type AppConfig struct {
	Name    string
	Host    string
	Port    string
	Version string
}

// DiscordConfig carries the platform credentials.
type DiscordConfig struct {
	Token      string
	AppID      string
	DevGuildID string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// TicketConfig holds lifecycle timing knobs.
type TicketConfig struct {
	LockBackend          string
	LockTTL              time.Duration
	SweepInterval        time.Duration
	CloseDeleteDelay     time.Duration
	CancelDeleteOnReopen bool
}

// Load reads configuration from environment variables, applying defaults where possible.
// Credentials are not validated here; see ValidateDiscord.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	lockBackend := strings.ToLower(getEnv("LOCK_BACKEND", LockBackendLocal))
	if lockBackend != LockBackendLocal && lockBackend != LockBackendRedis {
		return nil, fmt.Errorf("invalid LOCK_BACKEND %q: want %q or %q", lockBackend, LockBackendLocal, LockBackendRedis)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "guild-tickets"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("PORT", "3000"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Discord: DiscordConfig{
			Token:      strings.TrimSpace(os.Getenv("DISCORD_TOKEN")),
			AppID:      strings.TrimSpace(getEnv("DISCORD_CLIENT_ID", os.Getenv("CLIENT_ID"))),
			DevGuildID: strings.TrimSpace(os.Getenv("DEV_GUILD_ID")),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tickets: TicketConfig{
			LockBackend:          lockBackend,
			LockTTL:              getEnvAsDuration("LOCK_TTL", 30*time.Second),
			SweepInterval:        getEnvAsDuration("SWEEP_INTERVAL", 5*time.Minute),
			CloseDeleteDelay:     getEnvAsDuration("TICKET_CLOSE_DELETE_DELAY", 10*time.Second),
			CancelDeleteOnReopen: getEnvAsBool("TICKET_CANCEL_DELETE_ON_REOPEN", true),
		},
	}

	if cfg.Tickets.SweepInterval <= 0 {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL %s: must be positive", cfg.Tickets.SweepInterval)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// ValidateDiscord checks the credentials before any connection is attempted.
// A bot token has three dot-separated parts and must not carry the "Bot " prefix;
// the session adds it.
func (d DiscordConfig) ValidateDiscord() error {
	if d.Token == "" {
		return apperrors.NewConfiguration("DISCORD_TOKEN is not set")
	}
	if strings.HasPrefix(strings.ToLower(d.Token), "bot ") {
		return apperrors.NewConfiguration("DISCORD_TOKEN must not include the \"Bot \" prefix")
	}
	parts := strings.Split(d.Token, ".")
	if len(parts) != 3 {
		return apperrors.NewConfiguration("DISCORD_TOKEN is malformed: expected three dot-separated parts")
	}
	for _, part := range parts {
		if part == "" {
			return apperrors.NewConfiguration("DISCORD_TOKEN is malformed: empty segment")
		}
	}
	if d.AppID == "" {
		return apperrors.NewConfiguration("DISCORD_CLIENT_ID (or CLIENT_ID) is not set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
