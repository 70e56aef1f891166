package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/guild-tickets/internal/api/http"
	"github.com/spec-kit/guild-tickets/internal/api/http/handlers"
	"github.com/spec-kit/guild-tickets/internal/auth"
	"github.com/spec-kit/guild-tickets/internal/config"
	"github.com/spec-kit/guild-tickets/internal/events"
	"github.com/spec-kit/guild-tickets/internal/interaction"
	"github.com/spec-kit/guild-tickets/internal/lock"
	"github.com/spec-kit/guild-tickets/internal/observability"
	"github.com/spec-kit/guild-tickets/internal/persistence"
	"github.com/spec-kit/guild-tickets/internal/platform/discord"
	"github.com/spec-kit/guild-tickets/internal/service"
	"github.com/spec-kit/guild-tickets/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	dependencies := []handlers.Dependency{{Name: "postgres", Pinger: pg}}
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Tickets.LockBackend == config.LockBackendRedis {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		locker = lock.NewRedisLocker(redis.Client, cfg.Tickets.LockTTL, logger)
		dependencies = append(dependencies, handlers.Dependency{Name: "redis", Pinger: redis})
	}

	// The liveness server comes up before the platform connection so the
	// host sees the process as healthy even while credentials are wrong.
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies...),
		Metrics: metrics,
	})
	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("liveness server listening", zap.String("addr", cfg.App.Addr()))

	if err := cfg.Discord.ValidateDiscord(); err != nil {
		logger.Error("discord credentials invalid; not connecting", zap.Error(err))
		waitForShutdown(logger)
		shutdownHTTP(app, logger)
		return
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal("failed to create discord session", zap.Error(err))
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	adapter := discord.NewAdapter(session, func() string {
		if session.State != nil && session.State.User != nil {
			return session.State.User.ID
		}
		return ""
	})

	stores := pg.Stores()
	dispatcher := events.NewInMemoryDispatcher(logger)
	policy := auth.NewStaffPolicy()

	quota := service.NewQuotaGuard(service.QuotaDependencies{
		ConfigRepo: stores.GuildConfigs,
		TicketRepo: stores.Tickets,
	})
	provisioning := service.NewProvisioningService(service.ProvisioningDependencies{
		ConfigRepo: stores.GuildConfigs,
		Platform:   adapter,
		Locker:     locker,
		Logger:     logger,
	})
	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		ConfigRepo: stores.GuildConfigs,
		PanelRepo:  stores.Panels,
		TicketRepo: stores.Tickets,
		MemberRepo: stores.Members,
		Policy:     policy,
		Platform:   adapter,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	opener := service.NewTicketOpener(service.OpenerDependencies{
		PanelRepo:    stores.Panels,
		TicketRepo:   stores.Tickets,
		Quota:        quota,
		Provisioning: provisioning,
		Locker:       locker,
		Platform:     adapter,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	details := service.NewTicketDetailsService(service.TicketDetailsDependencies{
		ConfigRepo: stores.GuildConfigs,
		PanelRepo:  stores.Panels,
		TicketRepo: stores.Tickets,
		NoteRepo:   stores.Notes,
		Policy:     policy,
	})
	configService := service.NewConfigService(service.ConfigDependencies{
		ConfigRepo:   stores.GuildConfigs,
		PanelRepo:    stores.Panels,
		Provisioning: provisioning,
		Platform:     adapter,
		Policy:       policy,
		Logger:       logger,
	})
	transcripts := service.NewTranscriptService(service.TranscriptDependencies{
		ConfigRepo: stores.GuildConfigs,
		PanelRepo:  stores.Panels,
		TicketRepo: stores.Tickets,
		NoteRepo:   stores.Notes,
		Platform:   adapter,
		Policy:     policy,
	})
	sweeper := service.NewArchivalSweeper(service.SweeperDependencies{
		ConfigRepo: stores.GuildConfigs,
		TicketRepo: stores.Tickets,
		Archiver:   lifecycle,
		Platform:   adapter,
		Metrics:    metrics,
		Logger:     logger,
	})

	service.NewNotificationService(dispatcher, adapter, logger).RegisterHandlers()

	scheduler, err := worker.NewScheduler(logger)
	if err != nil {
		logger.Fatal("failed to create scheduler", zap.Error(err))
	}
	if err := scheduler.RegisterSweep(sweeper, cfg.Tickets.SweepInterval); err != nil {
		logger.Fatal("failed to register archival sweep", zap.Error(err))
	}
	worker.NewDeferredDeleter(scheduler, worker.DeferredDeleterDependencies{
		Platform:       adapter,
		Delay:          cfg.Tickets.CloseDeleteDelay,
		CancelOnReopen: cfg.Tickets.CancelDeleteOnReopen,
		Metrics:        metrics,
		Logger:         logger,
	}).RegisterHandlers(dispatcher)

	router := interaction.NewRouter(interaction.RouterDependencies{
		Opener:      opener,
		Lifecycle:   lifecycle,
		Details:     details,
		Config:      configService,
		Transcripts: transcripts,
		Metrics:     metrics,
		Logger:      logger,
	})
	bridge := discord.NewBridge(session, router, logger)

	session.AddHandler(bridge.OnInteraction)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Info("connected to discord",
			zap.String("user", r.User.Username),
			zap.Int("guilds", len(r.Guilds)),
		)
		if err := s.UpdateWatchStatus(0, "for tickets"); err != nil {
			logger.Warn("failed to set presence", zap.Error(err))
		}
	})

	if err := session.Open(); err != nil {
		logger.Error("failed to open discord session", zap.Error(err))
		waitForShutdown(logger)
		shutdownHTTP(app, logger)
		return
	}
	defer session.Close() //nolint:errcheck

	if err := discord.RegisterCommands(ctx, session, cfg.Discord.AppID, cfg.Discord.DevGuildID, logger); err != nil {
		logger.Error("failed to register commands", zap.Error(err))
	}

	scheduler.Start()

	waitForShutdown(logger)

	if err := scheduler.Stop(); err != nil {
		logger.Warn("scheduler shutdown", zap.Error(err))
	}
	shutdownHTTP(app, logger)
}

func shutdownHTTP(app *fiber.App, logger *zap.Logger) {
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
