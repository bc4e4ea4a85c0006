package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"event_messaging_backend/internal/agenda"
	"event_messaging_backend/internal/attendees"
	"event_messaging_backend/internal/concierge"
	convorepo "event_messaging_backend/internal/conversation/repository"
	convosvc "event_messaging_backend/internal/conversation/service"
	"event_messaging_backend/internal/dispatch"
	"event_messaging_backend/internal/events"
	apphttp "event_messaging_backend/internal/http"
	"event_messaging_backend/internal/http/router"
	"event_messaging_backend/internal/outbound"
	outboundsvc "event_messaging_backend/internal/outbound/service"
	"event_messaging_backend/internal/pcr"
	"event_messaging_backend/internal/scheduler"
	"event_messaging_backend/internal/tagging"
	"event_messaging_backend/platform/config"
	"event_messaging_backend/platform/db"
	"event_messaging_backend/platform/lanes"
	"event_messaging_backend/platform/logger"
	"event_messaging_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, cfg.MigrationsDir)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Per-contractor message lanes; a slow handler shows up as lane wait.
	laneSvc := lanes.New(lanes.WithWaitWarning(cfg.GetLaneWaitWarnThreshold(), func(laneKey string, waited time.Duration, depth int) {
		log.LaneBackpressure(laneKey, waited, depth)
	}))

	taskScheduler, closeScheduler := initTaskScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	agendaModule := agenda.NewModule(pool)
	attendeesModule := attendees.NewModule(pool, laneSvc, eventBus, val, log)
	pcrModule := pcr.NewModule(pool, eventBus, log)

	outboundModule := outbound.NewModule(pool, attendeesModule.Service().Repo(),
		agendaModule.Service(), taskScheduler, laneSvc, eventBus, val, log)

	// Check-in drives scheduling through a port (breaks circular dependency)
	attendeesModule.Service().SetScheduler(outboundModule.Service())

	// Opt-out cancellation listens on the bus rather than a direct call
	outboundModule.RegisterHandlers(eventBus)

	conversationSvc := convosvc.New(convorepo.New(pool), agendaModule.Service(), log)

	conciergeAgent, err := concierge.New(cfg, agendaModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize concierge agent", "error", err)
		panic("failed to initialize concierge agent: " + err.Error())
	}

	dispatchDeps := dispatch.ModuleDeps{
		Attendees: attendeesModule.Service(),
		Convo:     conversationSvc,
		Agenda:    agendaModule.Service(),
		Outbound:  outboundModule.Service(),
		Pcr:       pcrModule.Service(),
		Concierge: conciergeAgent,
		Lanes:     laneSvc,
	}
	if crmTagger := tagging.NewCRMClient(cfg, log); crmTagger != nil {
		dispatchDeps.Tagger = crmTagger
	} else {
		log.Warn("CRM tagging disabled; no CRM base URL configured")
	}

	dispatchModule := dispatch.NewModule(pool, dispatchDeps, eventBus, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			agendaModule,
			attendeesModule,
			outboundModule,
			pcrModule,
			dispatchModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initTaskScheduler(cfg config.SchedulerConfig, log *logger.Logger) (outboundsvc.TaskScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; outbound delivery tasks disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
