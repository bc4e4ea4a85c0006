package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	agendarepo "event_messaging_backend/internal/agenda/repository"
	agendasvc "event_messaging_backend/internal/agenda/service"
	attendeesrepo "event_messaging_backend/internal/attendees/repository"
	"event_messaging_backend/internal/delivery"
	"event_messaging_backend/internal/events"
	outboundrepo "event_messaging_backend/internal/outbound/repository"
	outboundsvc "event_messaging_backend/internal/outbound/service"
	pcrrepo "event_messaging_backend/internal/pcr/repository"
	pcrsvc "event_messaging_backend/internal/pcr/service"
	"event_messaging_backend/internal/scheduler"
	"event_messaging_backend/platform/config"
	"event_messaging_backend/platform/db"
	"event_messaging_backend/platform/lanes"
	"event_messaging_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	laneSvc := lanes.New()

	// The worker re-times and re-enqueues rows itself (early event end,
	// wrap-up), so it carries its own enqueue client.
	taskClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}
	defer func() { _ = taskClient.Close() }()

	agendaSvc := agendasvc.New(agendarepo.New(pool))
	outboundRepo := outboundrepo.New(pool)
	outboundSvc := outboundsvc.New(outboundRepo, attendeesrepo.New(pool),
		agendaSvc, taskClient, laneSvc, eventBus, log)

	var smsSender, emailSender delivery.Sender
	if s := delivery.NewSMSSender(cfg, log); s != nil {
		smsSender = s
	} else {
		log.Warn("SMS gateway not configured; SMS delivery disabled")
	}
	if s := delivery.NewEmailSender(cfg); s != nil {
		emailSender = s
	} else {
		log.Warn("SMTP not configured; email fallback disabled")
	}
	deliverySvc := delivery.NewService(outboundRepo, smsSender, emailSender, eventBus, log)

	pcrSvc := pcrsvc.New(pcrrepo.New(pool), eventBus, log)

	periodic, err := scheduler.NewPeriodicScheduler(cfg)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go func() {
		if err := periodic.Run(); err != nil {
			log.Error("periodic scheduler stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		periodic.Shutdown()
	}()

	worker, err := scheduler.NewWorker(cfg, deliverySvc, outboundSvc, pcrSvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
