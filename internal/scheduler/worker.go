package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"event_messaging_backend/platform/config"
	"event_messaging_backend/platform/logger"
)

// Deliverer sends one due scheduled message. Implemented by the delivery
// service; it skips rows that are no longer pending.
type Deliverer interface {
	Deliver(ctx context.Context, messageID uuid.UUID) error
}

// EventEnder settles an event's remaining schedule at its end.
type EventEnder interface {
	EndEvent(ctx context.Context, eventID uuid.UUID, early bool) (int, error)
}

// PowerConfidenceComputer runs the quarterly partner scoring.
type PowerConfidenceComputer interface {
	ComputeQuarterlyPowerConfidence(ctx context.Context, now time.Time) (int, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	delivery  Deliverer
	events    EventEnder
	quarterly PowerConfidenceComputer
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, delivery Deliverer, ender EventEnder, quarterly PowerConfidenceComputer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		delivery:  delivery,
		events:    ender,
		quarterly: quarterly,
		log:       log,
	}

	mux.HandleFunc(TaskOutboundMessageDue, w.handleOutboundMessageDue)
	mux.HandleFunc(TaskEventWrapupDue, w.handleEventWrapupDue)
	mux.HandleFunc(TaskPowerConfidenceQuarterly, w.handlePowerConfidenceQuarterly)

	return w, nil
}

func (w *Worker) handleOutboundMessageDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOutboundMessageDuePayload(task)
	if err != nil {
		return err
	}

	messageID, err := uuid.Parse(payload.ScheduledMessageID)
	if err != nil {
		return err
	}

	return w.delivery.Deliver(ctx, messageID)
}

func (w *Worker) handleEventWrapupDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEventWrapupDuePayload(task)
	if err != nil {
		return err
	}

	eventID, err := uuid.Parse(payload.EventID)
	if err != nil {
		return err
	}

	cancelled, err := w.events.EndEvent(ctx, eventID, false)
	if err != nil {
		return err
	}
	w.log.Info("event wrapup processed", "event_id", eventID, "cancelled", cancelled)
	return nil
}

func (w *Worker) handlePowerConfidenceQuarterly(ctx context.Context, task *asynq.Task) error {
	computed, err := w.quarterly.ComputeQuarterlyPowerConfidence(ctx, time.Now())
	if err != nil {
		return err
	}
	w.log.Info("quarterly power confidence task done", "partners", computed)
	return nil
}

// Run serves tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// NewPeriodicScheduler registers the recurring tasks. The quarterly
// PowerConfidence job fires on the first day of each quarter, off the
// per-message path.
func NewPeriodicScheduler(cfg config.SchedulerConfig) (*asynq.Scheduler, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	sched := asynq.NewScheduler(opt, nil)
	if _, err := sched.Register(
		"0 4 1 1,4,7,10 *",
		asynq.NewTask(TaskPowerConfidenceQuarterly, nil),
		asynq.Queue(queue),
	); err != nil {
		return nil, err
	}
	return sched, nil
}
