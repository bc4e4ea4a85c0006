package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	url string
}

func (c testSchedulerConfig) GetRedisURL() string { return c.url }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "messaging" }
func (c testSchedulerConfig) GetAsynqConcurrency() int { return 2 }

func newTestClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := testSchedulerConfig{url: "redis://" + mr.Addr()}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { inspector.Close() })

	return client, inspector
}

func TestScheduleOutboundMessage(t *testing.T) {
	client, inspector := newTestClient(t)

	payload := OutboundMessageDuePayload{
		ScheduledMessageID: uuid.NewString(),
		ContractorID:       uuid.NewString(),
		EventID:            uuid.NewString(),
	}
	runAt := time.Now().Add(30 * time.Minute)

	if err := client.ScheduleOutboundMessage(context.Background(), payload, runAt); err != nil {
		t.Fatalf("ScheduleOutboundMessage: %v", err)
	}

	tasks, err := inspector.ListScheduledTasks("messaging")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("scheduled tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Type != TaskOutboundMessageDue {
		t.Fatalf("task type = %s, want %s", tasks[0].Type, TaskOutboundMessageDue)
	}

	parsed, err := ParseOutboundMessageDuePayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if parsed.ScheduledMessageID != payload.ScheduledMessageID {
		t.Fatalf("payload id = %s, want %s", parsed.ScheduledMessageID, payload.ScheduledMessageID)
	}
}

func TestScheduleOutboundMessageDeduplicatesByTaskID(t *testing.T) {
	client, inspector := newTestClient(t)

	payload := OutboundMessageDuePayload{
		ScheduledMessageID: uuid.NewString(),
		ContractorID:       uuid.NewString(),
		EventID:            uuid.NewString(),
	}
	runAt := time.Now().Add(time.Hour)

	if err := client.ScheduleOutboundMessage(context.Background(), payload, runAt); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	err := client.ScheduleOutboundMessage(context.Background(), payload, runAt)
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		t.Fatalf("second enqueue err = %v, want task id conflict", err)
	}

	tasks, err := inspector.ListScheduledTasks("messaging")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("scheduled tasks = %d, want 1", len(tasks))
	}
}

func TestScheduleEventWrapupOncePerEvent(t *testing.T) {
	client, inspector := newTestClient(t)

	payload := EventWrapupDuePayload{EventID: uuid.NewString()}
	runAt := time.Now().Add(8 * time.Hour)

	if err := client.ScheduleEventWrapup(context.Background(), payload, runAt); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := client.ScheduleEventWrapup(context.Background(), payload, runAt.Add(time.Minute)); !errors.Is(err, asynq.ErrTaskIDConflict) {
		t.Fatalf("duplicate wrapup err = %v, want task id conflict", err)
	}

	tasks, err := inspector.ListScheduledTasks("messaging")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("scheduled tasks = %d, want 1", len(tasks))
	}
}
