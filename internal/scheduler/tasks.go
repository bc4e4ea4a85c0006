package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskOutboundMessageDue = "outbound.message.due"

const TaskEventWrapupDue = "event.wrapup.due"

const TaskPowerConfidenceQuarterly = "pcr.powerconfidence.quarterly"

type OutboundMessageDuePayload struct {
	ScheduledMessageID string `json:"scheduledMessageId"`
	ContractorID       string `json:"contractorId"`
	EventID            string `json:"eventId"`
}

type EventWrapupDuePayload struct {
	EventID string `json:"eventId"`
}

func NewOutboundMessageDueTask(payload OutboundMessageDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutboundMessageDue, data), nil
}

func ParseOutboundMessageDuePayload(task *asynq.Task) (OutboundMessageDuePayload, error) {
	var payload OutboundMessageDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OutboundMessageDuePayload{}, err
	}
	return payload, nil
}

func NewEventWrapupDueTask(payload EventWrapupDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEventWrapupDue, data), nil
}

func ParseEventWrapupDuePayload(task *asynq.Task) (EventWrapupDuePayload, error) {
	var payload EventWrapupDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EventWrapupDuePayload{}, err
	}
	return payload, nil
}
