package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	agendarepo "event_messaging_backend/internal/agenda/repository"
	agendasvc "event_messaging_backend/internal/agenda/service"
	"event_messaging_backend/internal/messaging"
)

// Trigger offsets, all anchored to agenda timestamps.
const (
	speakerAlertLead = 15 * time.Minute
	sponsorRecDelay  = 2 * time.Minute
	peerIntroDelay   = 5 * time.Minute
	pcrRequestDelay  = 7 * time.Minute
	wrapupDelay      = time.Hour
	recommendedLimit = 3
)

// PlanInput is the agenda snapshot a check-in plan is computed from.
type PlanInput struct {
	ContractorID uuid.UUID
	EventID      uuid.UUID
	FirstName    string
	Event        agendarepo.Event
	Recommended  []agendasvc.SessionView
	Breaks       []agendarepo.Session
	Lunch        *agendarepo.Session
	Sponsors     []agendarepo.Sponsor
	Now          time.Time
}

// BuildPlan computes the full proactive catalogue for one attendee at
// check-in. Triggers whose anchor already passed are omitted; a late
// check-in still gets the welcome and everything that remains. Dedupe
// keys are deterministic, so recomputing the plan for a duplicate
// check-in produces rows the insert will skip.
func BuildPlan(in PlanInput) []messaging.ScheduledMessage {
	var plan []messaging.ScheduledMessage

	add := func(trigger messaging.TriggerType, itemID uuid.UUID, at time.Time, body string, payload any) {
		if trigger != messaging.TriggerWelcome && !at.After(in.Now) {
			return
		}
		var data json.RawMessage
		if payload != nil {
			data, _ = json.Marshal(payload)
		}
		var agendaItem *uuid.UUID
		if itemID != uuid.Nil {
			id := itemID
			agendaItem = &id
		}
		plan = append(plan, messaging.ScheduledMessage{
			ContractorID:        in.ContractorID,
			EventID:             in.EventID,
			MessageType:         string(trigger),
			Direction:           messaging.DirectionOutbound,
			Status:              messaging.StatusPending,
			ScheduledTime:       at,
			AgendaItemID:        agendaItem,
			DedupeKey:           messaging.DedupeKey(in.ContractorID, in.EventID, trigger, itemID),
			Body:                body,
			PersonalizationData: data,
		})
	}

	add(messaging.TriggerWelcome, uuid.Nil, in.Now,
		fmt.Sprintf("Welcome to %s, %s! Reply with a session number anytime for details, or ask me anything.",
			in.Event.Name, in.FirstName),
		map[string]string{"firstName": in.FirstName, "eventName": in.Event.Name})

	for _, s := range in.Recommended {
		add(messaging.TriggerSpeakerAlert, s.ID, s.StartsAt.Add(-speakerAlertLead),
			speakerAlertBody(s), sessionPayload(s))

		add(messaging.TriggerPcrRequest, s.ID, s.EndsAt.Add(pcrRequestDelay),
			fmt.Sprintf("How valuable was \"%s\"? Reply 0-10.", s.Title),
			sessionPayload(s))
	}

	if len(in.Sponsors) > 0 {
		sponsorList := sponsorPayload(in.Sponsors)
		for _, br := range in.Breaks {
			add(messaging.TriggerSponsorRecommendation, br.ID, br.EndsAt.Add(sponsorRecDelay),
				sponsorRecBody(in.Sponsors), sponsorList)
		}

		add(messaging.TriggerSponsorBatchCheck, uuid.Nil, in.Event.EndsAt,
			"Before you head out: which sponsors did you get to visit? Reply with a number, or NO if none.",
			sponsorList)
	}

	if in.Lunch != nil {
		add(messaging.TriggerPeerIntroduction, in.Lunch.ID, in.Lunch.EndsAt.Add(peerIntroDelay),
			fmt.Sprintf("%s, want an intro to another contractor here today? Reply YES and we'll connect you.", in.FirstName),
			map[string]string{"firstName": in.FirstName})
	}

	add(messaging.TriggerEventWrapup, uuid.Nil, in.Event.EndsAt.Add(wrapupDelay),
		fmt.Sprintf("Thanks for joining %s! How was the day overall? Reply 0-10. We'll text your session recap shortly.", in.Event.Name),
		map[string]string{"eventName": in.Event.Name})

	return plan
}

func sessionPayload(s agendasvc.SessionView) messaging.ListPayload {
	item := messaging.ListItem{ID: s.ID, Label: s.Title}
	if s.SpeakerName != nil {
		item.Detail = *s.SpeakerName
		if s.SpeakerCompany != nil {
			item.Detail += " (" + *s.SpeakerCompany + ")"
		}
	}
	return messaging.ListPayload{Items: []messaging.ListItem{item}}
}

func sponsorPayload(sponsors []agendarepo.Sponsor) messaging.ListPayload {
	items := make([]messaging.ListItem, 0, len(sponsors))
	for _, sp := range sponsors {
		detail := "booth " + sp.Booth
		if sp.Pitch != nil {
			detail += ": " + *sp.Pitch
		}
		items = append(items, messaging.ListItem{ID: sp.ID, Label: sp.Name, Detail: detail})
	}
	return messaging.ListPayload{Items: items}
}

func speakerAlertBody(s agendasvc.SessionView) string {
	when := s.StartsAt.Format("15:04")
	if s.SpeakerName != nil {
		return fmt.Sprintf("Starting at %s: \"%s\" with %s. Reply 1 for details.", when, s.Title, *s.SpeakerName)
	}
	return fmt.Sprintf("Starting at %s: \"%s\". Reply 1 for details.", when, s.Title)
}

func sponsorRecBody(sponsors []agendarepo.Sponsor) string {
	if len(sponsors) == 1 {
		return fmt.Sprintf("Break time! Worth a visit: %s (booth %s). Reply 1 for talking points.",
			sponsors[0].Name, sponsors[0].Booth)
	}
	body := "Break time! Sponsors worth a visit:"
	for i, sp := range sponsors {
		body += fmt.Sprintf(" %d) %s, booth %s.", i+1, sp.Name, sp.Booth)
	}
	return body + " Reply with a number for talking points."
}
