package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	agendarepo "event_messaging_backend/internal/agenda/repository"
	agendasvc "event_messaging_backend/internal/agenda/service"
	"event_messaging_backend/internal/messaging"
)

func strPtr(s string) *string { return &s }

func planFixture(now time.Time) PlanInput {
	eventID := uuid.New()
	speaker := "Jordan Reyes"

	session := agendarepo.Session{
		ID:          uuid.New(),
		EventID:     eventID,
		Title:       "Pricing for Profit",
		Kind:        agendarepo.KindSession,
		StartsAt:    now.Add(2 * time.Hour),
		EndsAt:      now.Add(3 * time.Hour),
		SpeakerName: &speaker,
		Synopsis:    strPtr("How to price residential jobs."),
	}

	return PlanInput{
		ContractorID: uuid.New(),
		EventID:      eventID,
		FirstName:    "Dana",
		Event: agendarepo.Event{
			ID:       eventID,
			Name:     "Contractor Growth Summit",
			Location: "Denver",
			StartsAt: now.Add(-time.Hour),
			EndsAt:   now.Add(8 * time.Hour),
		},
		Recommended: []agendasvc.SessionView{{Session: session}},
		Breaks: []agendarepo.Session{{
			ID:       uuid.New(),
			EventID:  eventID,
			Title:    "Morning Break",
			Kind:     agendarepo.KindBreak,
			StartsAt: now.Add(90 * time.Minute),
			EndsAt:   now.Add(105 * time.Minute),
		}},
		Lunch: &agendarepo.Session{
			ID:       uuid.New(),
			EventID:  eventID,
			Title:    "Lunch",
			Kind:     agendarepo.KindLunch,
			StartsAt: now.Add(4 * time.Hour),
			EndsAt:   now.Add(5 * time.Hour),
		},
		Sponsors: []agendarepo.Sponsor{{
			ID:      uuid.New(),
			EventID: eventID,
			Name:    "ToolBelt Pro",
			Booth:   "A4",
		}},
		Now: now,
	}
}

func findByType(plan []messaging.ScheduledMessage, trigger messaging.TriggerType) []messaging.ScheduledMessage {
	var out []messaging.ScheduledMessage
	for _, m := range plan {
		if m.MessageType == string(trigger) {
			out = append(out, m)
		}
	}
	return out
}

func TestBuildPlanHappyPath(t *testing.T) {
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	in := planFixture(now)
	plan := BuildPlan(in)

	welcome := findByType(plan, messaging.TriggerWelcome)
	if len(welcome) != 1 {
		t.Fatalf("welcome messages = %d, want 1", len(welcome))
	}
	if !welcome[0].ScheduledTime.Equal(now) {
		t.Fatalf("welcome scheduled at %v, want immediate", welcome[0].ScheduledTime)
	}

	alerts := findByType(plan, messaging.TriggerSpeakerAlert)
	if len(alerts) != 1 {
		t.Fatalf("speaker alerts = %d, want 1", len(alerts))
	}
	wantAlert := in.Recommended[0].StartsAt.Add(-15 * time.Minute)
	if !alerts[0].ScheduledTime.Equal(wantAlert) {
		t.Fatalf("speaker alert at %v, want %v", alerts[0].ScheduledTime, wantAlert)
	}
	if alerts[0].AgendaItemID == nil || *alerts[0].AgendaItemID != in.Recommended[0].ID {
		t.Fatalf("speaker alert not bound to its session")
	}

	pcrs := findByType(plan, messaging.TriggerPcrRequest)
	if len(pcrs) != 1 {
		t.Fatalf("pcr requests = %d, want 1", len(pcrs))
	}
	wantPcr := in.Recommended[0].EndsAt.Add(7 * time.Minute)
	if !pcrs[0].ScheduledTime.Equal(wantPcr) {
		t.Fatalf("pcr request at %v, want %v", pcrs[0].ScheduledTime, wantPcr)
	}

	sponsorRecs := findByType(plan, messaging.TriggerSponsorRecommendation)
	if len(sponsorRecs) != 1 {
		t.Fatalf("sponsor recommendations = %d, want 1", len(sponsorRecs))
	}
	wantRec := in.Breaks[0].EndsAt.Add(2 * time.Minute)
	if !sponsorRecs[0].ScheduledTime.Equal(wantRec) {
		t.Fatalf("sponsor recommendation at %v, want %v", sponsorRecs[0].ScheduledTime, wantRec)
	}

	intros := findByType(plan, messaging.TriggerPeerIntroduction)
	if len(intros) != 1 {
		t.Fatalf("peer introductions = %d, want 1", len(intros))
	}
	wantIntro := in.Lunch.EndsAt.Add(5 * time.Minute)
	if !intros[0].ScheduledTime.Equal(wantIntro) {
		t.Fatalf("peer introduction at %v, want %v", intros[0].ScheduledTime, wantIntro)
	}

	batch := findByType(plan, messaging.TriggerSponsorBatchCheck)
	if len(batch) != 1 || !batch[0].ScheduledTime.Equal(in.Event.EndsAt) {
		t.Fatalf("sponsor batch check missing or mistimed")
	}

	wrapups := findByType(plan, messaging.TriggerEventWrapup)
	if len(wrapups) != 1 {
		t.Fatalf("wrapups = %d, want 1", len(wrapups))
	}
	if !wrapups[0].ScheduledTime.Equal(in.Event.EndsAt.Add(time.Hour)) {
		t.Fatalf("wrapup at %v, want event end + 1h", wrapups[0].ScheduledTime)
	}
}

func TestBuildPlanDeterministicDedupeKeys(t *testing.T) {
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	in := planFixture(now)

	first := BuildPlan(in)
	second := BuildPlan(in)

	if len(first) != len(second) {
		t.Fatalf("plan sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].DedupeKey == "" {
			t.Fatalf("empty dedupe key at %d", i)
		}
		if first[i].DedupeKey != second[i].DedupeKey {
			t.Fatalf("dedupe key %d not deterministic: %s vs %s", i, first[i].DedupeKey, second[i].DedupeKey)
		}
	}

	seen := map[string]bool{}
	for _, m := range first {
		if seen[m.DedupeKey] {
			t.Fatalf("duplicate dedupe key %s", m.DedupeKey)
		}
		seen[m.DedupeKey] = true
	}
}

func TestBuildPlanLateCheckinSkipsPastTriggers(t *testing.T) {
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	in := planFixture(now)
	// Check in after the recommended session already started.
	in.Now = in.Recommended[0].StartsAt.Add(10 * time.Minute)

	plan := BuildPlan(in)

	if len(findByType(plan, messaging.TriggerWelcome)) != 1 {
		t.Fatalf("late check-in must still get the welcome")
	}
	if len(findByType(plan, messaging.TriggerSpeakerAlert)) != 0 {
		t.Fatalf("speaker alert in the past must not be scheduled")
	}
	if len(findByType(plan, messaging.TriggerPcrRequest)) != 1 {
		t.Fatalf("pcr request is still in the future and must be kept")
	}
}
