package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	agendarepo "event_messaging_backend/internal/agenda/repository"
	agendasvc "event_messaging_backend/internal/agenda/service"
	attendeesrepo "event_messaging_backend/internal/attendees/repository"
	"event_messaging_backend/internal/conversation"
	convosvc "event_messaging_backend/internal/conversation/service"
	"event_messaging_backend/internal/dispatch/classify"
	"event_messaging_backend/internal/events"
	"event_messaging_backend/internal/messaging"
	outboundsvc "event_messaging_backend/internal/outbound/service"
	pcrrepo "event_messaging_backend/internal/pcr/repository"
	"event_messaging_backend/internal/pcr/score"
	"event_messaging_backend/platform/apperr"
	"event_messaging_backend/platform/lanes"
	"event_messaging_backend/platform/logger"
)

type stubStore struct {
	outstanding []classify.Outstanding
	responded   []uuid.UUID
	recorded    []classify.MessageType
}

func (s *stubStore) Outstanding(ctx context.Context, contractorID, eventID uuid.UUID) ([]classify.Outstanding, error) {
	return s.outstanding, nil
}

func (s *stubStore) MarkResponded(ctx context.Context, messageID uuid.UUID, at time.Time) error {
	s.responded = append(s.responded, messageID)
	return nil
}

func (s *stubStore) RecordInbound(ctx context.Context, contractorID, eventID uuid.UUID, messageType classify.MessageType, body string, personalization json.RawMessage, arrivedAt time.Time) (uuid.UUID, error) {
	s.recorded = append(s.recorded, messageType)
	return uuid.New(), nil
}

type stubDirectory struct {
	attendee  attendeesrepo.Attendee
	lookupErr error
	admin     bool
	lookups   []string
	checkedIn []attendeesrepo.Attendee
}

func (d *stubDirectory) GetByPhone(ctx context.Context, rawPhone string, eventID uuid.UUID) (attendeesrepo.Attendee, error) {
	d.lookups = append(d.lookups, rawPhone)
	if d.lookupErr != nil {
		return attendeesrepo.Attendee{}, d.lookupErr
	}
	return d.attendee, nil
}

func (d *stubDirectory) IsAdminPhone(ctx context.Context, rawPhone string) (bool, error) {
	return d.admin, nil
}

func (d *stubDirectory) CheckIn(ctx context.Context, contractorID, eventID uuid.UUID) (attendeesrepo.Attendee, int, error) {
	return d.attendee, 3, nil
}

func (d *stubDirectory) ListCheckedIn(ctx context.Context, eventID uuid.UUID) ([]attendeesrepo.Attendee, error) {
	return d.checkedIn, nil
}

type stubConversations struct {
	res      *convosvc.Resolution
	advanced int
}

func (c *stubConversations) Advance(ctx context.Context, contractorID uuid.UUID, signal conversation.Signal) (*convosvc.Resolution, error) {
	c.advanced++
	return c.res, nil
}

type stubAgenda struct {
	event agendarepo.Event
}

func (a *stubAgenda) GetEvent(ctx context.Context, eventID uuid.UUID) (agendarepo.Event, error) {
	return a.event, nil
}

func (a *stubAgenda) GetSessionByID(ctx context.Context, id uuid.UUID) (agendasvc.SessionView, error) {
	return agendasvc.SessionView{}, apperr.NotFound("session not found")
}

func (a *stubAgenda) Sponsors(ctx context.Context, eventID uuid.UUID) ([]agendarepo.Sponsor, error) {
	return nil, nil
}

type stubScheduler struct {
	pending int
}

func (s *stubScheduler) TriggerFamily(ctx context.Context, eventID uuid.UUID, contractorID *uuid.UUID, trigger messaging.TriggerType) (outboundsvc.TriggerResult, error) {
	return outboundsvc.TriggerResult{}, nil
}

func (s *stubScheduler) DelayEvent(ctx context.Context, eventID uuid.UUID, offset time.Duration) (int, error) {
	return 0, nil
}

func (s *stubScheduler) EndEvent(ctx context.Context, eventID uuid.UUID, early bool) (int, error) {
	return 0, nil
}

func (s *stubScheduler) PendingCount(ctx context.Context, eventID uuid.UUID) (int, error) {
	return s.pending, nil
}

type stubRecorder struct {
	entries []pcrrepo.Entry
	boom    bool
}

func (r *stubRecorder) Record(ctx context.Context, entry pcrrepo.Entry) (score.Aggregate, error) {
	if r.boom {
		panic("ledger unavailable")
	}
	r.entries = append(r.entries, entry)
	return score.Aggregate{SampleSize: 1, Mean: entry.Score}, nil
}

type stubAnswerer struct {
	reply string
}

func (a *stubAnswerer) Answer(ctx context.Context, contractorID uuid.UUID, question string, event *agendarepo.Event) (string, error) {
	return a.reply, nil
}

type stubTagger struct {
	contactID string
	tags      []string
}

func (t *stubTagger) ApplyTags(ctx context.Context, contactID string, tags []string) {
	t.contactID = contactID
	t.tags = tags
}

// pipeline wires the dispatcher against stub collaborators with a real
// lane service, classifier, and event bus.
type pipeline struct {
	store     *stubStore
	directory *stubDirectory
	convo     *stubConversations
	agenda    *stubAgenda
	scheduler *stubScheduler
	recorder  *stubRecorder
	answerer  *stubAnswerer
	tagger    *stubTagger
	svc       *Service
}

func newPipeline(event agendarepo.Event, live bool) *pipeline {
	p := &pipeline{
		store:     &stubStore{},
		directory: &stubDirectory{attendee: attendeesrepo.Attendee{ContractorID: uuid.New(), EventID: event.ID, Phone: "+12025550143", FirstName: "Dana"}},
		convo:     &stubConversations{res: &convosvc.Resolution{Mode: conversation.ModeEventAgent}},
		agenda:    &stubAgenda{event: event},
		scheduler: &stubScheduler{},
		recorder:  &stubRecorder{},
		answerer:  &stubAnswerer{reply: "The afterparty starts at nine."},
		tagger:    &stubTagger{},
	}
	if live {
		p.convo.res.ActiveEventID = &event.ID
		p.convo.res.ActiveEvent = &p.agenda.event
	}
	p.svc = New(p.store, p.directory, p.convo, p.agenda, p.scheduler, p.recorder, p.answerer, p.tagger,
		lanes.New(), events.NewInMemoryBus(nil), logger.New("development"))
	return p
}

func liveEvent() agendarepo.Event {
	return agendarepo.Event{
		ID:       uuid.New(),
		Name:     "Builders Summit",
		StartsAt: time.Now().Add(-2 * time.Hour),
		EndsAt:   time.Now().Add(4 * time.Hour),
	}
}

func inbound(event agendarepo.Event, body string) InboundMessage {
	return InboundMessage{
		Phone:        "+12025550143",
		Body:         body,
		CRMContactID: "crm-contact-1",
		EventID:      event.ID,
		ArrivedAt:    time.Now(),
	}
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func TestHandleInboundScoresSessionRating(t *testing.T) {
	event := liveEvent()
	p := newPipeline(event, true)

	sessionID := uuid.New()
	messageID := uuid.New()
	p.store.outstanding = []classify.Outstanding{{
		MessageID:    messageID,
		Trigger:      messaging.TriggerPcrRequest,
		SentAt:       time.Now().Add(-30 * time.Minute),
		AgendaItemID: &sessionID,
	}}

	msg := inbound(event, "8")
	msg.Phone = "(202) 555-0143"
	outcome, err := p.svc.HandleInbound(context.Background(), msg)
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if outcome.Type != classify.TypePcrResponse {
		t.Fatalf("outcome type = %s, want pcr_response", outcome.Type)
	}
	if outcome.Reply != "Love to hear it, thanks for rating!" {
		t.Fatalf("unexpected reply: %q", outcome.Reply)
	}

	if len(p.directory.lookups) != 1 || p.directory.lookups[0] != "+12025550143" {
		t.Fatalf("sender lookup got %v, want one normalized lookup", p.directory.lookups)
	}
	if len(p.recorder.entries) != 1 {
		t.Fatalf("recorded %d score entries, want 1", len(p.recorder.entries))
	}
	entry := p.recorder.entries[0]
	if entry.SubjectType != score.SubjectSession || entry.SubjectID != sessionID {
		t.Fatalf("scored subject %s/%s, want session %s", entry.SubjectType, entry.SubjectID, sessionID)
	}
	if entry.Score != 8 || entry.SourceType != "pcr_request" {
		t.Fatalf("entry = %.0f from %q, want 8 from pcr_request", entry.Score, entry.SourceType)
	}
	if len(p.store.responded) != 1 || p.store.responded[0] != messageID {
		t.Fatalf("responded = %v, want %s settled", p.store.responded, messageID)
	}
	if len(p.store.recorded) != 1 || p.store.recorded[0] != classify.TypePcrResponse {
		t.Fatalf("inbound audit = %v, want one pcr_response row", p.store.recorded)
	}
	if p.tagger.contactID != "crm-contact-1" || !hasTag(p.tagger.tags, "feedback-given") || !hasTag(p.tagger.tags, "stage-live") {
		t.Fatalf("tags for %q = %v, want feedback-given and stage-live", p.tagger.contactID, p.tagger.tags)
	}
}

func TestHandleInboundRejectsInvalidPhone(t *testing.T) {
	event := liveEvent()
	p := newPipeline(event, true)

	_, err := p.svc.HandleInbound(context.Background(), inbound(event, "hello"))
	if err != nil {
		t.Fatalf("valid phone rejected: %v", err)
	}

	msg := inbound(event, "hello")
	msg.Phone = "12"
	_, err = p.svc.HandleInbound(context.Background(), msg)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
	if len(p.directory.lookups) != 1 {
		t.Fatalf("lookups = %v, invalid phone must not reach the directory", p.directory.lookups)
	}
}

func TestHandleInboundUnknownSenderHasNoSideEffects(t *testing.T) {
	event := liveEvent()
	p := newPipeline(event, true)
	p.directory.lookupErr = apperr.NotFound("no attendee matches that phone")

	_, err := p.svc.HandleInbound(context.Background(), inbound(event, "check in"))
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindNotFound {
		t.Fatalf("err = %v, want not-found", err)
	}
	if p.convo.advanced != 0 {
		t.Fatalf("conversation advanced %d times for an unknown sender", p.convo.advanced)
	}
	if len(p.store.recorded) != 0 {
		t.Fatalf("audit rows = %v, want none", p.store.recorded)
	}
}

func TestHandleInboundBareAdminStatus(t *testing.T) {
	event := liveEvent()
	p := newPipeline(event, true)
	p.directory.admin = true
	p.directory.checkedIn = []attendeesrepo.Attendee{{ContractorID: uuid.New()}, {ContractorID: uuid.New()}}
	p.scheduler.pending = 5

	outcome, err := p.svc.HandleInbound(context.Background(), inbound(event, "STATUS"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if outcome.Type != classify.TypeAdminCommand {
		t.Fatalf("outcome type = %s, want admin_command", outcome.Type)
	}
	if outcome.Reply != "2 checked in, 5 messages pending." {
		t.Fatalf("unexpected status reply: %q", outcome.Reply)
	}
}

func TestHandleInboundAdminHelp(t *testing.T) {
	event := liveEvent()
	p := newPipeline(event, true)
	p.directory.admin = true

	outcome, err := p.svc.HandleInbound(context.Background(), inbound(event, "HELP"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if outcome.Reply != adminHelp {
		t.Fatalf("reply = %q, want the command summary", outcome.Reply)
	}
}

func TestHandleInboundRejectsUnverifiedAdminSender(t *testing.T) {
	event := liveEvent()
	p := newPipeline(event, true)

	outcome, err := p.svc.HandleInbound(context.Background(), inbound(event, "admin status"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if outcome.Type != classify.TypeAdminCommand {
		t.Fatalf("outcome type = %s, want admin_command", outcome.Type)
	}
	if outcome.Reply != "This number isn't authorized for admin commands." {
		t.Fatalf("unexpected reply: %q", outcome.Reply)
	}
}

func TestHandleInboundTagsPostEventStage(t *testing.T) {
	event := liveEvent()
	event.StartsAt = time.Now().Add(-6 * time.Hour)
	event.EndsAt = time.Now().Add(-1 * time.Hour)
	p := newPipeline(event, false)

	outcome, err := p.svc.HandleInbound(context.Background(), inbound(event, "when do the slides go out?"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if outcome.Type != classify.TypeGeneralQuestion {
		t.Fatalf("outcome type = %s, want general_question", outcome.Type)
	}
	if !hasTag(p.tagger.tags, "stage-post_event") {
		t.Fatalf("tags = %v, want stage-post_event for an ended event", p.tagger.tags)
	}
}

func TestHandleInboundPanicDegradesToApology(t *testing.T) {
	event := liveEvent()
	p := newPipeline(event, true)
	p.recorder.boom = true

	messageID := uuid.New()
	sessionID := uuid.New()
	p.store.outstanding = []classify.Outstanding{{
		MessageID:    messageID,
		Trigger:      messaging.TriggerPcrRequest,
		SentAt:       time.Now().Add(-10 * time.Minute),
		AgendaItemID: &sessionID,
	}}

	outcome, err := p.svc.HandleInbound(context.Background(), inbound(event, "9"))
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if outcome.Type != classify.TypeErrorHandler {
		t.Fatalf("outcome type = %s, want error_handler", outcome.Type)
	}
	if len(p.store.responded) != 0 {
		t.Fatalf("responded = %v, a failed handler must leave the prompt outstanding", p.store.responded)
	}
	if len(p.store.recorded) != 1 || p.store.recorded[0] != classify.TypeErrorHandler {
		t.Fatalf("audit rows = %v, want one error_handler row", p.store.recorded)
	}
}
