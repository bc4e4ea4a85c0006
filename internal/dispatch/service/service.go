package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
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
	"event_messaging_backend/internal/tagging"
	"event_messaging_backend/platform/apperr"
	"event_messaging_backend/platform/lanes"
	"event_messaging_backend/platform/logger"
	"event_messaging_backend/platform/phone"
	"event_messaging_backend/platform/sanitize"
)

const lowScoreThreshold = 6

// InboundMessage is one webhook-delivered SMS from an attendee.
type InboundMessage struct {
	Phone        string
	Body         string
	CRMContactID string
	EventID      uuid.UUID
	ArrivedAt    time.Time
}

// Outcome is the dispatch result returned to the webhook caller. Reply
// is sent back over the same SMS conversation.
type Outcome struct {
	Type  classify.MessageType
	Reply string
}

// Store persists outstanding-reply state and the inbound audit trail.
// Implemented by the dispatch repository.
type Store interface {
	Outstanding(ctx context.Context, contractorID, eventID uuid.UUID) ([]classify.Outstanding, error)
	MarkResponded(ctx context.Context, messageID uuid.UUID, at time.Time) error
	RecordInbound(ctx context.Context, contractorID, eventID uuid.UUID, messageType classify.MessageType, body string, personalization json.RawMessage, arrivedAt time.Time) (uuid.UUID, error)
}

// AttendeeDirectory resolves senders and runs attendee mutations.
type AttendeeDirectory interface {
	GetByPhone(ctx context.Context, rawPhone string, eventID uuid.UUID) (attendeesrepo.Attendee, error)
	IsAdminPhone(ctx context.Context, rawPhone string) (bool, error)
	CheckIn(ctx context.Context, contractorID, eventID uuid.UUID) (attendeesrepo.Attendee, int, error)
	ListCheckedIn(ctx context.Context, eventID uuid.UUID) ([]attendeesrepo.Attendee, error)
}

// Conversations advances the contractor's conversation machine.
type Conversations interface {
	Advance(ctx context.Context, contractorID uuid.UUID, signal conversation.Signal) (*convosvc.Resolution, error)
}

// AgendaDirectory reads event, session, and sponsor data.
type AgendaDirectory interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (agendarepo.Event, error)
	GetSessionByID(ctx context.Context, id uuid.UUID) (agendasvc.SessionView, error)
	Sponsors(ctx context.Context, eventID uuid.UUID) ([]agendarepo.Sponsor, error)
}

// Scheduler is the outbound surface the peer and admin handlers drive.
type Scheduler interface {
	TriggerFamily(ctx context.Context, eventID uuid.UUID, contractorID *uuid.UUID, trigger messaging.TriggerType) (outboundsvc.TriggerResult, error)
	DelayEvent(ctx context.Context, eventID uuid.UUID, offset time.Duration) (int, error)
	EndEvent(ctx context.Context, eventID uuid.UUID, early bool) (int, error)
	PendingCount(ctx context.Context, eventID uuid.UUID) (int, error)
}

// ScoreRecorder appends PCR ledger entries.
type ScoreRecorder interface {
	Record(ctx context.Context, entry pcrrepo.Entry) (score.Aggregate, error)
}

// Answerer handles the general-question fallthrough.
type Answerer interface {
	Answer(ctx context.Context, contractorID uuid.UUID, question string, event *agendarepo.Event) (string, error)
}

// TagApplier pushes engagement tags to the CRM, fire and forget.
type TagApplier interface {
	ApplyTags(ctx context.Context, contactID string, tags []string)
}

// Service runs the inbound pipeline: one lane per contractor, so a
// burst of texts from the same person processes strictly in arrival
// order while different contractors proceed in parallel.
type Service struct {
	repo      Store
	attendees AttendeeDirectory
	convo     Conversations
	agenda    AgendaDirectory
	outbound  Scheduler
	pcr       ScoreRecorder
	concierge Answerer
	tagger    TagApplier
	lanes     *lanes.Service
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// New creates the dispatcher.
func New(
	repo Store,
	attendees AttendeeDirectory,
	convo Conversations,
	agenda AgendaDirectory,
	outbound Scheduler,
	pcr ScoreRecorder,
	concierge Answerer,
	tagger TagApplier,
	laneSvc *lanes.Service,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		attendees: attendees,
		convo:     convo,
		agenda:    agenda,
		outbound:  outbound,
		pcr:       pcr,
		concierge: concierge,
		tagger:    tagger,
		lanes:     laneSvc,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// HandleInbound validates the sender and event, then runs the message
// through the contractor's lane. Unknown senders are rejected before any
// lane work or side effect happens.
func (s *Service) HandleInbound(ctx context.Context, msg InboundMessage) (Outcome, error) {
	if !phone.Valid(msg.Phone) {
		return Outcome{}, apperr.Validation("sender phone number is not valid")
	}
	msg.Phone = phone.NormalizeE164(msg.Phone)

	attendee, err := s.attendees.GetByPhone(ctx, msg.Phone, msg.EventID)
	if err != nil {
		return Outcome{}, err
	}
	event, err := s.agenda.GetEvent(ctx, msg.EventID)
	if err != nil {
		return Outcome{}, err
	}

	value, err := s.lanes.Run(ctx, attendee.ContractorID.String(), func(laneCtx context.Context) (any, error) {
		return s.dispatch(laneCtx, attendee.ContractorID, event, msg)
	})
	if err != nil {
		return Outcome{}, err
	}
	return value.(Outcome), nil
}

// dispatch runs inside the contractor's lane.
func (s *Service) dispatch(ctx context.Context, contractorID uuid.UUID, event agendarepo.Event, msg InboundMessage) (Outcome, error) {
	started := s.now()

	res, err := s.convo.Advance(ctx, contractorID, conversation.SignalMessageReceived)
	if err != nil {
		return Outcome{}, err
	}

	outstanding, err := s.repo.Outstanding(ctx, contractorID, msg.EventID)
	if err != nil {
		return Outcome{}, err
	}

	fromAdmin, err := s.attendees.IsAdminPhone(ctx, msg.Phone)
	if err != nil {
		s.log.DatabaseError("dispatch.admin_lookup", err)
		fromAdmin = false
	}

	text := sanitize.Text(msg.Body)
	verdict := classify.Classify(classify.Input{Text: text, Outstanding: outstanding, FromAdmin: fromAdmin})

	outcome := s.handle(ctx, contractorID, msg, res, verdict, outstanding, text, fromAdmin)

	var resolvedPayload json.RawMessage
	if verdict.Resolved != nil {
		resolvedPayload = verdict.Resolved.Personalization
		if outcome.Type != classify.TypeErrorHandler {
			if err := s.repo.MarkResponded(ctx, verdict.Resolved.MessageID, msg.ArrivedAt); err != nil {
				s.log.DatabaseError("dispatch.mark_responded", err)
			}
		}
	}

	if _, err := s.repo.RecordInbound(ctx, contractorID, msg.EventID, outcome.Type, text, resolvedPayload, msg.ArrivedAt); err != nil {
		s.log.DatabaseError("dispatch.record_inbound", err)
	}

	tagged := s.applyTags(ctx, msg, res, event, outcome.Type)

	s.bus.Publish(ctx, events.MessageReceived{
		BaseEvent:    events.NewBaseEvent(),
		ContractorID: contractorID,
		EventID:      msg.EventID,
		Handler:      string(outcome.Type),
		Reply:        outcome.Reply,
	})
	s.log.MessageDispatched(contractorID.String(), string(outcome.Type),
		float64(s.now().Sub(started).Milliseconds()), tagged)

	return outcome, nil
}

// handle routes the verdict to its handler. A panic or error inside a
// handler degrades to the error handler's apology; the lane keeps
// draining and the inbound row is still recorded.
func (s *Service) handle(ctx context.Context, contractorID uuid.UUID, msg InboundMessage, res *convosvc.Resolution, verdict classify.Classification, outstanding []classify.Outstanding, text string, fromAdmin bool) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.HandlerError(contractorID.String(), string(verdict.Type), fmt.Errorf("panic: %v", r))
			out = errorOutcome()
		}
	}()

	var (
		reply string
		err   error
	)

	switch verdict.Type {
	case classify.TypeEventCheckin:
		reply, err = s.handleCheckin(ctx, contractorID, msg.EventID)
	case classify.TypeSpeakerDetails:
		reply, err = s.handleSpeakerDetails(ctx, verdict)
	case classify.TypeSpeakerFeedback:
		reply, err = s.handleSpeakerFeedback(ctx, contractorID, msg.EventID, verdict, text)
	case classify.TypeSponsorDetails:
		reply, err = s.handleSponsorDetails(ctx, msg.EventID, verdict, false)
	case classify.TypeSponsorTalkingPoints:
		reply, err = s.handleSponsorDetails(ctx, msg.EventID, verdict, true)
	case classify.TypePeerMatchingIntroduction:
		reply, err = s.handlePeerIntroduction(ctx, contractorID, msg.EventID)
	case classify.TypePeerMatchAcceptance:
		reply, err = s.handlePeerAcceptance(ctx, contractorID, msg.EventID, verdict)
	case classify.TypePcrResponse:
		reply, err = s.handlePcrResponse(ctx, contractorID, msg.EventID, verdict)
	case classify.TypeAttendanceConfirmation:
		reply, err = s.handleAttendanceConfirmation(ctx, contractorID, msg.EventID, verdict)
	case classify.TypeAdminCommand:
		reply, err = s.handleAdminCommand(ctx, msg, text, fromAdmin)
	case classify.TypeClarificationNeeded:
		reply = clarificationReply(outstanding)
	case classify.TypeGeneralQuestion:
		reply, err = s.concierge.Answer(ctx, contractorID, text, res.ActiveEvent)
	default:
		reply, err = s.concierge.Answer(ctx, contractorID, text, res.ActiveEvent)
	}

	if err != nil {
		s.log.HandlerError(contractorID.String(), string(verdict.Type), err)
		return errorOutcome()
	}
	return Outcome{Type: verdict.Type, Reply: reply}
}

func errorOutcome() Outcome {
	return Outcome{
		Type:  classify.TypeErrorHandler,
		Reply: "Sorry, something went wrong on our end. Give it another try in a minute.",
	}
}

func (s *Service) handleCheckin(ctx context.Context, contractorID, eventID uuid.UUID) (string, error) {
	attendee, scheduled, err := s.attendees.CheckIn(ctx, contractorID, eventID)
	if err != nil {
		return "", err
	}
	if scheduled == 0 {
		return fmt.Sprintf("You're already checked in, %s. Enjoy the event!", attendee.FirstName), nil
	}
	event, err := s.agenda.GetEvent(ctx, eventID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("You're checked in to %s, %s! We'll text you before the sessions we picked for you.",
		event.Name, attendee.FirstName), nil
}

func (s *Service) handleSpeakerDetails(ctx context.Context, verdict classify.Classification) (string, error) {
	item, prompt := pickListItem(verdict)
	if prompt != "" {
		return prompt, nil
	}
	session, err := s.agenda.GetSessionByID(ctx, item.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\"%s\" at %s.", session.Title, session.StartsAt.Format("15:04"))
	if session.SpeakerName != nil {
		fmt.Fprintf(&b, " Speaker: %s", *session.SpeakerName)
		if session.SpeakerCompany != nil {
			fmt.Fprintf(&b, " (%s)", *session.SpeakerCompany)
		}
		b.WriteString(".")
	}
	if session.Synopsis != nil && *session.Synopsis != "" {
		b.WriteString(" " + *session.Synopsis)
	}
	if len(session.Takeaways) > 0 {
		b.WriteString(" Key takeaway: " + session.Takeaways[0])
	}
	return b.String(), nil
}

func (s *Service) handleSponsorDetails(ctx context.Context, eventID uuid.UUID, verdict classify.Classification, talkingPoints bool) (string, error) {
	item, prompt := pickListItem(verdict)
	if prompt != "" {
		return prompt, nil
	}
	sponsor, err := s.findSponsor(ctx, eventID, item.ID)
	if err != nil {
		return "", err
	}

	if talkingPoints && len(sponsor.TalkingPoints) > 0 {
		return fmt.Sprintf("When you stop by %s (booth %s), try: %s",
			sponsor.Name, sponsor.Booth, strings.Join(sponsor.TalkingPoints, " / ")), nil
	}
	reply := fmt.Sprintf("%s is at booth %s.", sponsor.Name, sponsor.Booth)
	if sponsor.Pitch != nil {
		reply += " " + *sponsor.Pitch
	}
	if len(sponsor.TalkingPoints) > 0 {
		reply += " Reply TALKING POINTS for conversation starters."
	}
	return reply, nil
}

func (s *Service) handlePeerIntroduction(ctx context.Context, contractorID, eventID uuid.UUID) (string, error) {
	result, err := s.outbound.TriggerFamily(ctx, eventID, &contractorID, messaging.TriggerPeerIntroduction)
	if err != nil {
		return "", err
	}
	if result.Scheduled == 0 {
		return "We already have an introduction in flight for you. Watch your texts!", nil
	}
	return "On it! We're lining up a contractor for you to meet and will text you both.", nil
}

func (s *Service) handlePeerAcceptance(ctx context.Context, contractorID, eventID uuid.UUID, verdict classify.Classification) (string, error) {
	if verdict.Affirmed == nil || !*verdict.Affirmed {
		return "No problem, we'll skip the introduction. Enjoy the rest of the event!", nil
	}
	return "Great! We'll text you and your match a joint introduction shortly.", nil
}

func (s *Service) handleSpeakerFeedback(ctx context.Context, contractorID, eventID uuid.UUID, verdict classify.Classification, text string) (string, error) {
	rating := verdict.Rating
	if rating == nil {
		rating = extractRating(text)
	}
	if rating == nil {
		return "Thanks for the feedback! If you want it counted, reply with a 0-10 score too.", nil
	}

	subjectType := score.SubjectEvent
	subjectID := eventID
	if verdict.Resolved != nil && verdict.Resolved.AgendaItemID != nil {
		subjectType = score.SubjectSession
		subjectID = *verdict.Resolved.AgendaItemID
	}

	_, err := s.pcr.Record(ctx, pcrrepo.Entry{
		SubjectType:  subjectType,
		SubjectID:    subjectID,
		ContractorID: contractorID,
		EventID:      eventID,
		Score:        float64(*rating),
		SourceType:   "speaker_feedback",
	})
	if err != nil {
		return "", err
	}
	return "Thanks, your feedback is in!", nil
}

func (s *Service) handlePcrResponse(ctx context.Context, contractorID, eventID uuid.UUID, verdict classify.Classification) (string, error) {
	if verdict.Rating == nil {
		return "Just reply with a number from 0 to 10.", nil
	}

	subjectType := score.SubjectEvent
	subjectID := eventID
	sourceType := "event_wrapup"
	if verdict.Resolved != nil && verdict.Resolved.Trigger == messaging.TriggerPcrRequest && verdict.Resolved.AgendaItemID != nil {
		subjectType = score.SubjectSession
		subjectID = *verdict.Resolved.AgendaItemID
		sourceType = "pcr_request"
	}

	_, err := s.pcr.Record(ctx, pcrrepo.Entry{
		SubjectType:  subjectType,
		SubjectID:    subjectID,
		ContractorID: contractorID,
		EventID:      eventID,
		Score:        float64(*verdict.Rating),
		SourceType:   sourceType,
	})
	if err != nil {
		return "", err
	}

	if *verdict.Rating <= lowScoreThreshold {
		return "Thanks for being honest. What would have made it more valuable for you?", nil
	}
	return "Love to hear it, thanks for rating!", nil
}

// handleAttendanceConfirmation settles the sponsor batch check. A YES
// scores every sponsor on the sent list; a NO records nothing.
func (s *Service) handleAttendanceConfirmation(ctx context.Context, contractorID, eventID uuid.UUID, verdict classify.Classification) (string, error) {
	if verdict.Affirmed == nil || !*verdict.Affirmed {
		return "All good. Thanks for letting us know!", nil
	}

	var payload messaging.ListPayload
	if verdict.Resolved != nil && len(verdict.Resolved.Personalization) > 0 {
		if err := json.Unmarshal(verdict.Resolved.Personalization, &payload); err != nil {
			return "", err
		}
	}
	for _, item := range payload.Items {
		_, err := s.pcr.Record(ctx, pcrrepo.Entry{
			SubjectType:  score.SubjectSponsor,
			SubjectID:    item.ID,
			ContractorID: contractorID,
			EventID:      eventID,
			Score:        10,
			SourceType:   "attendance_confirmation",
		})
		if err != nil {
			return "", err
		}
	}
	return "Glad you made the rounds! The sponsors appreciate the visit.", nil
}

const adminHelp = "Admin commands: STATUS, DELAY <minutes>, END, HELP."

// handleAdminCommand gates on the phone allowlist first; a non-admin
// sender gets an explicit rejection, never a silent fallthrough. Both
// the prefixed form ("admin status") and the bare form ("STATUS", admin
// senders only) land here.
func (s *Service) handleAdminCommand(ctx context.Context, msg InboundMessage, text string, fromAdmin bool) (string, error) {
	if !fromAdmin {
		return "This number isn't authorized for admin commands.", nil
	}

	fields := strings.Fields(strings.ToLower(text))
	if len(fields) > 0 && fields[0] == "admin" {
		fields = fields[1:]
	}
	command := ""
	if len(fields) > 0 {
		command = fields[0]
	}

	switch command {
	case "status":
		return s.adminStatus(ctx, msg.EventID)
	case "delay":
		if len(fields) < 2 {
			return "Usage: DELAY <minutes>", nil
		}
		minutes, err := strconv.Atoi(fields[1])
		if err != nil || minutes <= 0 {
			return "Usage: DELAY <minutes>", nil
		}
		shifted, err := s.outbound.DelayEvent(ctx, msg.EventID, time.Duration(minutes)*time.Minute)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Event delayed %d minutes. Re-timed %d pending messages.", minutes, shifted), nil
	case "end":
		cancelled, err := s.outbound.EndEvent(ctx, msg.EventID, true)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Event ended early. Cancelled %d pending messages; sponsor check and wrap-up are on their way.", cancelled), nil
	case "help":
		return adminHelp, nil
	default:
		return adminHelp, nil
	}
}

func (s *Service) adminStatus(ctx context.Context, eventID uuid.UUID) (string, error) {
	attendees, err := s.attendees.ListCheckedIn(ctx, eventID)
	if err != nil {
		return "", err
	}
	pending, err := s.outbound.PendingCount(ctx, eventID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d checked in, %d messages pending.", len(attendees), pending), nil
}

func (s *Service) findSponsor(ctx context.Context, eventID, sponsorID uuid.UUID) (agendarepo.Sponsor, error) {
	sponsors, err := s.agenda.Sponsors(ctx, eventID)
	if err != nil {
		return agendarepo.Sponsor{}, err
	}
	for _, sp := range sponsors {
		if sp.ID == sponsorID {
			return sp, nil
		}
	}
	return agendarepo.Sponsor{}, apperr.NotFound("sponsor is not on this event's list")
}

// pickListItem resolves which item of a sent list the reply refers to.
// A non-empty prompt means the reply could not be pinned down and the
// prompt should be sent back instead.
func pickListItem(verdict classify.Classification) (messaging.ListItem, string) {
	if verdict.Resolved == nil || len(verdict.Resolved.Personalization) == 0 {
		return messaging.ListItem{}, "Which one do you mean? Reply with the number from the list we sent."
	}
	var payload messaging.ListPayload
	if err := json.Unmarshal(verdict.Resolved.Personalization, &payload); err != nil || len(payload.Items) == 0 {
		return messaging.ListItem{}, "Which one do you mean? Reply with the number from the list we sent."
	}

	idx := 0
	if verdict.Ordinal != nil {
		idx = *verdict.Ordinal - 1
	}
	if idx < 0 || idx >= len(payload.Items) {
		return messaging.ListItem{}, fmt.Sprintf("That list has %d options. Reply with a number from 1 to %d.",
			len(payload.Items), len(payload.Items))
	}
	return payload.Items[idx], ""
}

func clarificationReply(outstanding []classify.Outstanding) string {
	labels := make([]string, 0, len(outstanding))
	for _, o := range outstanding {
		labels = append(labels, pendingLabel(o.Trigger))
	}
	if len(labels) == 0 {
		return "I wasn't sure what that answers. Can you say a bit more?"
	}
	return "Quick check: is that about " + strings.Join(labels, " or ") + "? Reply with one of those words."
}

func pendingLabel(trigger messaging.TriggerType) string {
	switch trigger {
	case messaging.TriggerPcrRequest:
		return "the session rating"
	case messaging.TriggerEventWrapup:
		return "the event rating"
	case messaging.TriggerSpeakerAlert:
		return "the session we flagged"
	case messaging.TriggerSponsorRecommendation, messaging.TriggerSponsorBatchCheck:
		return "the sponsors"
	case messaging.TriggerPeerIntroduction:
		return "the introduction"
	default:
		return "our last message"
	}
}

func extractRating(text string) *int {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '/' || r == '\t'
	})
	for _, f := range fields {
		n, err := strconv.Atoi(strings.Trim(f, ".,!"))
		if err == nil && n >= 0 && n <= 10 {
			return &n
		}
	}
	return nil
}

func (s *Service) applyTags(ctx context.Context, msg InboundMessage, res *convosvc.Resolution, event agendarepo.Event, msgType classify.MessageType) int {
	if s.tagger == nil || msg.CRMContactID == "" {
		return 0
	}
	// The routing guard only reports a live event, so the post-event
	// stage comes from the event row's own window.
	stage := tagging.StageFor(res.ActiveEvent != nil, event.EndsAt.Before(s.now()))
	tags := tagging.Tags(string(msgType), msg.EventID, stage)
	s.tagger.ApplyTags(ctx, msg.CRMContactID, tags)
	return len(tags)
}
