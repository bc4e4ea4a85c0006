// Package concierge answers general questions that no specific handler
// claimed. It runs an ADK agent on the Kimi model with one of two
// knowledge contexts: the standard business context, or the event-aware
// context with the live agenda injected. Without an API key it degrades
// to a canned reply so the dispatcher can always answer.
package concierge

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/google/uuid"

	agendarepo "event_messaging_backend/internal/agenda/repository"
	agendasvc "event_messaging_backend/internal/agenda/service"
	"event_messaging_backend/platform/ai/moonshot"
	"event_messaging_backend/platform/config"
	"event_messaging_backend/platform/logger"
)

const appName = "event_concierge"

const fallbackReply = "Thanks for reaching out! Our team will get back to you shortly. " +
	"Reply with a session number for details, or text HELP for options."

const systemPrompt = `You are a concise SMS concierge for contractor business events.
Answer in at most three short sentences suitable for a text message.
When event context is provided, ground every answer in it and do not invent
sessions, speakers, or times. Without event context, answer general home
services business questions. If you do not know, say so and suggest texting
a session number for details.`

// Agent is the general-question fallthrough. A nil or keyless Agent is
// valid and always answers with the canned reply.
type Agent struct {
	runner         *runner.Runner
	sessionService session.Service
	agenda         *agendasvc.Service
	log            *logger.Logger
}

func New(cfg config.ConciergeConfig, agenda *agendasvc.Service, log *logger.Logger) (*Agent, error) {
	a := &Agent{agenda: agenda, log: log}
	if cfg.GetMoonshotAPIKey() == "" {
		log.Info("concierge running without model, canned replies only")
		return a, nil
	}

	kimi := moonshot.NewModel(moonshot.Config{APIKey: cfg.GetMoonshotAPIKey()})

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "EventConcierge",
		Model:       kimi,
		Description: "SMS concierge answering contractor questions during live business events.",
		Instruction: systemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create concierge agent: %w", err)
	}

	sessionService := session.InMemoryService()

	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create concierge runner: %w", err)
	}

	a.runner = r
	a.sessionService = sessionService
	return a, nil
}

// Answer responds to one question. A non-nil event selects the
// event-aware context; model failures fall back to the canned reply so
// the contractor always receives something.
func (a *Agent) Answer(ctx context.Context, contractorID uuid.UUID, question string, event *agendarepo.Event) (string, error) {
	if a == nil || a.runner == nil {
		return fallbackReply, nil
	}

	prompt, err := a.buildPrompt(ctx, question, event)
	if err != nil {
		a.log.Error("concierge context build failed", "error", err.Error())
		prompt = question
	}

	userID := "concierge-" + contractorID.String()
	sessionID := uuid.New().String()

	if _, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		a.log.Error("concierge session create failed", "error", err.Error())
		return fallbackReply, nil
	}
	defer func() {
		if err := a.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   appName,
			UserID:    userID,
			SessionID: sessionID,
		}); err != nil {
			a.log.Warn("concierge session delete failed", "error", err.Error())
		}
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}

	var output strings.Builder
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}
	for ev, err := range a.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		if err != nil {
			a.log.Error("concierge run failed", "error", err.Error())
			return fallbackReply, nil
		}
		if ev.Content != nil {
			for _, part := range ev.Content.Parts {
				output.WriteString(part.Text)
			}
		}
	}

	reply := strings.TrimSpace(output.String())
	if reply == "" {
		return fallbackReply, nil
	}
	return reply, nil
}

// buildPrompt prepends the event-aware knowledge context when the
// contractor is inside an active event window.
func (a *Agent) buildPrompt(ctx context.Context, question string, event *agendarepo.Event) (string, error) {
	if event == nil {
		return question, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Event context:\nEvent: %s at %s (%s to %s)\n",
		event.Name, event.Location,
		event.StartsAt.Format("Mon 15:04"), event.EndsAt.Format("Mon 15:04"))

	sessions, err := a.agenda.GetEventSessions(ctx, event.ID)
	if err != nil {
		return "", err
	}
	for i, s := range sessions {
		fmt.Fprintf(&b, "%d. %s (%s-%s)",
			i+1, s.Title, s.StartsAt.Format("15:04"), s.EndsAt.Format("15:04"))
		if s.SpeakerName != nil {
			fmt.Fprintf(&b, " with %s", *s.SpeakerName)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nQuestion: %s", question)
	return b.String(), nil
}
