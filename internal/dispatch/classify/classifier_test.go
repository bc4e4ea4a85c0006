package classify

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"event_messaging_backend/internal/messaging"
)

func outstanding(trigger messaging.TriggerType) Outstanding {
	return Outstanding{
		MessageID: uuid.New(),
		Trigger:   trigger,
		SentAt:    time.Now().Add(-2 * time.Minute),
	}
}

func TestBareDigitResolvesSolePendingPcr(t *testing.T) {
	pcr := outstanding(messaging.TriggerPcrRequest)
	got := Classify(Input{Text: "8", Outstanding: []Outstanding{pcr}})

	if got.Type != TypePcrResponse {
		t.Fatalf("type = %s, want pcr_response", got.Type)
	}
	if got.Resolved == nil || got.Resolved.MessageID != pcr.MessageID {
		t.Fatalf("digit did not resolve to the pending PCR request")
	}
	if got.Rating == nil || *got.Rating != 8 {
		t.Fatalf("rating = %v, want 8", got.Rating)
	}
}

func TestBareDigitResolvesSoleSpeakerList(t *testing.T) {
	alert := outstanding(messaging.TriggerSpeakerAlert)
	got := Classify(Input{Text: "2", Outstanding: []Outstanding{alert}})

	if got.Type != TypeSpeakerDetails {
		t.Fatalf("type = %s, want speaker_details", got.Type)
	}
	if got.Ordinal == nil || *got.Ordinal != 2 {
		t.Fatalf("ordinal = %v, want 2", got.Ordinal)
	}
}

func TestBareDigitWithCompetingCandidatesAsksForClarification(t *testing.T) {
	// A pending PCR request and a just-sent speaker list both accept a
	// bare digit. No precedence order is applied; the contractor is
	// asked which they meant.
	items := []Outstanding{
		outstanding(messaging.TriggerPcrRequest),
		outstanding(messaging.TriggerSpeakerAlert),
	}
	got := Classify(Input{Text: "3", Outstanding: items})

	if got.Type != TypeClarificationNeeded {
		t.Fatalf("type = %s, want clarification_needed", got.Type)
	}
	if !errors.Is(got.Ambiguity, ErrAmbiguousReply) {
		t.Fatalf("ambiguity = %v, want ErrAmbiguousReply", got.Ambiguity)
	}
	if got.Resolved != nil {
		t.Fatalf("ambiguous reply must not resolve to any item")
	}
}

func TestBareDigitWithNoContextIsRatingLike(t *testing.T) {
	got := Classify(Input{Text: "5"})
	if got.Type != TypePcrResponse {
		t.Fatalf("type = %s, want pcr_response", got.Type)
	}
	if got.Resolved != nil {
		t.Fatalf("nothing outstanding, nothing should resolve")
	}
}

func TestYesResolvesPendingPeerIntroduction(t *testing.T) {
	intro := outstanding(messaging.TriggerPeerIntroduction)
	got := Classify(Input{Text: "yes", Outstanding: []Outstanding{intro}})

	if got.Type != TypePeerMatchAcceptance {
		t.Fatalf("type = %s, want peer_match_acceptance", got.Type)
	}
	if got.Resolved == nil || got.Resolved.MessageID != intro.MessageID {
		t.Fatalf("yes did not resolve to the pending introduction")
	}
}

func TestYesWithCompetingCandidatesAsksForClarification(t *testing.T) {
	items := []Outstanding{
		outstanding(messaging.TriggerPeerIntroduction),
		outstanding(messaging.TriggerSponsorBatchCheck),
	}
	got := Classify(Input{Text: "yes", Outstanding: items})

	if got.Type != TypeClarificationNeeded {
		t.Fatalf("type = %s, want clarification_needed", got.Type)
	}
}

func TestDetailLookupBindsToRecentList(t *testing.T) {
	rec := outstanding(messaging.TriggerSponsorRecommendation)
	got := Classify(Input{Text: "tell me about the 2nd one", Outstanding: []Outstanding{rec}})

	if got.Type != TypeSponsorDetails {
		t.Fatalf("type = %s, want sponsor_details", got.Type)
	}
	if got.Ordinal == nil || *got.Ordinal != 2 {
		t.Fatalf("ordinal = %v, want 2", got.Ordinal)
	}
}

func TestDetailLookupWithTwoListsAsksForClarification(t *testing.T) {
	items := []Outstanding{
		outstanding(messaging.TriggerSpeakerAlert),
		outstanding(messaging.TriggerSponsorRecommendation),
	}
	got := Classify(Input{Text: "tell me about the first one", Outstanding: items})

	if got.Type != TypeClarificationNeeded {
		t.Fatalf("type = %s, want clarification_needed", got.Type)
	}
}

func TestKeywordRules(t *testing.T) {
	tests := []struct {
		text string
		want MessageType
	}{
		{"I'm here, checking in", TypeEventCheckin},
		{"what are the talking points for acme", TypeSponsorTalkingPoints},
		{"my feedback on that talk", TypeSpeakerFeedback},
		{"which sponsor booths are worth visiting", TypeSponsorDetails},
		{"who is presenting after lunch", TypeSpeakerDetails},
		{"can you connect me with other roofers", TypePeerMatchingIntroduction},
		{"admin status", TypeAdminCommand},
		{"what time does parking open", TypeGeneralQuestion},
	}

	for _, tt := range tests {
		got := Classify(Input{Text: tt.text})
		if got.Type != tt.want {
			t.Fatalf("Classify(%q) = %s, want %s", tt.text, got.Type, tt.want)
		}
	}
}

func TestAdminKeywordWinsOverContext(t *testing.T) {
	// An admin command is never absorbed by pending interactions.
	items := []Outstanding{outstanding(messaging.TriggerPcrRequest)}
	got := Classify(Input{Text: "admin delay 30", Outstanding: items})
	if got.Type != TypeAdminCommand {
		t.Fatalf("type = %s, want admin_command", got.Type)
	}
}

func TestBareAdminCommandsNeedVerifiedSender(t *testing.T) {
	for _, text := range []string{"STATUS", "help", "end", "delay 15"} {
		got := Classify(Input{Text: text, FromAdmin: true})
		if got.Type != TypeAdminCommand {
			t.Fatalf("admin %q: type = %s, want admin_command", text, got.Type)
		}

		got = Classify(Input{Text: text, FromAdmin: false})
		if got.Type == TypeAdminCommand {
			t.Fatalf("non-admin %q must not classify as admin_command", text)
		}
	}
}

func TestBareAdminCommandDoesNotAbsorbDigits(t *testing.T) {
	pcr := outstanding(messaging.TriggerPcrRequest)
	got := Classify(Input{Text: "9", Outstanding: []Outstanding{pcr}, FromAdmin: true})
	if got.Type != TypePcrResponse {
		t.Fatalf("type = %s, want pcr_response", got.Type)
	}
}
