package service

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"event_messaging_backend/internal/dispatch/classify"
	"event_messaging_backend/internal/messaging"
)

func listVerdict(t *testing.T, items []messaging.ListItem, ordinal *int) classify.Classification {
	t.Helper()
	payload, err := json.Marshal(messaging.ListPayload{Items: items})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return classify.Classification{
		Type: classify.TypeSponsorDetails,
		Resolved: &classify.Outstanding{
			MessageID:       uuid.New(),
			Trigger:         messaging.TriggerSponsorRecommendation,
			SentAt:          time.Now(),
			Personalization: payload,
		},
		Ordinal: ordinal,
	}
}

func TestPickListItemDefaultsToFirst(t *testing.T) {
	items := []messaging.ListItem{
		{ID: uuid.New(), Label: "ToolBelt Pro"},
		{ID: uuid.New(), Label: "RoofRight"},
	}
	item, prompt := pickListItem(listVerdict(t, items, nil))
	if prompt != "" {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
	if item.ID != items[0].ID {
		t.Fatalf("picked %s, want first item", item.Label)
	}
}

func TestPickListItemHonorsOrdinal(t *testing.T) {
	items := []messaging.ListItem{
		{ID: uuid.New(), Label: "ToolBelt Pro"},
		{ID: uuid.New(), Label: "RoofRight"},
	}
	second := 2
	item, prompt := pickListItem(listVerdict(t, items, &second))
	if prompt != "" {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
	if item.ID != items[1].ID {
		t.Fatalf("picked %s, want second item", item.Label)
	}
}

func TestPickListItemOrdinalOutOfRange(t *testing.T) {
	items := []messaging.ListItem{{ID: uuid.New(), Label: "ToolBelt Pro"}}
	fifth := 5
	_, prompt := pickListItem(listVerdict(t, items, &fifth))
	if prompt == "" {
		t.Fatalf("out-of-range ordinal must prompt for a valid number")
	}
	if !strings.Contains(prompt, "1") {
		t.Fatalf("prompt should state the valid range, got %q", prompt)
	}
}

func TestPickListItemWithoutResolvedContext(t *testing.T) {
	_, prompt := pickListItem(classify.Classification{Type: classify.TypeSponsorDetails})
	if prompt == "" {
		t.Fatalf("missing list context must prompt for clarification")
	}
}

func TestClarificationReplyNamesPendingInteractions(t *testing.T) {
	reply := clarificationReply([]classify.Outstanding{
		{Trigger: messaging.TriggerPcrRequest},
		{Trigger: messaging.TriggerSponsorBatchCheck},
	})
	if !strings.Contains(reply, "session rating") || !strings.Contains(reply, "sponsors") {
		t.Fatalf("reply should enumerate both pending interactions, got %q", reply)
	}
}

func TestClarificationReplyWithoutCandidates(t *testing.T) {
	reply := clarificationReply(nil)
	if reply == "" {
		t.Fatalf("clarification reply must never be empty")
	}
}

func TestExtractRating(t *testing.T) {
	cases := []struct {
		text string
		want *int
	}{
		{"the speaker was a solid 8!", intPtr(8)},
		{"10/10 would attend again", intPtr(10)},
		{"loved every minute", nil},
		{"maybe a 15 out of 10", intPtr(10)},
	}
	for _, tc := range cases {
		got := extractRating(tc.text)
		switch {
		case tc.want == nil && got != nil:
			t.Fatalf("%q: extracted %d, want none", tc.text, *got)
		case tc.want != nil && got == nil:
			t.Fatalf("%q: extracted nothing, want %d", tc.text, *tc.want)
		case tc.want != nil && *got != *tc.want:
			t.Fatalf("%q: extracted %d, want %d", tc.text, *got, *tc.want)
		}
	}
}

func intPtr(n int) *int { return &n }
