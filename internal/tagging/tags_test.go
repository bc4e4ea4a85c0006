package tagging

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestTags(t *testing.T) {
	eventID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name        string
		messageType string
		stage       Stage
		want        []string
	}{
		{
			name:        "checkin",
			messageType: "event_checkin",
			stage:       StageLive,
			want: []string{
				"event-6ba7b810-9dad-11d1-80b4-00c04fd430c8",
				"event-checked-in",
				"sms-event_checkin",
				"stage-live",
			},
		},
		{
			name:        "speaker feedback earns both engagement labels",
			messageType: "speaker_feedback",
			stage:       StageLive,
			want: []string{
				"event-6ba7b810-9dad-11d1-80b4-00c04fd430c8",
				"feedback-given",
				"sms-speaker_feedback",
				"speaker-engaged",
				"stage-live",
			},
		},
		{
			name:        "wrap-up pcr after the event",
			messageType: "pcr_response",
			stage:       StagePostEvent,
			want: []string{
				"event-6ba7b810-9dad-11d1-80b4-00c04fd430c8",
				"feedback-given",
				"sms-pcr_response",
				"stage-post_event",
			},
		},
		{
			name:        "type with no engagement labels",
			messageType: "general_question",
			stage:       StagePreEvent,
			want: []string{
				"event-6ba7b810-9dad-11d1-80b4-00c04fd430c8",
				"sms-general_question",
				"stage-pre_event",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tags(tt.messageType, eventID, tt.stage)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Tags(%s) = %v, want %v", tt.messageType, got, tt.want)
			}
		})
	}
}

func TestTagsDeterministic(t *testing.T) {
	eventID := uuid.New()
	first := Tags("peer_match_acceptance", eventID, StageLive)
	for i := 0; i < 10; i++ {
		if got := Tags("peer_match_acceptance", eventID, StageLive); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %v, want %v", i, got, first)
		}
	}
}

func TestStageFor(t *testing.T) {
	if got := StageFor(true, false); got != StageLive {
		t.Fatalf("StageFor(live) = %s", got)
	}
	if got := StageFor(false, true); got != StagePostEvent {
		t.Fatalf("StageFor(ended) = %s", got)
	}
	if got := StageFor(false, false); got != StagePreEvent {
		t.Fatalf("StageFor(pre) = %s", got)
	}
}
