// Package tagging derives CRM engagement labels from handled interactions
// and pushes them to the external CRM. Label derivation is deterministic
// so the same interaction always yields the same tag set.
package tagging

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Stage identifies where in the event lifecycle the interaction happened.
type Stage string

const (
	StagePreEvent  Stage = "pre_event"
	StageLive      Stage = "live"
	StagePostEvent Stage = "post_event"
)

// engagementTags maps a message type to the labels that type earns beyond
// the base event and type tags. Types absent here contribute no extra
// labels.
var engagementTags = map[string][]string{
	"event_checkin":              {"event-checked-in"},
	"speaker_details":            {"speaker-engaged"},
	"speaker_feedback":           {"speaker-engaged", "feedback-given"},
	"sponsor_details":            {"sponsor-engaged"},
	"sponsor_talking_points":     {"sponsor-engaged"},
	"peer_matching_introduction": {"peer-matched"},
	"peer_match_acceptance":      {"peer-matched", "peer-accepted"},
	"pcr_response":               {"feedback-given"},
	"attendance_confirmation":    {"session-attended"},
}

// Tags derives the CRM label set for one handled interaction. The result
// is sorted and duplicate free.
func Tags(messageType string, eventID uuid.UUID, stage Stage) []string {
	set := map[string]struct{}{
		fmt.Sprintf("event-%s", eventID):   {},
		fmt.Sprintf("sms-%s", messageType): {},
		fmt.Sprintf("stage-%s", stage):     {},
	}
	for _, tag := range engagementTags[messageType] {
		set[tag] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// StageFor chooses the lifecycle stage from the event window relative to
// the interaction time, given whether the event is currently live or
// already over.
func StageFor(live, ended bool) Stage {
	switch {
	case live:
		return StageLive
	case ended:
		return StagePostEvent
	default:
		return StagePreEvent
	}
}
