package classify

import (
	"regexp"
	"strconv"
	"strings"

	"event_messaging_backend/internal/messaging"
)

// Input is everything the classifier may consult for one inbound message.
// Outstanding is the snapshot taken inside the contractor's lane, so two
// rapid replies cannot both resolve against the same stale item.
// FromAdmin is the sender's allowlist verdict; it unlocks the bare
// command forms (STATUS without the admin prefix).
type Input struct {
	Text        string
	Outstanding []Outstanding
	FromAdmin   bool
}

// Classification is the classifier verdict. Resolved is set when a short
// reply bound to exactly one outstanding interaction. Ambiguity carries
// ErrAmbiguousReply when the verdict is clarification_needed because more
// than one outstanding item matched.
type Classification struct {
	Type      MessageType
	Resolved  *Outstanding
	Rating    *int
	Ordinal   *int
	Affirmed  *bool
	Ambiguity error
}

var (
	bareDigitRe = regexp.MustCompile(`^(10|[0-9])$`)
	ordinalRe   = regexp.MustCompile(`\b(?:the\s+)?(10|[1-9])(?:st|nd|rd|th)?\b`)
)

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
}

// Classify decides the message type for one inbound message. Context
// wins over keywords: a short reply is matched against the outstanding
// snapshot before any intent rule runs, and when more than one
// outstanding item could absorb it the verdict is clarification, never a
// guess.
func Classify(in Input) Classification {
	text := strings.ToLower(strings.TrimSpace(in.Text))

	if isAdminCommand(text) {
		// Authorization happens in the handler so unauthorized senders
		// get an explicit rejection reply instead of a misroute.
		return Classification{Type: TypeAdminCommand}
	}
	if in.FromAdmin && isBareAdminCommand(text) {
		return Classification{Type: TypeAdminCommand}
	}

	if m := bareDigitRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return classifyNumeric(n, in.Outstanding)
	}

	if isAffirmation(text) || isNegation(text) {
		return classifyYesNo(isAffirmation(text), in.Outstanding)
	}

	if strings.Contains(text, "tell me about") || strings.Contains(text, "more about") {
		return classifyDetailLookup(text, in.Outstanding)
	}

	switch {
	case containsAny(text, "check in", "checkin", "checking in", "i'm here", "im here"):
		return Classification{Type: TypeEventCheckin}
	case containsAny(text, "talking points", "what should i ask", "what do i say"):
		return Classification{Type: TypeSponsorTalkingPoints}
	case containsAny(text, "feedback", "rate the speaker", "thought the speaker"):
		return Classification{Type: TypeSpeakerFeedback}
	case containsAny(text, "sponsor", "booth", "vendor"):
		return Classification{Type: TypeSponsorDetails}
	case containsAny(text, "speaker", "who is presenting", "who's presenting"):
		return Classification{Type: TypeSpeakerDetails}
	case containsAny(text, "connect me", "introduce me", "meet other", "peer"):
		return Classification{Type: TypePeerMatchingIntroduction}
	}

	return Classification{Type: TypeGeneralQuestion}
}

// classifyNumeric resolves a bare digit against the outstanding snapshot.
// Exactly one candidate claims it; with several the contractor is asked
// which they meant, regardless of any precedence between families.
func classifyNumeric(n int, outstanding []Outstanding) Classification {
	candidates := filterOutstanding(outstanding, acceptsDigit)

	switch len(candidates) {
	case 0:
		// No pending context; treat the digit as a rating and let the
		// handler explain there is nothing open to rate.
		return Classification{Type: TypePcrResponse, Rating: &n}
	case 1:
		c := candidates[0]
		cls := Classification{Type: resolvedType(c.Trigger), Resolved: &c}
		if c.Trigger == messaging.TriggerPcrRequest || c.Trigger == messaging.TriggerEventWrapup {
			cls.Rating = &n
		} else {
			cls.Ordinal = &n
		}
		return cls
	default:
		return Classification{Type: TypeClarificationNeeded, Ambiguity: ErrAmbiguousReply}
	}
}

func classifyYesNo(affirmed bool, outstanding []Outstanding) Classification {
	candidates := filterOutstanding(outstanding, acceptsYesNo)

	switch len(candidates) {
	case 0:
		return Classification{Type: TypeAttendanceConfirmation, Affirmed: &affirmed}
	case 1:
		c := candidates[0]
		t := TypeAttendanceConfirmation
		if c.Trigger == messaging.TriggerPeerIntroduction {
			t = TypePeerMatchAcceptance
		}
		return Classification{Type: t, Resolved: &c, Affirmed: &affirmed}
	default:
		return Classification{Type: TypeClarificationNeeded, Ambiguity: ErrAmbiguousReply}
	}
}

// classifyDetailLookup handles "tell me about the 2nd one" style requests
// against the most recent recommendation list.
func classifyDetailLookup(text string, outstanding []Outstanding) Classification {
	ordinal := parseOrdinal(text)

	lists := filterOutstanding(outstanding, func(o Outstanding) bool {
		return o.Trigger == messaging.TriggerSpeakerAlert ||
			o.Trigger == messaging.TriggerSponsorRecommendation ||
			o.Trigger == messaging.TriggerSponsorBatchCheck
	})

	switch len(lists) {
	case 0:
		if strings.Contains(text, "sponsor") {
			return Classification{Type: TypeSponsorDetails, Ordinal: ordinal}
		}
		return Classification{Type: TypeSpeakerDetails, Ordinal: ordinal}
	case 1:
		c := lists[0]
		return Classification{Type: resolvedType(c.Trigger), Resolved: &c, Ordinal: ordinal}
	default:
		return Classification{Type: TypeClarificationNeeded, Ambiguity: ErrAmbiguousReply}
	}
}

func acceptsDigit(o Outstanding) bool {
	switch o.Trigger {
	case messaging.TriggerPcrRequest, messaging.TriggerEventWrapup,
		messaging.TriggerSpeakerAlert, messaging.TriggerSponsorRecommendation,
		messaging.TriggerSponsorBatchCheck:
		return true
	default:
		return false
	}
}

func acceptsYesNo(o Outstanding) bool {
	switch o.Trigger {
	case messaging.TriggerPeerIntroduction, messaging.TriggerSponsorBatchCheck:
		return true
	default:
		return false
	}
}

func filterOutstanding(items []Outstanding, keep func(Outstanding) bool) []Outstanding {
	var out []Outstanding
	for _, o := range items {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func isAdminCommand(text string) bool {
	return text == "admin" || strings.HasPrefix(text, "admin ")
}

// isBareAdminCommand matches the prefix-free command forms. Only applied
// to senders already verified against the allowlist, so an attendee's
// "help" still reaches the concierge.
func isBareAdminCommand(text string) bool {
	switch text {
	case "status", "help", "end":
		return true
	}
	return strings.HasPrefix(text, "delay ") || text == "delay"
}

func isAffirmation(text string) bool {
	switch text {
	case "yes", "y", "yeah", "yep", "sure", "ok", "okay", "confirmed":
		return true
	}
	return false
}

func isNegation(text string) bool {
	switch text {
	case "no", "n", "nope", "nah", "not yet":
		return true
	}
	return false
}

func parseOrdinal(text string) *int {
	if m := ordinalRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return &n
	}
	for word, n := range ordinalWords {
		if strings.Contains(text, word) {
			v := n
			return &v
		}
	}
	return nil
}

func containsAny(text string, substrs ...string) bool {
	for _, s := range substrs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
