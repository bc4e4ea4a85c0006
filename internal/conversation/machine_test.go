package conversation

import "testing"

func TestNextIsTotal(t *testing.T) {
	for _, mode := range Modes {
		for _, signal := range Signals {
			next := Next(mode, signal)
			found := false
			for _, m := range Modes {
				if next == m {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("Next(%s, %s) = %q, not a declared mode", mode, signal, next)
			}
		}
	}
}

func TestMessageAlwaysRoutes(t *testing.T) {
	for _, mode := range []Mode{ModeIdle, ModeStandardAgent, ModeEventAgent} {
		if got := Next(mode, SignalMessageReceived); got != ModeRouting {
			t.Fatalf("Next(%s, message_received) = %s, want routing", mode, got)
		}
	}
}

func TestUpdateEventContextSelfLoops(t *testing.T) {
	for _, mode := range Modes {
		if got := Next(mode, SignalUpdateEventContext); got != mode {
			t.Fatalf("Next(%s, update_event_context) = %s, want self-loop", mode, got)
		}
	}
}

func TestSessionEndResetsToIdle(t *testing.T) {
	for _, mode := range []Mode{ModeRouting, ModeStandardAgent, ModeEventAgent} {
		if got := Next(mode, SignalSessionEnd); got != ModeIdle {
			t.Fatalf("Next(%s, session_end) = %s, want idle", mode, got)
		}
	}
}

func TestEventBoundarySignals(t *testing.T) {
	if got := Next(ModeStandardAgent, SignalEventRegistered); got != ModeRouting {
		t.Fatalf("standard_agent + event_registered = %s, want routing", got)
	}
	if got := Next(ModeEventAgent, SignalEventEnded); got != ModeRouting {
		t.Fatalf("event_agent + event_ended = %s, want routing", got)
	}
	// An end signal for an event the contractor is not engaged with is inert.
	if got := Next(ModeStandardAgent, SignalEventEnded); got != ModeStandardAgent {
		t.Fatalf("standard_agent + event_ended = %s, want self-loop", got)
	}
}

func TestUnknownPersistedModeRecovers(t *testing.T) {
	if got := Next(Mode("garbled"), SignalMessageReceived); got != ModeRouting {
		t.Fatalf("unknown mode should recover through routing, got %s", got)
	}
}

func TestResolveRouting(t *testing.T) {
	if got := ResolveRouting(true); got != ModeEventAgent {
		t.Fatalf("ResolveRouting(true) = %s", got)
	}
	if got := ResolveRouting(false); got != ModeStandardAgent {
		t.Fatalf("ResolveRouting(false) = %s", got)
	}
}
