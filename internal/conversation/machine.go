// Package conversation tracks which agent serves a contractor's current
// turn. Every inbound message passes through the transient routing state,
// whose exit guard ("is there a checked-in, time-active event right now")
// is re-evaluated each turn because event windows start and stop
// independently of message traffic.
package conversation

// Mode is the conversation routing mode.
type Mode string

const (
	// ModeIdle is the initial state before any message traffic.
	ModeIdle Mode = "idle"
	// ModeRouting is the transient decision state; it always exits
	// immediately via the active-event guard.
	ModeRouting Mode = "routing"
	// ModeStandardAgent serves turns with the general knowledge context.
	ModeStandardAgent Mode = "standard_agent"
	// ModeEventAgent serves turns with the event-aware knowledge context.
	ModeEventAgent Mode = "event_agent"
)

// Signal is an input to the state machine.
type Signal string

const (
	SignalMessageReceived    Signal = "message_received"
	SignalEventRegistered    Signal = "event_registered"
	SignalEventEnded         Signal = "event_ended"
	SignalSessionEnd         Signal = "session_end"
	SignalUpdateEventContext Signal = "update_event_context"
)

// Signals is the full input alphabet, exported for totality tests.
var Signals = []Signal{
	SignalMessageReceived,
	SignalEventRegistered,
	SignalEventEnded,
	SignalSessionEnd,
	SignalUpdateEventContext,
}

// Modes is the full state set, exported for totality tests.
var Modes = []Mode{ModeIdle, ModeRouting, ModeStandardAgent, ModeEventAgent}

// Next returns the state entered when signal arrives in mode, before the
// routing guard runs. It is total over the declared alphabet: no signal
// is ever dropped, and unlisted combinations self-loop.
func Next(mode Mode, signal Signal) Mode {
	// update_event_context only refreshes the active event id; the named
	// state never changes.
	if signal == SignalUpdateEventContext {
		return mode
	}

	switch mode {
	case ModeIdle:
		switch signal {
		case SignalMessageReceived:
			return ModeRouting
		default:
			return ModeIdle
		}
	case ModeRouting:
		switch signal {
		case SignalSessionEnd:
			return ModeIdle
		default:
			return ModeRouting
		}
	case ModeStandardAgent:
		switch signal {
		case SignalMessageReceived, SignalEventRegistered:
			return ModeRouting
		case SignalSessionEnd:
			return ModeIdle
		default:
			return ModeStandardAgent
		}
	case ModeEventAgent:
		switch signal {
		case SignalMessageReceived, SignalEventEnded:
			return ModeRouting
		case SignalSessionEnd:
			return ModeIdle
		default:
			return ModeEventAgent
		}
	default:
		// Unknown persisted mode: recover through routing on the next turn.
		return ModeRouting
	}
}

// ResolveRouting exits the transient routing state based on the
// active-event guard.
func ResolveRouting(hasActiveEvent bool) Mode {
	if hasActiveEvent {
		return ModeEventAgent
	}
	return ModeStandardAgent
}
