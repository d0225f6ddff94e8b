package driftchat

// ConnectionState represents the current state of the realtime connection.
type ConnectionState int

const (
	// StateIdle means the connection has never been started.
	StateIdle ConnectionState = iota

	// StateConnecting means a connect attempt (initial or retry) is in flight.
	StateConnecting

	// StateOpen means the handshake succeeded and the room subscription is
	// active.
	StateOpen

	// StateError means the transport failed; a retry is scheduled unless
	// teardown intervenes.
	StateError

	// StateClosing means deliberate teardown is in progress.
	StateClosing

	// StateClosed means the connection is fully released. A later connect for
	// a new screen visit restarts from here.
	StateClosed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateError:
		return "error"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// legalTransitions encodes the connection state machine. Error is always
// followed by Connecting (retry) or Closing/Closed (teardown); Closed may
// re-enter Connecting when the same screen is visited again.
var legalTransitions = map[ConnectionState][]ConnectionState{
	StateIdle:       {StateConnecting, StateClosing, StateClosed},
	StateConnecting: {StateOpen, StateError, StateClosing, StateClosed},
	StateOpen:       {StateError, StateClosing, StateClosed},
	StateError:      {StateConnecting, StateClosing, StateClosed},
	StateClosing:    {StateClosed},
	StateClosed:     {StateConnecting, StateClosing},
}

func canTransition(from, to ConnectionState) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateEvent represents a state change.
type StateEvent struct {
	Old ConnectionState
	New ConnectionState
	Err error // transport error that caused the change, when any
}
