package driftchat

import "testing"

func TestStateStrings(t *testing.T) {
	cases := map[ConnectionState]string{
		StateIdle:       "idle",
		StateConnecting: "connecting",
		StateOpen:       "open",
		StateError:      "error",
		StateClosing:    "closing",
		StateClosed:     "closed",
	}
	for state, want := range cases {
		if state.String() != want {
			t.Fatalf("%d.String() = %q, want %q", state, state.String(), want)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	allowed := [][2]ConnectionState{
		{StateIdle, StateConnecting},
		{StateConnecting, StateOpen},
		{StateOpen, StateError},
		{StateError, StateConnecting},
		{StateError, StateClosed},
		{StateOpen, StateClosing},
		{StateClosing, StateClosed},
		{StateClosed, StateConnecting},
		{StateOpen, StateClosed},
	}
	for _, tc := range allowed {
		if !canTransition(tc[0], tc[1]) {
			t.Errorf("%s -> %s should be legal", tc[0], tc[1])
		}
	}

	forbidden := [][2]ConnectionState{
		{StateIdle, StateOpen},
		{StateClosed, StateOpen},
		{StateClosing, StateConnecting},
		{StateClosing, StateOpen},
		{StateError, StateOpen},
	}
	for _, tc := range forbidden {
		if canTransition(tc[0], tc[1]) {
			t.Errorf("%s -> %s should be illegal", tc[0], tc[1])
		}
	}
}
