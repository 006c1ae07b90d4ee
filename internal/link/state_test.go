package link

import "testing"

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from     State
		to       State
		expected bool
	}{
		{Disconnected, Connecting, true},
		{Connecting, Ready, true},
		{Ready, Disconnected, true},
		{Connecting, Disconnected, true},
		{Disconnected, Ready, false},
		{Ready, Connecting, false},
		{Disconnected, Disconnected, false},
		{Ready, Ready, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := ValidTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("ValidTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{Disconnected, "disconnected"},
		{Connecting, "connecting"},
		{Ready, "ready"},
		{State(7), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.expected)
		}
	}
}
