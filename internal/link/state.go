package link

// State is the connection state of a Supervisor.
type State int32

// Connection states.
const (
	Disconnected State = iota
	Connecting
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// ValidTransition reports whether from -> to is an edge of the state
// machine. Staying in place is not a transition.
func ValidTransition(from, to State) bool {
	switch {
	case from == Disconnected && to == Connecting:
		return true
	case from == Connecting && to == Ready:
		return true
	case from == Ready && to == Disconnected:
		return true
	case from == Connecting && to == Disconnected:
		return true
	}
	return false
}
