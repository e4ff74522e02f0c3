package monitors

// State is the liveness of a target as last reported.
type State int

const (
	Unknown State = iota
	Up
	Down
)

func (s State) String() string {
	switch s {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

func stateOf(alive bool) State {
	if alive {
		return Up
	}
	return Down
}
