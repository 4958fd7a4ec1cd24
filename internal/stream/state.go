package stream

// State is the connection state of a Client.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	StateErrored
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "error"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// transitions lists the legal moves out of each state. Closed and Errored
// lead back to Connecting only while the retry budget lasts; ShuttingDown
// can only end in Closed.
var transitions = map[State][]State{
	StateConnecting:   {StateOpen, StateClosed, StateErrored, StateShuttingDown},
	StateOpen:         {StateClosed, StateErrored, StateShuttingDown},
	StateClosed:       {StateConnecting, StateShuttingDown},
	StateErrored:      {StateConnecting, StateClosed, StateShuttingDown},
	StateShuttingDown: {StateClosed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Status is what the client reports to its observer on every transition.
type Status struct {
	State State
	// Err is the error that caused a Closed or Errored state, if any.
	Err error
	// Retries is the number of reconnects used in the current outage.
	Retries int
	// Terminal is set once the client will never connect again.
	Terminal bool
}
