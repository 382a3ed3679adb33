package connection

// State is the lifecycle position of the client. Every transition drives its
// side effects (starting or stopping background work, firing callbacks), and
// no transition is ever skipped: a connected client always passes through
// Stopping before Disconnected so cleanup runs exactly once.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Error
	Stopping
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}
