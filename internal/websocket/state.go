package websocket

// State is the lifecycle stage of a single connection.
type State int32

// A connection only moves forward: Connecting, then Established, then Closed.
const (
	StateConnecting State = iota
	StateEstablished
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateEstablished:
		return "established"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
