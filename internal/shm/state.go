package shm

// State is the connection state of a Link.
type State int32

const (
	Connecting State = iota
	Polling
	Shutdown
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Polling:
		return "POLLING"
	case Shutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}
