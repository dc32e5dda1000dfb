package manager

// State represents the lifecycle state of a manager.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateConnected State = "connected"
	StateClosed    State = "closed"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	ID         string
	State      State
	SocketPath string
	Address    string
	Pending    int
	Registered bool
	Injected   bool
}
