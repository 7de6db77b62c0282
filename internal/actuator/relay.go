package actuator

import "sync"

// State is the binary valve/pump state.
type State string

const (
	StateOn  State = "on"
	StateOff State = "off"
)

// Driver controls the irrigation valve/pump relay. Implementations must be
// safe for concurrent use: the scheduling task and the command dispatcher
// both touch the relay.
type Driver interface {
	On() error
	Off() error
	State() State
}

// MemoryRelay is an in-process Driver used by the simulated backend and in
// tests.
type MemoryRelay struct {
	mu    sync.Mutex
	state State
}

func NewMemoryRelay() *MemoryRelay {
	return &MemoryRelay{state: StateOff}
}

func (r *MemoryRelay) On() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateOn
	return nil
}

func (r *MemoryRelay) Off() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateOff
	return nil
}

func (r *MemoryRelay) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
