package connectivity

import "sync"

// Fake is a hand-cranked monitor for tests and previews.
type Fake struct {
	mu    sync.Mutex
	state State
	bc    broadcaster
}

func NewFake(initial State) *Fake {
	return &Fake{state: initial}
}

func (f *Fake) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Fake) Subscribe() (<-chan State, func()) {
	return f.bc.subscribe()
}

// Set flips the reported state, notifying subscribers only on change.
func (f *Fake) Set(s State) {
	f.mu.Lock()
	if f.state == s {
		f.mu.Unlock()
		return
	}
	f.state = s
	f.mu.Unlock()
	f.bc.publish(s)
}
