package connectivity

import "sync"

type State string

const (
	Online  State = "online"
	Offline State = "offline"
)

// Monitor reports network reachability. Subscribe delivers transitions only,
// never repeats of the current state; the returned func cancels the
// subscription.
type Monitor interface {
	State() State
	Subscribe() (<-chan State, func())
}

// broadcaster fans transitions out to subscribers. Sends are non-blocking; a
// subscriber that stops draining misses intermediate transitions but can
// always re-read State().
type broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan State
	next int
}

func (b *broadcaster) subscribe() (<-chan State, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]chan State)
	}
	id := b.next
	b.next++
	ch := make(chan State, 4)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

func (b *broadcaster) publish(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
