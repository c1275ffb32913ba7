// SPDX-License-Identifier: MIT
package capture

import "sync"

// State is the capture pipeline state.
type State int32

const (
	StateIdle State = iota
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	default:
		return "unknown"
	}
}

// EventKind distinguishes pipeline events.
type EventKind int

const (
	// EventBlock is emitted when a block has been appended to the buffer.
	EventBlock EventKind = iota
	// EventState is emitted on every state transition.
	EventState
)

// Event is delivered to listeners from the accumulator side, never from the
// audio thread. Listeners must return quickly.
type Event struct {
	Kind EventKind

	// EventState
	From, To State

	// EventBlock
	Samples int     // samples in the block
	Total   int     // samples accumulated so far
	Peak    float32 // absolute peak of the block
}

// Listener receives pipeline events.
type Listener func(Event)

type dispatcher struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]Listener
}

// Subscribe registers l and returns a function that removes it.
func (d *dispatcher) Subscribe(l Listener) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listeners == nil {
		d.listeners = make(map[int]Listener)
	}
	id := d.next
	d.next++
	d.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners, id)
			d.mu.Unlock()
		})
	}
}

// emit calls every listener without holding the lock, so a listener may
// unsubscribe itself.
func (d *dispatcher) emit(e Event) {
	d.mu.RLock()
	ls := make([]Listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		ls = append(ls, l)
	}
	d.mu.RUnlock()

	for _, l := range ls {
		l(e)
	}
}
