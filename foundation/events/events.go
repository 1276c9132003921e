// Package events fans out wallet events to the websocket clients that
// subscribed to them.
package events

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// messageBuffer is the number of events held for a slow subscriber before
// new events are dropped for it.
const messageBuffer = 100

// ErrUnknownID is returned when releasing an id that was never acquired.
var ErrUnknownID = errors.New("unknown subscriber id")

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	mu      sync.RWMutex
	m       map[string]chan string
	dropped map[string]int
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m:       make(map[string]chan string),
		dropped: make(map[string]int),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		delete(evt.dropped, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	ch = make(chan string, messageBuffer)
	evt.m[id] = ch

	return ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire. It returns the number of events dropped for the id.
func (evt *Events) Release(id string) (int, error) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return 0, errors.Wrapf(ErrUnknownID, "id[%s]", id)
	}

	dropped := evt.dropped[id]

	delete(evt.m, id)
	delete(evt.dropped, id)
	close(ch)

	return dropped, nil
}

// Subscribers returns the number of acquired channels.
func (evt *Events) Subscribers() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Send signals a message to every registered channel. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(s string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		select {
		case ch <- s:
		default:
			evt.dropped[id]++
		}
	}
}
