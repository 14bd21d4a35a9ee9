package ui

import (
	"sync"

	"github.com/google/uuid"
)

// Event tells subscribers that the exchange of a request has finished and a
// poll will return its result.
type Event struct {
	Request string `json:"request"`
}

// Broker fans completion events out to the connected /events streams.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: map[chan Event]struct{}{}}
}

// Subscribe returns a closed channel once the broker is closed.
func (b *Broker) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

func (b *Broker) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish never blocks; a subscriber that is not keeping up misses the event
// and picks the result up on its next poll.
func (b *Broker) Publish(id uuid.UUID) {
	e := Event{Request: id.String()}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close ends every subscription so open /events streams return. Register it
// with http.Server.RegisterOnShutdown.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
