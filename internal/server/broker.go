package server

import (
	"encoding/json"
	"sync"

	"github.com/prepwise/interviewd/internal/session"
)

// Broker is an in-process pub/sub for session events, keyed by interview
// ID. It implements session.Publisher for the controllers and feeds the SSE
// handler on the other side.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the
// given interview.
func (b *Broker) Subscribe(interviewID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[interviewID] == nil {
		b.subs[interviewID] = make(map[chan []byte]struct{})
	}
	b.subs[interviewID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the interview's subscribers.
func (b *Broker) Unsubscribe(interviewID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[interviewID], ch)
	if len(b.subs[interviewID]) == 0 {
		delete(b.subs, interviewID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given interview.
func (b *Broker) Publish(interviewID string, event session.Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[interviewID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
