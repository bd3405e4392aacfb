package server

import (
	"encoding/json"
	"testing"

	"github.com/prepwise/interviewd/internal/session"
)

func TestBrokerDeliversToInterviewSubscribers(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("iv1")
	other := b.Subscribe("iv2")
	defer b.Unsubscribe("iv1", ch)
	defer b.Unsubscribe("iv2", other)

	b.Publish("iv1", session.Event{Type: session.EventTimeWarning, TimeLeft: 10})

	select {
	case data := <-ch:
		var ev session.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decoding event: %v", err)
		}
		if ev.Type != session.EventTimeWarning || ev.TimeLeft != 10 {
			t.Fatalf("got %+v", ev)
		}
	default:
		t.Fatal("subscriber received nothing")
	}

	select {
	case <-other:
		t.Fatal("event leaked to another interview's subscriber")
	default:
	}
}

func TestBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("iv1")
	defer b.Unsubscribe("iv1", ch)

	// Overfill the buffer; Publish must never block.
	for i := 0; i < 32; i++ {
		b.Publish("iv1", session.Event{Type: session.EventTimeWarning, TimeLeft: i})
	}

	if got := len(ch); got != cap(ch) {
		t.Fatalf("buffered %d events, want %d", got, cap(ch))
	}
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("iv1")
	b.Unsubscribe("iv1", ch)

	b.Publish("iv1", session.Event{Type: session.EventCompleted})
	if len(ch) != 0 {
		t.Fatal("unsubscribed channel still received an event")
	}
}
