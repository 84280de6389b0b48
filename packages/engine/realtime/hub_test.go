package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"engine/external"
)

func TestHubRoutesByTournament(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	watching := &Client{TournamentID: 1, Send: make(chan []byte, 4)}
	other := &Client{TournamentID: 2, Send: make(chan []byte, 4)}
	hub.Register(watching)
	hub.Register(other)

	hub.Publish(external.Event{Type: external.EventMatchStatus, TournamentID: 1, MatchID: 42})

	select {
	case data := <-watching.Send:
		var event external.Event
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("broadcast payload not an event: %v", err)
		}
		if event.Type != external.EventMatchStatus || event.MatchID != 42 {
			t.Errorf("event = %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}

	select {
	case data := <-other.Send:
		t.Fatalf("tournament 2 subscriber received %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Nobody receives from slow, so the hub's non-blocking send must
	// fail and drop it. The buffered watcher is the barrier: once it has
	// seen the second event, the first broadcast pass has fully run.
	slow := &Client{TournamentID: 1, Send: make(chan []byte)}
	watcher := &Client{TournamentID: 1, Send: make(chan []byte, 4)}
	hub.Register(slow)
	hub.Register(watcher)

	hub.Publish(external.Event{Type: external.EventMatchStatus, TournamentID: 1, MatchID: 1})
	hub.Publish(external.Event{Type: external.EventMatchStatus, TournamentID: 1, MatchID: 2})

	for i := 0; i < 2; i++ {
		select {
		case <-watcher.Send:
		case <-time.After(time.Second):
			t.Fatalf("watcher never received event %d", i+1)
		}
	}

	select {
	case _, open := <-slow.Send:
		if open {
			t.Fatal("slow client received instead of being dropped")
		}
	default:
		t.Fatal("slow client's channel still open after broadcast")
	}
}

func TestHubUnregisterClosesChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{TournamentID: 3, Send: make(chan []byte, 1)}
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, open := <-client.Send:
		if open {
			t.Fatal("channel delivered data after unregister")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unregister")
	}
}
