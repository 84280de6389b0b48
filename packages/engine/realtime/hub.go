// Package realtime fans out tournament events to connected spectators.
// The hub keeps all subscription state on a single goroutine; handlers
// talk to it exclusively through channels.
package realtime

import (
	"encoding/json"
	"log"

	"engine/external"
)

// Client is one subscriber, scoped to a tournament.
type Client struct {
	TournamentID uint
	Send         chan []byte
}

type message struct {
	tournamentID uint
	data         []byte
}

// Hub routes events to the clients watching each tournament. It
// implements external.Notifier, so services publish through it without
// knowing about connections.
type Hub struct {
	clients map[uint]map[*Client]bool

	broadcast  chan message
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		broadcast:  make(chan message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes hub events until the process exits. Call it once, in
// its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.TournamentID] == nil {
				h.clients[client.TournamentID] = make(map[*Client]bool)
			}
			h.clients[client.TournamentID][client] = true

		case client := <-h.unregister:
			h.drop(client)

		case msg := <-h.broadcast:
			for client := range h.clients[msg.tournamentID] {
				select {
				case client.Send <- msg.data:
				default:
					// Slow consumer; drop it rather than stall the loop.
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	clients, ok := h.clients[client.TournamentID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.TournamentID)
	}
}

// Publish implements external.Notifier. Marshal failures are logged
// and dropped; a notification must never fail a state change.
func (h *Hub) Publish(event external.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: dropping unmarshalable event %q: %v", event.Type, err)
		return
	}
	select {
	case h.broadcast <- message{tournamentID: event.TournamentID, data: data}:
	default:
		log.Printf("realtime: broadcast buffer full, dropping event %q for tournament %d", event.Type, event.TournamentID)
	}
}

// Register subscribes a client to its tournament's events.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
