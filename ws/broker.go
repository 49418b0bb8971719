// Package ws fans realtime events out to WebSocket subscribers of a
// channel (text or voice). A Broker keeps one registry per channel_id rather than per
// user_id: subscribing is "I am viewing this channel", and every message
// posted there reaches every current subscriber at most once, in order.
package ws

import (
	"log"
	"sync"
)

// Broker owns the per-channel subscriber registries and the register/
// unregister lifecycle. One Broker serves the whole process.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]map[*Client]bool

	register   chan *Client
	unregister chan *Client
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
	}
}

// Run is the Broker's event loop. Call it with `go broker.Run()`.
func (b *Broker) Run() {
	for {
		select {
		case c := <-b.register:
			b.addClient(c)
		case c := <-b.unregister:
			b.removeClient(c)
		}
	}
}

func (b *Broker) addClient(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[c.channelID]; !ok {
		b.subscribers[c.channelID] = make(map[*Client]bool)
	}
	b.subscribers[c.channelID][c] = true
	log.Printf("[ws] subscriber joined channel=%d user=%d (total=%d)",
		c.channelID, c.userID, len(b.subscribers[c.channelID]))
}

func (b *Broker) removeClient(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.subscribers[c.channelID]; ok {
		if _, exists := clients[c]; exists {
			delete(clients, c)
			close(c.send)
			if len(clients) == 0 {
				delete(b.subscribers, c.channelID)
			}
		}
	}
}

// Publish delivers an event to every current subscriber of a channel. Each
// subscriber has a bounded queue; a subscriber whose queue is already full
// is evicted rather than allowed to block the publisher or stall everyone
// else — a slow reader loses events, it never blocks senders.
func (b *Broker) Publish(channelID int64, evt Event) {
	b.mu.RLock()
	clients := make([]*Client, 0, len(b.subscribers[channelID]))
	for c := range b.subscribers[channelID] {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- evt:
		default:
			log.Printf("[ws] send queue full for user=%d channel=%d, evicting", c.userID, channelID)
			b.unregister <- c
		}
	}
}

// Subscribe registers a client for a channel's events. It blocks until the
// Broker's Run loop has picked up the registration.
func (b *Broker) Subscribe(c *Client) {
	b.register <- c
}

// Unsubscribe removes a client from its channel's registry.
func (b *Broker) Unsubscribe(c *Client) {
	b.unregister <- c
}

// SubscriberCount reports how many clients currently watch a channel.
// Used by tests and diagnostics, never by the hot publish path.
func (b *Broker) SubscriberCount(channelID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[channelID])
}
