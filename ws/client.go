package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds how long a single WriteMessage call may block.
	writeWait = 10 * time.Second

	// pongWait is the deadline for the next heartbeat from the client.
	// Heartbeats are expected every 30s, so three missed in a row (90s)
	// mean the connection is dead.
	pongWait = 90 * time.Second

	// maxMessageSize bounds inbound frames; clients only ever send
	// heartbeats over this socket, never message content.
	maxMessageSize = 4096

	// sendBufferSize is the bounded per-subscriber outbound queue depth.
	// A subscriber that falls this far behind is evicted rather than
	// allowed to stall the broker.
	sendBufferSize = 64
)

const eventHeartbeat = "HEARTBEAT"
const eventHeartbeatAck = "HEARTBEAT_ACK"

// Client represents one subscriber connection to a single channel.
type Client struct {
	broker    *Broker
	conn      *websocket.Conn
	channelID int64
	userID    int64

	send chan Event
	mu   sync.Mutex // guards conn.WriteMessage
}

// NewClient wraps an upgraded connection as a channel subscriber.
func NewClient(broker *Broker, conn *websocket.Conn, channelID, userID int64) *Client {
	return &Client{
		broker:    broker,
		conn:      conn,
		channelID: channelID,
		userID:    userID,
		send:      make(chan Event, sendBufferSize),
	}
}

// ReadPump consumes inbound frames until the connection closes. The only
// message a subscriber sends is the 30s heartbeat; everything else is
// malformed or out of scope and is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.broker.Unsubscribe(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ws] failed to set read deadline for user=%d: %v", c.userID, err)
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for user=%d: %v", c.userID, err)
			}
			return
		}

		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			continue
		}

		switch evt.Event {
		case eventHeartbeat:
			if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
				log.Printf("[ws] failed to renew read deadline for user=%d: %v", c.userID, err)
				return
			}
			c.enqueue(Event{Event: eventHeartbeatAck})
		default:
			log.Printf("[ws] unexpected event from user=%d: %s", c.userID, evt.Event)
		}
	}
}

// WritePump drains the send queue to the socket until it is closed by the
// Broker on unsubscribe.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		evt, ok := <-c.send
		if !ok {
			c.writeRaw(websocket.CloseMessage, nil)
			return
		}
		payload, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		if err := c.writeRaw(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Client) writeRaw(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// enqueue offers an event to the subscriber's own queue without blocking,
// evicting the subscriber on overflow instead of stalling the caller.
func (c *Client) enqueue(evt Event) {
	select {
	case c.send <- evt:
	default:
		log.Printf("[ws] send queue full for user=%d channel=%d, evicting", c.userID, c.channelID)
		c.broker.Unsubscribe(c)
	}
}
