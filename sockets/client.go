package sockets

import (
	"sync"

	"github.com/gorilla/websocket"

	"team-collab/backend/logging"
)

// sendBuffer bounds the per-connection outbound queue; a client that
// cannot drain it in time is dropped.
const sendBuffer = 64

// Client is one websocket connection. userID stays empty until the
// connection authenticates; rooms is mutated only under the hub lock.
// The identity fields are written from the read goroutine but also read
// by unregister on the slow-socket drop path, which runs elsewhere, so
// they live behind their own mutex.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan Envelope
	done chan struct{}

	identityMu sync.Mutex
	userID     string
	username   string

	rooms map[string]bool
}

func (c *Client) setUserID(userID string) {
	c.identityMu.Lock()
	c.userID = userID
	c.identityMu.Unlock()
}

func (c *Client) setUsername(username string) {
	c.identityMu.Lock()
	c.username = username
	c.identityMu.Unlock()
}

// identity returns the authenticated user id and last announced username;
// the id is empty until authentication succeeds.
func (c *Client) identity() (string, string) {
	c.identityMu.Lock()
	defer c.identityMu.Unlock()
	return c.userID, c.username
}

func newClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:    id,
		hub:   hub,
		conn:  conn,
		send:  make(chan Envelope, sendBuffer),
		done:  make(chan struct{}),
		rooms: make(map[string]bool),
	}
}

// emit queues an event for this connection only.
func (c *Client) emit(event string, data interface{}) {
	env := newEnvelope(event, data)
	select {
	case c.send <- env:
	default:
		logging.Logger.Warnf("Event ID: SOCKET_SEND_BUFFER_FULL, Description: Dropping slow socket %s", c.ID)
		go c.hub.unregister(c)
	}
}

// writePump drains the send queue onto the wire until the hub signals
// teardown. One writer per connection keeps gorilla's single-writer
// requirement.
func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case env := <-c.send:
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump reads envelopes until the connection drops, dispatching each
// one to the hub. Runs on the connection's own goroutine.
func (c *Client) readPump() {
	defer c.hub.unregister(c)
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		c.hub.dispatch(c, env)
	}
}
