// internal/lobby/hub.go
//
// Package lobby fans the session view out to websocket subscribers. It is a
// transport concern only: the engine hands it a view after each committed
// mutation and it pushes that view to everyone watching the lobby.
package lobby

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Connection is one subscribed websocket client. The writer goroutine owns
// draining Out; the hub never blocks on a slow client. Out itself is never
// closed: Broadcast may still hold a reference to an unsubscribed connection,
// so shutdown is signaled through done instead.
type Connection struct {
	UserID uuid.UUID
	Out    chan interface{}

	done      chan struct{}
	closeOnce sync.Once
}

func NewConnection(userID uuid.UUID) *Connection {
	return &Connection{
		UserID: userID,
		Out:    make(chan interface{}, 16),
		done:   make(chan struct{}),
	}
}

// Done is closed when the connection has been unsubscribed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// send pushes msg without blocking; a full buffer drops the message, the
// client catches up on the next state change. Sending to a connection that
// was unsubscribed mid-broadcast is harmless, the buffered message is never
// drained.
func (c *Connection) send(msg interface{}) {
	select {
	case <-c.done:
	case c.Out <- msg:
	default:
		log.Warnf("lobby hub: dropped message for slow subscriber %s", c.UserID)
	}
}

// close signals the writer goroutine to exit. Safe to call more than once.
func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Hub tracks live subscribers per lobby.
type Hub struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]map[*Connection]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uuid.UUID]map[*Connection]struct{})}
}

// Subscribe registers conn for the lobby's state broadcasts.
func (h *Hub) Subscribe(lobbyID uuid.UUID, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[lobbyID]
	if !ok {
		room = make(map[*Connection]struct{})
		h.rooms[lobbyID] = room
	}
	room[conn] = struct{}{}
}

// Unsubscribe removes conn and closes its outbound channel. Safe to call
// more than once.
func (h *Hub) Unsubscribe(lobbyID uuid.UUID, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[lobbyID]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(h.rooms, lobbyID)
		}
	}
	conn.close()
}

// Broadcast sends msg to every subscriber of the lobby.
func (h *Hub) Broadcast(lobbyID uuid.UUID, msg interface{}) {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.rooms[lobbyID]))
	for c := range h.rooms[lobbyID] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.send(msg)
	}
}
