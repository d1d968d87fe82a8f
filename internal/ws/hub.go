package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type Client struct {
	ID     string
	UserID uint
	Conn   *websocket.Conn
	Send   chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// Hub tracks every live connection twice: per user (the user's private
// "room", shared by all their devices) and per named room joined via
// join-room. All maps are guarded by mu; sends never block the caller,
// a full client buffer drops the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: map[uint]map[*Client]struct{}{},
		rooms:   map[string]map[*Client]struct{}{},
	}
}

// UserRoom is the room name every connection of a user is implicitly part of.
func UserRoom(userID uint) string { return fmt.Sprintf("user:%d", userID) }

// GroupRoom is the room group broadcasts go to.
func GroupRoom(groupID uint) string { return fmt.Sprintf("group:%d", groupID) }

func (h *Hub) AddClient(userID uint, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan Event, 64),
		ctx:    ctx,
		cancel: cancel,
	}

	h.register(c)

	go c.writeLoop()
	go c.keepAliveLoop()

	return c
}

// register attaches a client to the user map without starting its loops.
// Split out so tests can use clients with no real connection.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	if h.clients[c.UserID] == nil {
		h.clients[c.UserID] = map[*Client]struct{}{}
	}
	h.clients[c.UserID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) RemoveClient(c *Client) {
	c.cancel()

	h.mu.Lock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	for room, set := range h.rooms {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	if c.Conn != nil {
		_ = c.Conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

func (h *Hub) JoinRoom(c *Client, room string) {
	if room == "" {
		return
	}
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = map[*Client]struct{}{}
	}
	h.rooms[room][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) LeaveRoom(c *Client, room string) {
	h.mu.Lock()
	if set, ok := h.rooms[room]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) ToUser(userID uint, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		c.push(ev)
	}
}

func (h *Hub) ToUsers(userIDs []uint, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		for c := range h.clients[uid] {
			c.push(ev)
		}
	}
}

// ToRoom also resolves user:<id> rooms against the user map, so a user's
// private room is addressable without an explicit join.
func (h *Hub) ToRoom(room string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		c.push(ev)
	}
	var uid uint
	if n, _ := fmt.Sscanf(room, "user:%d", &uid); n == 1 {
		for c := range h.clients[uid] {
			c.push(ev)
		}
	}
}

func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, set := range h.clients {
		for c := range set {
			c.push(ev)
		}
	}
}

// ConnectionCount reports live connections for one user.
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (c *Client) push(ev Event) {
	select {
	case c.Send <- ev:
	default:
		// slow consumer: drop instead of blocking the hub
	}
}

// ReadLoop decodes client events until the connection dies and hands each
// one to fn. Runs on the caller's goroutine.
func (c *Client) ReadLoop(ctx context.Context, fn func(ClientEvent)) {
	for {
		var ev ClientEvent
		if err := wsjson.Read(ctx, c.Conn, &ev); err != nil {
			return
		}
		fn(ev)
	}
}

// writeLoop drains Send until the client is cancelled. Send is never closed:
// a broadcaster that grabbed the client just before teardown may still push
// to it, and a send on a closed channel would panic the broadcast.
func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.Send:
			writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = wsjson.Write(writeCtx, c.Conn, ev)
			cancel()
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.Conn.Ping(pingCtx)
			cancel()
		}
	}
}
