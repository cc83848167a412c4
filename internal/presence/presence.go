// Package presence tracks which users are connected right now and how to
// reach them: their server connection for async pushes and, if announced,
// the address where their client accepts direct peer connections. Nothing
// here is persisted; entries live from login to disconnect.
package presence

import (
	"sync"

	"github.com/aubus-project/aubus/pkg/protocol"
)

// PeerAddr is a client's announced direct-chat endpoint.
type PeerAddr struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// MessageWriter is the outbound half of a client connection.
type MessageWriter interface {
	WriteMessage(*protocol.Message) error
}

// Client is one logged-in connection. All outbound traffic funnels through a
// single writer goroutine so responses and pushes never interleave on the
// wire. Send blocks (it is the client's own traffic); TrySend drops when the
// queue is full so a slow client never stalls whoever is pushing to it.
type Client struct {
	UserID   uint
	Username string

	mu   sync.Mutex
	peer *PeerAddr

	send chan *protocol.Message
	done chan struct{}
	once sync.Once
}

func NewClient(userID uint, username string, w MessageWriter, buffer int) *Client {
	c := &Client{
		UserID:   userID,
		Username: username,
		send:     make(chan *protocol.Message, buffer),
		done:     make(chan struct{}),
	}
	go c.writePump(w)
	return c
}

func (c *Client) writePump(w MessageWriter) {
	for {
		select {
		case msg := <-c.send:
			if err := w.WriteMessage(msg); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send queues a message, waiting for room. Returns false once the client is
// closed.
func (c *Client) Send(msg *protocol.Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}

// TrySend queues a message without blocking. Returns false if the queue is
// full or the client is closed.
func (c *Client) TrySend(msg *protocol.Message) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// SetPeer records the announced direct-chat endpoint.
func (c *Client) SetPeer(addr PeerAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peer = &addr
}

// Peer returns the announced endpoint, or nil.
func (c *Client) Peer() *PeerAddr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.peer == nil {
		return nil
	}
	addr := *c.peer
	return &addr
}

// Registry maps logged-in usernames to their client entries. It has its own
// locking discipline, independent of the ride-mutation critical section.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*Client
	byUserID map[uint]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]*Client),
		byUserID: make(map[uint]*Client),
	}
}

// Add registers a client, replacing (and closing) any previous connection
// for the same username.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	prev := r.byName[c.Username]
	r.byName[c.Username] = c
	r.byUserID[c.UserID] = c
	r.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

// Remove drops a client, but only if it is still the registered entry for
// its username; a reconnect that already replaced it is left alone.
func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	if r.byName[c.Username] == c {
		delete(r.byName, c.Username)
	}
	if r.byUserID[c.UserID] == c {
		delete(r.byUserID, c.UserID)
	}
	r.mu.Unlock()
	c.Close()
}

func (r *Registry) Get(username string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[username]
	return c, ok
}

func (r *Registry) GetByUserID(userID uint) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUserID[userID]
	return c, ok
}

// PushToUser queues an async event for a connected user. Fire-and-forget:
// returns false when the user is offline or their queue was full.
func (r *Registry) PushToUser(userID uint, msg *protocol.Message) bool {
	c, ok := r.GetByUserID(userID)
	if !ok {
		return false
	}
	return c.TrySend(msg)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
