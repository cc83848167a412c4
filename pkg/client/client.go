// Package client is the connection multiplexer used by every frontend: one
// TCP connection to the server carries both synchronous request/response
// pairs and unsolicited async events. At most one synchronous call may be in
// flight; a background reader routes each incoming frame either to the
// waiting caller or onto the FIFO event queue.
package client

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/aubus-project/aubus/pkg/protocol"
)

var (
	ErrNotConnected   = errors.New("client: not connected")
	ErrBusy           = errors.New("client: another request is in flight")
	ErrTimeout        = errors.New("client: timed out waiting for response")
	ErrConnectionLost = errors.New("client: connection lost")
)

// DefaultCallTimeout bounds how long a synchronous call waits for its
// response before the expectation is cleared.
const DefaultCallTimeout = 10 * time.Second

type pendingCall struct {
	expect map[string]bool
	ch     chan *protocol.Message
}

// eventQueue is the unbounded FIFO between the connection reader and the
// consumer-facing events channel. The reader must never block on a slow
// consumer, or an undrained backlog of pushes would stall the frame that
// completes the in-flight call. push stages the frame in a slice; a pump
// goroutine feeds the channel at whatever pace the consumer reads.
type eventQueue struct {
	mu     sync.Mutex
	ready  *sync.Cond
	items  []*protocol.Message
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) push(msg *protocol.Message) {
	q.mu.Lock()
	if !q.closed {
		q.items = append(q.items, msg)
		q.ready.Signal()
	}
	q.mu.Unlock()
}

// close stops accepting events. Already-queued events still drain.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.ready.Signal()
	q.mu.Unlock()
}

// pump moves queued events onto out in order until the queue is closed and
// drained, then closes out.
func (q *eventQueue) pump(out chan<- *protocol.Message) {
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.ready.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			close(out)
			return
		}
		msg := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()
		out <- msg
	}
}

type Client struct {
	timeout time.Duration

	mu       sync.Mutex
	conn     net.Conn
	writer   *protocol.Writer
	pending  *pendingCall
	closed   bool
	quitting bool // Disconnect was requested; suppress CONNECTION_LOST
	peers    map[string]peerAddr

	events chan *protocol.Message
}

func New() *Client {
	return &Client{
		timeout: DefaultCallTimeout,
		peers:   make(map[string]peerAddr),
	}
}

// WithTimeout overrides the synchronous call timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// Connect dials the server and starts the background reader.
func (c *Client) Connect(addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && !c.closed {
		return errors.New("client: already connected")
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	c.conn = conn
	c.writer = protocol.NewWriter(conn)
	c.closed = false
	c.quitting = false
	c.events = make(chan *protocol.Message)
	queue := newEventQueue()
	go queue.pump(c.events)
	go c.readLoop(conn, queue)
	return nil
}

// Disconnect closes the connection. No CONNECTION_LOST event is queued for
// an intentional close.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.quitting = true
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Events returns the async event queue. Events arrive in the order the
// server sent them; the channel closes after the connection ends, with a
// final CONNECTION_LOST event if the close was not requested.
func (c *Client) Events() <-chan *protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// readLoop routes every inbound frame. A frame whose type the pending call
// expects completes that call; anything else goes onto the event queue
// without blocking. The loop owns connection teardown: it fails the pending
// call and closes the event queue on exit.
func (c *Client) readLoop(conn net.Conn, queue *eventQueue) {
	reader := protocol.NewReader(conn)
	for {
		msg, err := reader.ReadMessage()
		if err != nil {
			break
		}

		c.mu.Lock()
		if c.pending != nil && c.pending.expect[msg.Type] {
			pending := c.pending
			c.pending = nil
			c.mu.Unlock()
			pending.ch <- msg
			continue
		}
		c.mu.Unlock()

		queue.push(msg)
	}

	c.mu.Lock()
	c.closed = true
	quitting := c.quitting
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	conn.Close()
	if pending != nil {
		close(pending.ch)
	}
	if !quitting {
		queue.push(&protocol.Message{Type: protocol.TypeConnectionLost})
	}
	queue.close()
}

// Call sends one request and waits for a response whose type is in expect.
// ERROR is always an accepted response type. Only one call may be in flight;
// concurrent callers get ErrBusy. On timeout the expectation is cleared, so
// a late response is delivered as an async event instead of completing a
// different call.
func (c *Client) Call(msgType string, payload map[string]any, expect ...string) (*protocol.Message, error) {
	c.mu.Lock()
	if c.conn == nil || c.closed {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	if c.pending != nil {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	expectSet := make(map[string]bool, len(expect)+1)
	for _, t := range expect {
		expectSet[t] = true
	}
	expectSet[protocol.TypeError] = true
	pending := &pendingCall{expect: expectSet, ch: make(chan *protocol.Message, 1)}
	c.pending = pending
	writer := c.writer
	c.mu.Unlock()

	if err := writer.WriteMessage(&protocol.Message{Type: msgType, Payload: payload}); err != nil {
		c.mu.Lock()
		if c.pending == pending {
			c.pending = nil
		}
		c.mu.Unlock()
		return nil, ErrConnectionLost
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case msg, ok := <-pending.ch:
		if !ok {
			return nil, ErrConnectionLost
		}
		return msg, nil
	case <-timer.C:
		c.mu.Lock()
		if c.pending == pending {
			c.pending = nil
		}
		c.mu.Unlock()
		// The reader may have completed the call in the same instant.
		select {
		case msg, ok := <-pending.ch:
			if ok {
				return msg, nil
			}
			return nil, ErrConnectionLost
		default:
		}
		return nil, ErrTimeout
	}
}
