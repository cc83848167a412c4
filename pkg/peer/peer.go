// Package peer implements the direct client-to-client chat channel. A peer
// connection is one-shot: dial, deliver a single CHAT_PEER frame, close.
// Delivery is best effort; callers fall back to server relay on any error.
package peer

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/aubus-project/aubus/pkg/protocol"
)

// Handler receives each frame delivered to a Listener.
type Handler func(*protocol.Message)

// Listener accepts one-shot peer connections on an ephemeral port.
type Listener struct {
	ln      net.Listener
	handler Handler

	mu     sync.Mutex
	closed bool
}

// Listen binds an ephemeral port and starts accepting. The returned port is
// what the client announces to the server.
func Listen(handler Handler) (*Listener, int, error) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return nil, 0, err
	}
	l := &Listener{ln: ln, handler: handler}
	go l.acceptLoop()
	port := ln.Addr().(*net.TCPAddr).Port
	return l, port, nil
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return
		}
		go l.handleConn(conn)
	}
}

// handleConn reads exactly one frame and hangs up. Anything malformed is
// silently dropped; the sender will retry through the server.
func (l *Listener) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msg, err := protocol.NewReader(conn).ReadMessage()
	if err != nil || msg.Type != protocol.TypeChatPeer {
		return
	}
	l.handler(msg)
}

func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.ln.Close()
}

// Send dials a peer and delivers one CHAT_PEER frame. dialWait bounds the
// whole attempt; a peer that cannot be reached within it is treated as
// offline.
func Send(ip string, port int, msg *protocol.Message, dialWait time.Duration) error {
	addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, dialWait)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetWriteDeadline(time.Now().Add(dialWait))
	return protocol.NewWriter(conn).WriteMessage(msg)
}
