package client

import (
	"net"
	"testing"
	"time"

	"github.com/aubus-project/aubus/pkg/peer"
	"github.com/aubus-project/aubus/pkg/protocol"
)

func TestSendChatPeerFirst(t *testing.T) {
	addr := fakeServer(t, func(r *protocol.Reader, w *protocol.Writer, _ net.Conn) {
		for {
			msg, err := r.ReadMessage()
			if err != nil {
				return
			}
			if msg.Type == protocol.TypeSendMessage {
				w.WriteMessage(&protocol.Message{
					Type:    protocol.TypeSendMessageOK,
					Payload: map[string]any{"sent_at": "2026-01-05T08:00:00Z"},
				})
			}
		}
	})

	c := connect(t, addr)
	defer drain(c)
	defer c.Disconnect()

	received := make(chan *protocol.Message, 1)
	l, port, err := peer.Listen(func(msg *protocol.Message) { received <- msg })
	if err != nil {
		t.Fatalf("peer listen: %v", err)
	}

	// With a cached address, delivery goes direct and never hits the server.
	c.RememberPeer("bob", "127.0.0.1", port)
	direct, resp, err := c.SendChat("alice", "bob", "hi", nil, time.Second)
	if err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	if !direct || resp != nil {
		t.Errorf("direct = %v resp = %v, want direct delivery", direct, resp)
	}
	select {
	case msg := <-received:
		if protocol.String(msg.Payload, "from") != "alice" {
			t.Errorf("peer frame = %v", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("peer never received the frame")
	}

	// Kill the peer endpoint: the next send falls back to the server relay
	// and drops the stale address.
	l.Close()
	direct, resp, err = c.SendChat("alice", "bob", "hi again", nil, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("SendChat fallback: %v", err)
	}
	if direct {
		t.Error("delivery claimed direct against a closed peer")
	}
	if resp == nil || resp.Type != protocol.TypeSendMessageOK {
		t.Errorf("relay resp = %v", resp)
	}
	if _, ok := c.peerFor("bob"); ok {
		t.Error("stale peer address not forgotten after a failed dial")
	}
}

func TestSendChatWithoutPeerGoesToRelay(t *testing.T) {
	addr := fakeServer(t, func(r *protocol.Reader, w *protocol.Writer, _ net.Conn) {
		for {
			msg, err := r.ReadMessage()
			if err != nil {
				return
			}
			if msg.Type == protocol.TypeSendMessage {
				w.WriteMessage(&protocol.Message{Type: protocol.TypeSendMessageOK})
			}
		}
	})

	c := connect(t, addr)
	defer drain(c)
	defer c.Disconnect()

	direct, resp, err := c.SendChat("alice", "bob", "hi", nil, time.Second)
	if err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	if direct || resp == nil || resp.Type != protocol.TypeSendMessageOK {
		t.Errorf("direct = %v resp = %v", direct, resp)
	}
}
