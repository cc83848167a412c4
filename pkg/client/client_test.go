package client

import (
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/aubus-project/aubus/pkg/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeServer accepts one connection and hands it to script, which drives the
// server side of the exchange and returns when done.
func fakeServer(t *testing.T, script func(r *protocol.Reader, w *protocol.Writer, conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		script(protocol.NewReader(conn), protocol.NewWriter(conn), conn)
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
	})
	return ln.Addr().String()
}

func connect(t *testing.T, addr string) *Client {
	t.Helper()
	c := New()
	if err := c.Connect(addr); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c
}

// drain consumes the event channel until it closes, so reader goroutines can
// always finish.
func drain(c *Client) {
	for range c.Events() {
	}
}

func TestCallRoundTrip(t *testing.T) {
	addr := fakeServer(t, func(r *protocol.Reader, w *protocol.Writer, _ net.Conn) {
		msg, err := r.ReadMessage()
		if err != nil {
			return
		}
		if msg.Type != protocol.TypeLogin {
			return
		}
		w.WriteMessage(&protocol.Message{Type: protocol.TypeLoginOK, Payload: map[string]any{"user_id": 7}})
		r.ReadMessage() // wait for close
	})

	c := connect(t, addr)
	defer drain(c)
	defer c.Disconnect()

	resp, err := c.Login("maya", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Type != protocol.TypeLoginOK || protocol.Uint(resp.Payload, "user_id") != 7 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCallWhileNotConnected(t *testing.T) {
	c := New()
	if _, err := c.Call("X", nil, "X_OK"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestSecondCallWhileInFlightIsBusy(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	addr := fakeServer(t, func(r *protocol.Reader, w *protocol.Writer, _ net.Conn) {
		if _, err := r.ReadMessage(); err != nil {
			return
		}
		close(arrived)
		<-release
		w.WriteMessage(&protocol.Message{Type: "SLOW_OK"})
		r.ReadMessage()
	})

	c := connect(t, addr)
	defer drain(c)
	defer c.Disconnect()

	firstDone := make(chan error, 1)
	go func() {
		_, err := c.Call("SLOW", nil, "SLOW_OK")
		firstDone <- err
	}()

	// The server has the request, so the first call holds the slot.
	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("first call never reached the server")
	}
	if _, err := c.Call("SECOND", nil, "SECOND_OK"); !errors.Is(err, ErrBusy) {
		t.Fatalf("concurrent call err = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Errorf("first call failed: %v", err)
	}
}

func TestTimeoutClearsExpectation(t *testing.T) {
	proceed := make(chan struct{})
	addr := fakeServer(t, func(r *protocol.Reader, w *protocol.Writer, _ net.Conn) {
		if _, err := r.ReadMessage(); err != nil {
			return
		}
		<-proceed
		// Response arrives only after the caller gave up.
		w.WriteMessage(&protocol.Message{Type: "LATE_OK"})
		// Swallow everything else so later calls time out cleanly.
		for {
			if _, err := r.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := connect(t, addr).WithTimeout(50 * time.Millisecond)
	defer drain(c)
	defer c.Disconnect()

	if _, err := c.Call("LATE", nil, "LATE_OK"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	close(proceed)

	// The expectation is gone, so the late response surfaces as an async
	// event instead of completing some future call.
	select {
	case ev := <-c.Events():
		if ev.Type != "LATE_OK" {
			t.Errorf("event = %q, want the late response", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("late response never surfaced as an event")
	}

	// And the slot is free again.
	if _, err := c.Call("NEXT", nil, "NEXT_OK"); !errors.Is(err, ErrTimeout) {
		t.Errorf("next call err = %v, want a fresh ErrTimeout (server is idle)", err)
	}
}

func TestPushesQueueInOrderDuringCall(t *testing.T) {
	addr := fakeServer(t, func(r *protocol.Reader, w *protocol.Writer, _ net.Conn) {
		if _, err := r.ReadMessage(); err != nil {
			return
		}
		// Two pushes land before the response.
		w.WriteMessage(&protocol.Message{Type: protocol.TypeRideRequest, Payload: map[string]any{"ride_id": 1}})
		w.WriteMessage(&protocol.Message{Type: protocol.TypeChatMessage, Payload: map[string]any{"message": "hi"}})
		w.WriteMessage(&protocol.Message{Type: "FETCH_OK"})
		r.ReadMessage()
	})

	c := connect(t, addr)
	defer drain(c)
	defer c.Disconnect()

	resp, err := c.Call("FETCH", nil, "FETCH_OK")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Type != "FETCH_OK" {
		t.Errorf("resp = %q", resp.Type)
	}

	first := <-c.Events()
	second := <-c.Events()
	if first.Type != protocol.TypeRideRequest || second.Type != protocol.TypeChatMessage {
		t.Errorf("event order = [%s %s], want [RIDE_REQUEST CHAT_MESSAGE]", first.Type, second.Type)
	}
}

func TestEventBacklogDoesNotStallCall(t *testing.T) {
	// A burst of pushes larger than any fixed buffer lands before the
	// response. Nothing reads the event channel yet, so the call only
	// completes if the reader never blocks on the backlog.
	const burst = 200
	addr := fakeServer(t, func(r *protocol.Reader, w *protocol.Writer, _ net.Conn) {
		if _, err := r.ReadMessage(); err != nil {
			return
		}
		for i := 0; i < burst; i++ {
			w.WriteMessage(&protocol.Message{Type: protocol.TypeChatMessage, Payload: map[string]any{"seq": i}})
		}
		w.WriteMessage(&protocol.Message{Type: "FETCH_OK"})
		r.ReadMessage()
	})

	c := connect(t, addr).WithTimeout(2 * time.Second)
	defer drain(c)
	defer c.Disconnect()

	resp, err := c.Call("FETCH", nil, "FETCH_OK")
	if err != nil {
		t.Fatalf("Call with undrained backlog: %v", err)
	}
	if resp.Type != "FETCH_OK" {
		t.Fatalf("resp = %q", resp.Type)
	}

	// Every queued push is still there, in order.
	for i := 0; i < burst; i++ {
		select {
		case ev := <-c.Events():
			if protocol.Int(ev.Payload, "seq") != i {
				t.Fatalf("event %d out of order: %+v", i, ev.Payload)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d never delivered", i)
		}
	}
}

func TestServerCloseSynthesizesConnectionLost(t *testing.T) {
	addr := fakeServer(t, func(r *protocol.Reader, _ *protocol.Writer, conn net.Conn) {
		if _, err := r.ReadMessage(); err != nil {
			return
		}
		conn.Close()
	})

	c := connect(t, addr)

	// A call in flight when the connection dies fails with ErrConnectionLost.
	if _, err := c.Call("ANY", nil, "ANY_OK"); !errors.Is(err, ErrConnectionLost) {
		t.Errorf("err = %v, want ErrConnectionLost", err)
	}

	ev, ok := <-c.Events()
	if !ok || ev.Type != protocol.TypeConnectionLost {
		t.Errorf("event = %v (%v), want CONNECTION_LOST", ev, ok)
	}
	if _, ok := <-c.Events(); ok {
		t.Error("event channel not closed after CONNECTION_LOST")
	}

	if _, err := c.Call("ANY", nil, "ANY_OK"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("post-loss call err = %v, want ErrNotConnected", err)
	}
}

func TestDisconnectIsQuiet(t *testing.T) {
	addr := fakeServer(t, func(r *protocol.Reader, _ *protocol.Writer, _ net.Conn) {
		r.ReadMessage()
	})

	c := connect(t, addr)
	c.Disconnect()

	// Intentional close: the channel drains and closes without a
	// CONNECTION_LOST event.
	for ev := range c.Events() {
		if ev.Type == protocol.TypeConnectionLost {
			t.Error("CONNECTION_LOST after an intentional Disconnect")
		}
	}
}
