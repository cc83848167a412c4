package client

import (
	"time"

	"github.com/aubus-project/aubus/pkg/peer"
	"github.com/aubus-project/aubus/pkg/protocol"
)

type peerAddr struct {
	ip   string
	port int
}

// RememberPeer caches a contact's direct-chat address, typically learned
// from the peer field of an accept push.
func (c *Client) RememberPeer(username, ip string, port int) {
	if username == "" || ip == "" || port <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[username] = peerAddr{ip: ip, port: port}
}

// ForgetPeer drops a cached address, e.g. after a failed direct delivery.
func (c *Client) ForgetPeer(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.peers, username)
}

func (c *Client) peerFor(username string) (peerAddr, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	addr, ok := c.peers[username]
	return addr, ok
}

// SendChat delivers a chat message, peer-first. With a cached direct address
// for the recipient it dials them and delivers a CHAT_PEER frame itself; on
// any failure, or with no address, it falls back to the server relay, which
// persists the message and pushes it when the recipient is online. The
// returned flag reports whether delivery was direct; the response message is
// nil in that case.
func (c *Client) SendChat(from, to, body string, attachment map[string]any, dialWait time.Duration) (bool, *protocol.Message, error) {
	if addr, ok := c.peerFor(to); ok {
		payload := map[string]any{
			"from":    from,
			"message": body,
		}
		for k, v := range attachment {
			payload[k] = v
		}
		err := peer.Send(addr.ip, addr.port, &protocol.Message{
			Type:    protocol.TypeChatPeer,
			Payload: payload,
		}, dialWait)
		if err == nil {
			return true, nil, nil
		}
		// Stale address; relay instead and stop trying it.
		c.ForgetPeer(to)
	}

	resp, err := c.SendMessage(to, body, attachment)
	return false, resp, err
}
