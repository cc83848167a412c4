// Package server runs the TCP listener and translates wire messages into
// store, matcher and coordinator calls. One goroutine per connection reads
// requests; every outbound frame after login funnels through the session's
// presence client so responses and async pushes never interleave.
package server

import (
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/aubus-project/aubus/internal/attachments"
	"github.com/aubus-project/aubus/internal/config"
	"github.com/aubus-project/aubus/internal/coordinator"
	"github.com/aubus-project/aubus/internal/models"
	"github.com/aubus-project/aubus/internal/observability"
	"github.com/aubus-project/aubus/internal/presence"
	"github.com/aubus-project/aubus/internal/store"
	"github.com/aubus-project/aubus/pkg/protocol"
)

type Server struct {
	cfg      config.ServerConfig
	store    *store.Store
	coord    *coordinator.Coordinator
	registry *presence.Registry
	blobs    *attachments.Store
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

func New(cfg config.ServerConfig, st *store.Store, coord *coordinator.Coordinator, registry *presence.Registry, blobs *attachments.Store, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		coord:    coord,
		registry: registry,
		blobs:    blobs,
		logger:   logger,
	}
}

// ListenAndServe blocks, accepting connections until Close is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on an existing listener. Useful for tests that
// listen on an ephemeral port.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return net.ErrClosed
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// Addr returns the bound listener address, or empty before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		return ln.Close()
	}
	return nil
}

// session is one connection's state. user and client are nil until login.
type session struct {
	conn   net.Conn
	writer *protocol.Writer
	user   *models.User
	client *presence.Client
}

// respond sends the direct reply to a request. After login it rides the same
// queue as async pushes, blocking until there is room; before login it goes
// straight to the connection.
func (sess *session) respond(msg *protocol.Message) {
	if sess.client != nil {
		sess.client.Send(msg)
		return
	}
	sess.writer.WriteMessage(msg)
}

func (sess *session) fail(msgType, reason string) {
	sess.respond(&protocol.Message{
		Type:    msgType,
		Payload: map[string]any{"reason": reason},
	})
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	sess := &session{
		conn:   conn,
		writer: protocol.NewWriter(conn),
	}
	defer func() {
		if sess.client != nil {
			s.registry.Remove(sess.client)
			observability.ClientsConnected.Dec()
			s.logger.Info("client disconnected", "username", sess.client.Username)
		}
	}()

	reader := protocol.NewReader(conn)
	for {
		msg, err := reader.ReadMessage()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) || errors.Is(err, protocol.ErrTooLarge) {
				s.logger.Warn("dropping connection", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return
		}
		s.dispatch(sess, msg)
	}
}

func (s *Server) dispatch(sess *session, msg *protocol.Message) {
	observability.RequestsTotal.WithLabelValues(msg.Type).Inc()
	p := msg.Payload
	if p == nil {
		p = map[string]any{}
	}

	switch msg.Type {
	case protocol.TypeRegister:
		s.handleRegister(sess, p)
		return
	case protocol.TypeLogin:
		s.handleLogin(sess, p)
		return
	case protocol.TypeTokenLogin:
		s.handleTokenLogin(sess, p)
		return
	}

	if sess.user == nil {
		sess.fail(protocol.TypeError, "not logged in")
		return
	}

	switch msg.Type {
	case protocol.TypeAnnouncePeer:
		s.handleAnnouncePeer(sess, p)
	case protocol.TypeSetRole:
		s.handleSetRole(sess, p)
	case protocol.TypeAddSchedule:
		s.handleAddSchedule(sess, p)
	case protocol.TypeListSchedule:
		s.handleListSchedule(sess, p)
	case protocol.TypeDeleteSchedule:
		s.handleDeleteSchedule(sess, p)
	case protocol.TypeBroadcastRideRequest:
		s.handleBroadcastRideRequest(sess, p)
	case protocol.TypeFetchRideRequests:
		s.handleFetchRideRequests(sess, p)
	case protocol.TypeDriverResponse:
		s.handleDriverResponse(sess, p)
	case protocol.TypeFetchRides:
		s.handleFetchRides(sess, p)
	case protocol.TypeStartRide:
		s.handleStartRide(sess, p)
	case protocol.TypeCompleteRide:
		s.handleCompleteRide(sess, p)
	case protocol.TypeCancelRide:
		s.handleCancelRide(sess, p)
	case protocol.TypeUpdateRating:
		s.handleUpdateRating(sess, p)
	case protocol.TypeListContacts:
		s.handleListContacts(sess, p)
	case protocol.TypeFetchMessages:
		s.handleFetchMessages(sess, p)
	case protocol.TypeSendMessage:
		s.handleSendMessage(sess, p)
	default:
		sess.fail(protocol.TypeError, "unknown message type: "+msg.Type)
	}
}
