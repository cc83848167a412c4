package server

import (
	"errors"
	"net"
	"strings"

	"github.com/aubus-project/aubus/internal/models"
	"github.com/aubus-project/aubus/internal/observability"
	"github.com/aubus-project/aubus/internal/presence"
	"github.com/aubus-project/aubus/internal/store"
	"github.com/aubus-project/aubus/pkg/protocol"
	"github.com/aubus-project/aubus/pkg/utils"
)

func (s *Server) handleRegister(sess *session, p map[string]any) {
	user := &models.User{
		Name:     protocol.String(p, "name"),
		Email:    protocol.String(p, "email"),
		Username: protocol.String(p, "username"),
		Password: protocol.String(p, "password"),
		Area:     protocol.String(p, "area"),
		IsDriver: strings.EqualFold(protocol.String(p, "role"), models.RoleDriver),
	}
	if user.Username == "" || user.Password == "" {
		sess.fail(protocol.TypeRegisterFail, "username and password are required")
		return
	}

	var schedule store.InitialSchedule
	if raw, ok := p["schedule"].(map[string]any); ok {
		schedule = make(store.InitialSchedule, len(raw))
		for day, routes := range raw {
			m, ok := routes.(map[string]any)
			if !ok {
				continue
			}
			schedule[day] = make(map[string]string, len(m))
			for direction, at := range m {
				if t, ok := at.(string); ok {
					schedule[day][direction] = t
				}
			}
		}
	}

	if err := s.store.CreateUser(user, schedule); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			sess.fail(protocol.TypeRegisterFail, "username already taken")
			return
		}
		sess.fail(protocol.TypeRegisterFail, "registration failed")
		return
	}
	sess.respond(&protocol.Message{Type: protocol.TypeRegisterOK})
}

func (s *Server) handleLogin(sess *session, p map[string]any) {
	user, err := s.store.Authenticate(protocol.String(p, "username"), protocol.String(p, "password"))
	if err != nil {
		sess.respond(&protocol.Message{Type: protocol.TypeLoginFail})
		return
	}
	s.completeLogin(sess, user)
}

func (s *Server) handleTokenLogin(sess *session, p map[string]any) {
	userID, err := utils.ValidateToken(protocol.String(p, "token"))
	if err != nil {
		sess.respond(&protocol.Message{Type: protocol.TypeLoginFail})
		return
	}
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		sess.respond(&protocol.Message{Type: protocol.TypeLoginFail})
		return
	}
	s.completeLogin(sess, user)
}

func (s *Server) completeLogin(sess *session, user *models.User) {
	if sess.client != nil {
		// Re-login on the same connection: drop the old identity first.
		s.registry.Remove(sess.client)
		observability.ClientsConnected.Dec()
	}
	sess.user = user
	sess.client = presence.NewClient(user.ID, user.Username, sess.writer, s.cfg.PushBuffer)
	s.registry.Add(sess.client)
	observability.ClientsConnected.Inc()

	token, _ := utils.GenerateToken(user)
	sess.respond(&protocol.Message{
		Type: protocol.TypeLoginOK,
		Payload: map[string]any{
			"user_id":       user.ID,
			"name":          user.Name,
			"email":         user.Email,
			"username":      user.Username,
			"is_driver":     user.IsDriver,
			"area":          user.Area,
			"role_selected": user.RoleSelected,
			"token":         token,
		},
	})
	s.logger.Info("client logged in", "username", user.Username, "user_id", user.ID)
}

// handleAnnouncePeer records where this client accepts direct chat
// connections. The IP comes from the connection itself, not the payload; a
// client cannot announce an address it does not hold.
func (s *Server) handleAnnouncePeer(sess *session, p map[string]any) {
	port := protocol.Int(p, "port")
	if port <= 0 || port > 65535 {
		sess.fail(protocol.TypeAnnounceFail, "invalid port")
		return
	}
	host, _, err := net.SplitHostPort(sess.conn.RemoteAddr().String())
	if err != nil {
		sess.fail(protocol.TypeAnnounceFail, "cannot resolve remote address")
		return
	}
	sess.client.SetPeer(presence.PeerAddr{IP: host, Port: port})
	sess.respond(&protocol.Message{Type: protocol.TypeAnnounceOK})
}

func (s *Server) handleSetRole(sess *session, p map[string]any) {
	role := strings.ToLower(protocol.String(p, "role"))
	if role != models.RoleDriver && role != models.RolePassenger {
		sess.fail(protocol.TypeSetRoleFail, "role must be driver or passenger")
		return
	}
	isDriver := role == models.RoleDriver
	area := protocol.String(p, "area")

	var minRating *int
	if _, ok := p["min_rating"]; ok {
		v := protocol.Int(p, "min_rating")
		if v < 0 || v > 5 {
			sess.fail(protocol.TypeSetRoleFail, "min_rating must be between 0 and 5")
			return
		}
		minRating = &v
	}

	if err := s.store.SetUserRole(sess.user.ID, isDriver, area, minRating); err != nil {
		sess.fail(protocol.TypeSetRoleFail, "could not update role")
		return
	}
	sess.user.IsDriver = isDriver
	sess.user.Area = area
	sess.user.RoleSelected = true
	if minRating != nil {
		sess.user.MinRating = *minRating
	}
	sess.respond(&protocol.Message{Type: protocol.TypeSetRoleOK})
}
