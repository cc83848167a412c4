package server

import (
	"time"

	"github.com/aubus-project/aubus/internal/models"
	"github.com/aubus-project/aubus/pkg/protocol"
)

func (s *Server) handleListContacts(sess *session, _ map[string]any) {
	contacts, err := s.store.Contacts(sess.user.ID)
	if err != nil {
		sess.fail(protocol.TypeError, "could not list contacts")
		return
	}
	sess.respond(&protocol.Message{
		Type:    protocol.TypeContacts,
		Payload: protocol.Payload(map[string]any{"contacts": contacts}),
	})
}

func (s *Server) handleFetchMessages(sess *session, p map[string]any) {
	partnerID := protocol.Uint(p, "partner_id")
	msgs, err := s.store.FetchMessages(sess.user.ID, partnerID, protocol.Int(p, "limit"))
	if err != nil {
		sess.fail(protocol.TypeError, "could not fetch messages")
		return
	}
	out := make([]map[string]any, 0, len(msgs))
	for i := range msgs {
		out = append(out, s.wireMessage(&msgs[i]))
	}
	sess.respond(&protocol.Message{
		Type:    protocol.TypeMessages,
		Payload: map[string]any{"messages": out},
	})
}

// wireMessage flattens a stored message for the wire, fetching offloaded
// attachment data back inline. A blob fetch failure degrades to a message
// without its attachment rather than failing the whole history.
func (s *Server) wireMessage(m *models.Message) map[string]any {
	data := m.AttachmentData
	if data == "" && m.AttachmentKey != "" && s.blobs != nil {
		if blob, err := s.blobs.Get(m.AttachmentKey); err == nil {
			data = string(blob)
		} else {
			s.logger.Warn("attachment fetch failed", "key", m.AttachmentKey, "error", err)
		}
	}
	return map[string]any{
		"id":                  m.ID,
		"sender_id":           m.SenderID,
		"receiver_id":         m.ReceiverID,
		"message":             m.Body,
		"sent_at":             m.SentAt.Format(time.RFC3339),
		"attachment_filename": m.AttachmentFilename,
		"attachment_mime":     m.AttachmentMime,
		"attachment_data":     data,
	}
}

func (s *Server) handleSendMessage(sess *session, p map[string]any) {
	to := protocol.String(p, "to")
	body := protocol.String(p, "message")
	if to == "" {
		sess.fail(protocol.TypeSendMessageFail, "recipient is required")
		return
	}
	recipient, err := s.store.GetUserByUsername(to)
	if err != nil {
		sess.fail(protocol.TypeSendMessageFail, "unknown recipient")
		return
	}

	msg := &models.Message{
		SenderID:           sess.user.ID,
		ReceiverID:         recipient.ID,
		Body:               body,
		AttachmentFilename: protocol.String(p, "attachment_filename"),
		AttachmentMime:     protocol.String(p, "attachment_mime"),
		AttachmentData:     protocol.String(p, "attachment_data"),
	}

	// Large attachments go to blob storage; the messages table keeps a key.
	inline := msg.AttachmentData
	if s.blobs != nil && len(inline) > s.cfg.AttachmentInlineLimit {
		key, err := s.blobs.Put(msg.AttachmentFilename, msg.AttachmentMime, []byte(inline))
		if err != nil {
			sess.fail(protocol.TypeSendMessageFail, "could not store attachment")
			return
		}
		msg.AttachmentKey = key
		msg.AttachmentData = ""
	}

	if err := s.coord.RelayMessage(msg, sess.user.Username, inline); err != nil {
		sess.fail(protocol.TypeSendMessageFail, "could not save message")
		return
	}
	sess.respond(&protocol.Message{
		Type:    protocol.TypeSendMessageOK,
		Payload: map[string]any{"sent_at": msg.SentAt.Format(time.RFC3339)},
	})
}
