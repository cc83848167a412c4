package server

import (
	"github.com/aubus-project/aubus/internal/models"
	"github.com/aubus-project/aubus/pkg/protocol"
)

func (s *Server) handleAddSchedule(sess *session, p map[string]any) {
	entry := &models.ScheduleEntry{
		UserID:    sess.user.ID,
		Day:       protocol.String(p, "day"),
		Time:      protocol.String(p, "time"),
		Direction: protocol.String(p, "direction"),
		Area:      protocol.String(p, "area"),
	}
	if entry.Day == "" || entry.Time == "" || entry.Direction == "" {
		sess.fail(protocol.TypeError, "day, time and direction are required")
		return
	}
	if err := s.store.AddSchedule(entry); err != nil {
		sess.fail(protocol.TypeError, "could not add schedule entry")
		return
	}
	sess.respond(&protocol.Message{
		Type:    protocol.TypeAddScheduleOK,
		Payload: map[string]any{"schedule_id": entry.ID},
	})
}

func (s *Server) handleListSchedule(sess *session, _ map[string]any) {
	entries, err := s.store.ListSchedule(sess.user.ID)
	if err != nil {
		sess.fail(protocol.TypeError, "could not list schedule")
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"schedule_id": e.ID,
			"day":         e.Day,
			"time":        e.Time,
			"direction":   e.Direction,
			"area":        e.Area,
		})
	}
	sess.respond(&protocol.Message{
		Type:    protocol.TypeScheduleList,
		Payload: map[string]any{"entries": out},
	})
}

func (s *Server) handleDeleteSchedule(sess *session, p map[string]any) {
	if err := s.store.DeleteScheduleEntry(protocol.Uint(p, "schedule_id"), sess.user.ID); err != nil {
		sess.fail(protocol.TypeError, "schedule entry not found")
		return
	}
	sess.respond(&protocol.Message{Type: protocol.TypeDeleteScheduleOK})
}
