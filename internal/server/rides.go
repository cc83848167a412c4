package server

import (
	"errors"

	"github.com/aubus-project/aubus/internal/coordinator"
	"github.com/aubus-project/aubus/pkg/protocol"
)

func (s *Server) handleBroadcastRideRequest(sess *session, p map[string]any) {
	rideID, err := s.coord.BroadcastRequest(
		sess.user.ID,
		protocol.String(p, "direction"),
		protocol.String(p, "day"),
		protocol.String(p, "time"),
		protocol.String(p, "area"),
	)
	if err != nil {
		if errors.Is(err, coordinator.ErrNoDrivers) {
			sess.respond(&protocol.Message{Type: protocol.TypeNoDriversFound})
			return
		}
		sess.fail(protocol.TypeError, "could not broadcast ride request")
		return
	}
	sess.respond(&protocol.Message{
		Type:    protocol.TypeBroadcastOK,
		Payload: map[string]any{"ride_id": rideID},
	})
}

func (s *Server) handleFetchRideRequests(sess *session, _ map[string]any) {
	requests, err := s.store.RideRequestsForDriver(sess.user.ID)
	if err != nil {
		sess.fail(protocol.TypeError, "could not fetch ride requests")
		return
	}
	sess.respond(&protocol.Message{
		Type:    protocol.TypeRideRequestList,
		Payload: protocol.Payload(map[string]any{"requests": requests}),
	})
}

func (s *Server) handleDriverResponse(sess *session, p map[string]any) {
	status := protocol.String(p, "status")
	driverID := protocol.Uint(p, "driver_id")
	if driverID == 0 {
		driverID = sess.user.ID
	}
	err := s.coord.Respond(protocol.Uint(p, "ride_id"), driverID, status)
	if err != nil {
		sess.fail(protocol.TypeDriverResponseFail, respondReason(err))
		return
	}
	sess.respond(&protocol.Message{
		Type:    protocol.TypeDriverResponseOK,
		Payload: map[string]any{"status": status},
	})
}

func (s *Server) handleFetchRides(sess *session, _ map[string]any) {
	rides, err := s.store.UserRides(sess.user.ID)
	if err != nil {
		sess.fail(protocol.TypeError, "could not fetch rides")
		return
	}
	sess.respond(&protocol.Message{
		Type:    protocol.TypeRidesList,
		Payload: protocol.Payload(map[string]any{"rides": rides}),
	})
}

func (s *Server) handleStartRide(sess *session, p map[string]any) {
	if err := s.coord.StartRide(protocol.Uint(p, "ride_id"), sess.user.ID); err != nil {
		sess.fail(protocol.TypeStartRideFail, respondReason(err))
		return
	}
	sess.respond(&protocol.Message{Type: protocol.TypeStartRideOK})
}

func (s *Server) handleCompleteRide(sess *session, p map[string]any) {
	if err := s.coord.CompleteRide(protocol.Uint(p, "ride_id"), sess.user.ID); err != nil {
		sess.fail(protocol.TypeCompleteRideFail, respondReason(err))
		return
	}
	sess.respond(&protocol.Message{Type: protocol.TypeCompleteRideOK})
}

func (s *Server) handleCancelRide(sess *session, p map[string]any) {
	if err := s.coord.CancelRide(protocol.Uint(p, "ride_id"), sess.user.ID); err != nil {
		sess.fail(protocol.TypeCancelRideFail, respondReason(err))
		return
	}
	sess.respond(&protocol.Message{Type: protocol.TypeCancelRideOK})
}

func (s *Server) handleUpdateRating(sess *session, p map[string]any) {
	raterID := protocol.Uint(p, "rater_user_id")
	if raterID == 0 {
		raterID = sess.user.ID
	}
	err := s.coord.Rate(protocol.Uint(p, "ride_id"), raterID, protocol.Int(p, "rating"))
	if err != nil {
		sess.fail(protocol.TypeUpdateRatingFail, respondReason(err))
		return
	}
	sess.respond(&protocol.Message{Type: protocol.TypeUpdateRatingOK})
}

// respondReason maps coordinator errors to wire-safe reason strings.
func respondReason(err error) string {
	switch {
	case errors.Is(err, coordinator.ErrRideNotFound):
		return "ride not found"
	case errors.Is(err, coordinator.ErrRideClosed):
		return "ride is no longer available"
	case errors.Is(err, coordinator.ErrNotParticipant):
		return "not a participant of this ride"
	case errors.Is(err, coordinator.ErrInvalidTransition):
		return "ride is not in a valid state for this action"
	case errors.Is(err, coordinator.ErrInvalidRating):
		return "rating must be between 1 and 5"
	case errors.Is(err, coordinator.ErrRatingWindowClosed):
		return "rating window has closed"
	default:
		return "internal error"
	}
}
