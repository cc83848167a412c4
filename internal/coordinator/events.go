package coordinator

import (
	"time"

	"github.com/aubus-project/aubus/internal/presence"
)

// Push payload shapes. Field names are the wire contract consumed by client
// UIs; see pkg/protocol for the message types that carry them.

// DriverResponse is pushed to the passenger when a driver accepts or
// declines. On acceptance it carries the driver's direct-chat address when
// one was announced, so the passenger can open a peer channel immediately.
type DriverResponse struct {
	RideID         uint               `json:"ride_id"`
	Status         string             `json:"status"`
	DriverID       uint               `json:"driver_id"`
	DriverName     string             `json:"driver_name"`
	DriverUsername string             `json:"driver_username"`
	Peer           *presence.PeerAddr `json:"peer,omitempty"`
}

// RideUnavailable is pushed to every other offer-holder once a ride closes.
type RideUnavailable struct {
	RideID uint `json:"ride_id"`
}

// RideStatusChange is pushed to both parties on start/complete/cancel.
type RideStatusChange struct {
	RideID uint   `json:"ride_id"`
	Status string `json:"status"`
}

// Event is the ride-lifecycle record published to the optional stream sink.
type Event struct {
	Type        string    `json:"type"`
	RideID      uint      `json:"ride_id"`
	PassengerID uint      `json:"passenger_id"`
	DriverID    *uint     `json:"driver_id,omitempty"`
	At          time.Time `json:"at"`
}

// EventSink receives ride lifecycle events. Implementations must be safe for
// concurrent use; delivery is best-effort.
type EventSink interface {
	Publish(Event)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}
