// Package coordinator is the server-side authority over the ride lifecycle:
// it creates multi-driver offer fan-outs, resolves exactly one acceptance per
// ride, advances ride state, enforces the rating window, and pushes
// notifications to affected parties.
package coordinator

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/aubus-project/aubus/internal/match"
	"github.com/aubus-project/aubus/internal/models"
	"github.com/aubus-project/aubus/internal/observability"
	"github.com/aubus-project/aubus/internal/presence"
	"github.com/aubus-project/aubus/internal/store"
	"github.com/aubus-project/aubus/pkg/protocol"
)

var (
	ErrNoDrivers          = errors.New("coordinator: no eligible drivers")
	ErrRideNotFound       = errors.New("coordinator: ride not found")
	ErrRideClosed         = errors.New("coordinator: ride is no longer available")
	ErrNotParticipant     = errors.New("coordinator: not a participant of this ride")
	ErrInvalidTransition  = errors.New("coordinator: invalid ride state for this action")
	ErrInvalidRating      = errors.New("coordinator: rating must be between 1 and 5")
	ErrRatingWindowClosed = errors.New("coordinator: rating window has closed")
)

type Coordinator struct {
	// mu serializes every read-then-write on Ride/RideOffer state. Accept,
	// deny, cancel and rate all depend on "check current status, then act"
	// being atomic. Operations on different rides share it too; at this
	// scale one section is enough (shard per ride id if it ever isn't).
	mu sync.Mutex

	store    *store.Store
	matcher  *match.Engine
	registry *presence.Registry
	sink     EventSink
	logger   *slog.Logger
}

func New(st *store.Store, matcher *match.Engine, registry *presence.Registry, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:    st,
		matcher:  matcher,
		registry: registry,
		sink:     nopSink{},
		logger:   logger,
	}
}

// WithSink attaches a ride-event sink (e.g. the kafka publisher).
func (c *Coordinator) WithSink(sink EventSink) *Coordinator {
	if sink != nil {
		c.sink = sink
	}
	return c
}

// BroadcastRequest matches a passenger's request against driver schedules and
// fans out offers. If no eligible driver exists nothing is persisted and
// ErrNoDrivers is returned; a ride row never exists without offers.
func (c *Coordinator) BroadcastRequest(passengerID uint, direction, day, at, area string) (uint, error) {
	observability.RidesRequestedTotal.Inc()

	passenger, err := c.store.GetUserByID(passengerID)
	if err != nil {
		return 0, err
	}

	candidates, err := c.matcher.FindDrivers(match.Request{
		Direction: direction,
		Day:       day,
		Time:      at,
		Area:      area,
		MinRating: passenger.MinRating,
	})
	if err != nil {
		return 0, err
	}

	// Two-sided gate: a driver only sees the request if the passenger's own
	// aggregate rating clears that driver's minimum-passenger preference.
	passengerAvg, err := c.store.AverageRating(passengerID, models.RolePassenger)
	if err != nil {
		return 0, err
	}
	driverIDs := make([]uint, 0, len(candidates))
	for _, cand := range candidates {
		if cand.ID == passengerID {
			continue
		}
		if passengerAvg < float64(cand.MinRating) {
			continue
		}
		driverIDs = append(driverIDs, cand.ID)
	}
	if len(driverIDs) == 0 {
		return 0, ErrNoDrivers
	}

	ride := &models.Ride{
		PassengerID: passengerID,
		Direction:   direction,
		Day:         day,
		Time:        at,
		Area:        area,
		Status:      models.RideStatusPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := c.store.CreateRideWithOffers(ride, driverIDs); err != nil {
		return 0, err
	}

	observability.RidesMatchedTotal.Inc()
	observability.OffersTotal.Add(float64(len(driverIDs)))

	item := store.RideRequestItem{
		RideID:        ride.ID,
		PassengerID:   passengerID,
		PassengerName: passenger.Name,
		Direction:     direction,
		Day:           day,
		Time:          at,
		Area:          area,
	}
	for _, driverID := range driverIDs {
		c.push(driverID, protocol.TypeRideRequest, item)
	}

	c.publish("ride_requested", ride)
	c.logger.Info("ride requested",
		"ride_id", ride.ID, "passenger_id", passengerID, "offers", len(driverIDs))
	return ride.ID, nil
}

// Respond applies a driver's answer to an open offer.
func (c *Coordinator) Respond(rideID, driverID uint, status string) error {
	switch strings.ToUpper(status) {
	case protocol.ResponseAccepted:
		return c.accept(rideID, driverID)
	case protocol.ResponseDenied:
		return c.deny(rideID, driverID)
	default:
		return ErrInvalidTransition
	}
}

// accept commits exactly one driver to a PENDING ride. The status check, the
// driver assignment and the offer sweep happen under the coordinator lock
// and inside one transaction: of N racing accepts, the first to enter wins
// and the rest observe ACCEPTED and get ErrRideClosed.
func (c *Coordinator) accept(rideID, driverID uint) error {
	// Loaded before the commit path: a lookup failure after the transaction
	// would fail a request whose acceptance already took effect.
	driver, err := c.store.GetUserByID(driverID)
	if err != nil {
		return err
	}

	c.mu.Lock()

	ride, err := c.store.GetRide(rideID)
	if err != nil {
		c.mu.Unlock()
		return ErrRideNotFound
	}
	if ride.Status != models.RideStatusPending {
		c.mu.Unlock()
		observability.AcceptRacesTotal.Inc()
		return ErrRideClosed
	}
	held, err := c.store.OfferExists(rideID, driverID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !held {
		c.mu.Unlock()
		return ErrRideClosed
	}

	losers, err := c.store.OfferDriverIDs(rideID)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	ride.DriverID = &driverID
	ride.Status = models.RideStatusAccepted
	err = c.store.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(ride).Error; err != nil {
			return err
		}
		return tx.Where("ride_id = ?", rideID).Delete(&models.RideOffer{}).Error
	})
	c.mu.Unlock()
	if err != nil {
		return err
	}

	for _, loser := range losers {
		if loser == driverID {
			continue
		}
		c.push(loser, protocol.TypeRideUnavailable, RideUnavailable{RideID: rideID})
	}

	resp := DriverResponse{
		RideID:         rideID,
		Status:         protocol.ResponseAccepted,
		DriverID:       driverID,
		DriverName:     driver.Name,
		DriverUsername: driver.Username,
	}
	if client, ok := c.registry.GetByUserID(driverID); ok {
		resp.Peer = client.Peer()
	}
	c.push(ride.PassengerID, protocol.TypeDriverResponsePush, resp)

	c.publish("ride_accepted", ride)
	c.logger.Info("ride accepted", "ride_id", rideID, "driver_id", driverID)
	return nil
}

// deny withdraws one driver's offer and tells the passenger. The ride stays
// PENDING for the remaining offer-holders; a ride whose every offer is
// denied stays PENDING with zero offers until the passenger cancels (no
// automatic expiry).
func (c *Coordinator) deny(rideID, driverID uint) error {
	driver, err := c.store.GetUserByID(driverID)
	if err != nil {
		return err
	}

	c.mu.Lock()

	ride, err := c.store.GetRide(rideID)
	if err != nil {
		c.mu.Unlock()
		return ErrRideNotFound
	}
	if ride.Status != models.RideStatusPending {
		c.mu.Unlock()
		return ErrRideClosed
	}
	held, err := c.store.OfferExists(rideID, driverID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !held {
		// A driver who was never offered the ride, or already withdrew, has
		// nothing to deny. Without this gate the passenger would see a DENIED
		// push from a non-candidate.
		c.mu.Unlock()
		return ErrRideClosed
	}
	if err := c.store.DeleteOffer(rideID, driverID); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	c.push(ride.PassengerID, protocol.TypeDriverResponsePush, DriverResponse{
		RideID:         rideID,
		Status:         protocol.ResponseDenied,
		DriverID:       driverID,
		DriverName:     driver.Name,
		DriverUsername: driver.Username,
	})

	c.publish("ride_denied", ride)
	c.logger.Info("ride denied", "ride_id", rideID, "driver_id", driverID)
	return nil
}

// StartRide moves an ACCEPTED ride to STARTED. Only the committed driver may
// start it.
func (c *Coordinator) StartRide(rideID, actorID uint) error {
	c.mu.Lock()

	ride, err := c.store.GetRide(rideID)
	if err != nil {
		c.mu.Unlock()
		return ErrRideNotFound
	}
	if ride.DriverID == nil || *ride.DriverID != actorID {
		c.mu.Unlock()
		return ErrNotParticipant
	}
	if ride.Status != models.RideStatusAccepted {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	ride.Status = models.RideStatusStarted
	ride.StartedAt = &now
	err = c.store.SaveRide(ride)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.pushToParties(ride, protocol.TypeRideStarted)
	c.publish("ride_started", ride)
	c.logger.Info("ride started", "ride_id", rideID)
	return nil
}

// CompleteRide moves a STARTED ride to COMPLETED and opens the rating-edit
// window. Either participant may complete.
func (c *Coordinator) CompleteRide(rideID, actorID uint) error {
	c.mu.Lock()

	ride, err := c.store.GetRide(rideID)
	if err != nil {
		c.mu.Unlock()
		return ErrRideNotFound
	}
	if !isParticipant(ride, actorID) {
		c.mu.Unlock()
		return ErrNotParticipant
	}
	if ride.Status != models.RideStatusStarted {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	ride.Status = models.RideStatusCompleted
	ride.CompletedAt = &now
	err = c.store.SaveRide(ride)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.pushToParties(ride, protocol.TypeRideCompleted)
	c.publish("ride_completed", ride)
	c.logger.Info("ride completed", "ride_id", rideID)
	return nil
}

// CancelRide is valid from any non-COMPLETED state. Open offers are swept in
// the same transaction so nothing dangles.
func (c *Coordinator) CancelRide(rideID, actorID uint) error {
	c.mu.Lock()

	ride, err := c.store.GetRide(rideID)
	if err != nil {
		c.mu.Unlock()
		return ErrRideNotFound
	}
	if !isParticipant(ride, actorID) {
		c.mu.Unlock()
		return ErrNotParticipant
	}
	if ride.Status == models.RideStatusCompleted || ride.Status == models.RideStatusCancelled {
		c.mu.Unlock()
		return ErrInvalidTransition
	}

	losers, err := c.store.OfferDriverIDs(rideID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	ride.Status = models.RideStatusCancelled
	err = c.store.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(ride).Error; err != nil {
			return err
		}
		return tx.Where("ride_id = ?", rideID).Delete(&models.RideOffer{}).Error
	})
	c.mu.Unlock()
	if err != nil {
		return err
	}

	for _, driverID := range losers {
		c.push(driverID, protocol.TypeRideUnavailable, RideUnavailable{RideID: rideID})
	}
	c.pushToParties(ride, protocol.TypeRideCancelled)
	c.publish("ride_cancelled", ride)
	c.logger.Info("ride cancelled", "ride_id", rideID, "by", actorID)
	return nil
}

// Rate upserts the rater's rating of the other party, only while the ride is
// COMPLETED and inside the 36-hour edit window. Attempts after the window
// are rejected, not ignored.
func (c *Coordinator) Rate(rideID, raterID uint, value int) error {
	if value < 1 || value > 5 {
		return ErrInvalidRating
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ride, err := c.store.GetRide(rideID)
	if err != nil {
		return ErrRideNotFound
	}
	if !isParticipant(ride, raterID) {
		return ErrNotParticipant
	}
	if ride.Status != models.RideStatusCompleted || ride.CompletedAt == nil {
		return ErrInvalidTransition
	}
	if time.Since(*ride.CompletedAt) > models.RatingEditWindow {
		return ErrRatingWindowClosed
	}

	var ratedID uint
	var role string
	if raterID == ride.PassengerID {
		ratedID = *ride.DriverID
		role = models.RoleDriver
	} else {
		ratedID = ride.PassengerID
		role = models.RolePassenger
	}

	return c.store.UpsertRating(&models.Rating{
		RatedUserID: ratedID,
		RaterUserID: raterID,
		Rating:      value,
		Role:        role,
		RideID:      rideID,
	})
}

// RelayMessage persists a chat message and pushes it to the recipient if
// connected. Used by the server when direct peer delivery is not in play.
// inlineData is what the push carries; it may be fuller than the stored row
// when the attachment was offloaded to blob storage.
func (c *Coordinator) RelayMessage(msg *models.Message, senderUsername, inlineData string) error {
	if err := c.store.SaveMessage(msg); err != nil {
		return err
	}
	c.push(msg.ReceiverID, protocol.TypeChatMessage, map[string]any{
		"from":                senderUsername,
		"sender_id":           msg.SenderID,
		"message":             msg.Body,
		"sent_at":             msg.SentAt,
		"attachment_filename": msg.AttachmentFilename,
		"attachment_mime":     msg.AttachmentMime,
		"attachment_data":     inlineData,
	})
	return nil
}

func isParticipant(ride *models.Ride, userID uint) bool {
	if ride.PassengerID == userID {
		return true
	}
	return ride.DriverID != nil && *ride.DriverID == userID
}

func (c *Coordinator) push(userID uint, msgType string, payload any) {
	msg := &protocol.Message{Type: msgType, Payload: protocol.Payload(payload)}
	if !c.registry.PushToUser(userID, msg) {
		observability.PushesDroppedTotal.Inc()
	}
}

func (c *Coordinator) pushToParties(ride *models.Ride, msgType string) {
	change := RideStatusChange{RideID: ride.ID, Status: ride.Status}
	c.push(ride.PassengerID, msgType, change)
	if ride.DriverID != nil {
		c.push(*ride.DriverID, msgType, change)
	}
}

func (c *Coordinator) publish(eventType string, ride *models.Ride) {
	c.sink.Publish(Event{
		Type:        eventType,
		RideID:      ride.ID,
		PassengerID: ride.PassengerID,
		DriverID:    ride.DriverID,
		At:          time.Now().UTC(),
	})
}
