package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/aubus-project/aubus/internal/models"
)

// RideRequestItem is one open offer as presented to a driver, both in
// FETCH_RIDE_REQUESTS responses and in RIDE_REQUEST pushes.
type RideRequestItem struct {
	RideID        uint   `json:"ride_id"`
	PassengerID   uint   `json:"passenger_id"`
	PassengerName string `json:"passenger_name"`
	Direction     string `json:"direction"`
	Day           string `json:"day"`
	Time          string `json:"time"`
	Area          string `json:"area"`
}

// RideSummary is one entry of a user's ride history, shaped for the
// RIDES_LIST payload.
type RideSummary struct {
	RideID        uint       `json:"ride_id"`
	Role          string     `json:"role"`
	PartnerID     uint       `json:"partner_id,omitempty"`
	PartnerName   string     `json:"partner_name"`
	Day           string     `json:"day"`
	Time          string     `json:"time"`
	Area          string     `json:"area"`
	Status        string     `json:"status"`
	RequestedAt   time.Time  `json:"requested_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Rating        *int       `json:"rating,omitempty"` // the caller's own rating of this ride
	CanEditRating bool       `json:"can_edit_rating"`
}

// CreateRideWithOffers persists a new PENDING ride and its offer fan-out in
// one transaction, so a ride row can never exist without its offers.
func (s *Store) CreateRideWithOffers(ride *models.Ride, driverIDs []uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ride).Error; err != nil {
			return err
		}
		for _, driverID := range driverIDs {
			offer := models.RideOffer{RideID: ride.ID, DriverID: driverID}
			if err := tx.Create(&offer).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetRide(rideID uint) (*models.Ride, error) {
	var ride models.Ride
	if err := s.db.First(&ride, rideID).Error; err != nil {
		return nil, err
	}
	return &ride, nil
}

func (s *Store) SaveRide(ride *models.Ride) error {
	return s.db.Save(ride).Error
}

// OfferDriverIDs lists the drivers currently holding an open offer for a ride.
func (s *Store) OfferDriverIDs(rideID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.RideOffer{}).
		Where("ride_id = ?", rideID).
		Pluck("driver_id", &ids).Error
	return ids, err
}

func (s *Store) OfferExists(rideID, driverID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.RideOffer{}).
		Where("ride_id = ? AND driver_id = ?", rideID, driverID).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) DeleteOffer(rideID, driverID uint) error {
	return s.db.Where("ride_id = ? AND driver_id = ?", rideID, driverID).
		Delete(&models.RideOffer{}).Error
}

func (s *Store) offerCount(rideID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.RideOffer{}).Where("ride_id = ?", rideID).Count(&count).Error
	return count, err
}

// RideRequestsForDriver lists PENDING rides the driver holds an open offer on.
func (s *Store) RideRequestsForDriver(driverID uint) ([]RideRequestItem, error) {
	var items []RideRequestItem
	err := s.db.Table("ride_offers ro").
		Select("r.id AS ride_id, r.passenger_id, p.name AS passenger_name, r.direction, r.day, r.time, r.area").
		Joins("JOIN rides r ON ro.ride_id = r.id").
		Joins("JOIN users p ON r.passenger_id = p.id").
		Where("ro.driver_id = ? AND r.status = ?", driverID, models.RideStatusPending).
		Order("r.requested_at DESC").
		Scan(&items).Error
	return items, err
}

// UserRides returns the ride history for a user, most recent first. PENDING
// rides with no driver and no remaining offers are malformed leftovers and
// are excluded from the listing.
func (s *Store) UserRides(userID uint) ([]RideSummary, error) {
	var rides []models.Ride
	err := s.db.Preload("Passenger").Preload("Driver").
		Where("passenger_id = ? OR driver_id = ?", userID, userID).
		Order("COALESCE(completed_at, started_at, requested_at) DESC").
		Find(&rides).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]RideSummary, 0, len(rides))
	for i := range rides {
		ride := &rides[i]
		if ride.Status == models.RideStatusPending && ride.DriverID == nil {
			offers, err := s.offerCount(ride.ID)
			if err != nil {
				return nil, err
			}
			if offers == 0 {
				continue
			}
		}

		summary := RideSummary{
			RideID:      ride.ID,
			Day:         ride.Day,
			Time:        ride.Time,
			Area:        ride.Area,
			Status:      ride.Status,
			RequestedAt: ride.RequestedAt,
			StartedAt:   ride.StartedAt,
			CompletedAt: ride.CompletedAt,
		}
		if userID == ride.PassengerID {
			summary.Role = models.RolePassenger
			if ride.Driver != nil {
				summary.PartnerID = ride.Driver.ID
				summary.PartnerName = ride.Driver.Name
			}
		} else {
			summary.Role = models.RoleDriver
			if ride.Passenger != nil {
				summary.PartnerID = ride.Passenger.ID
				summary.PartnerName = ride.Passenger.Name
			}
		}

		var rating models.Rating
		if err := s.db.Where("ride_id = ? AND rater_user_id = ?", ride.ID, userID).
			First(&rating).Error; err == nil {
			value := rating.Rating
			summary.Rating = &value
		}

		if ride.CompletedAt != nil {
			summary.CanEditRating = time.Since(*ride.CompletedAt) <= models.RatingEditWindow
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}
