package models

import (
	"time"

	"gorm.io/gorm"
)

// Ride status constants. PENDING rides carry open offers; a driver acceptance
// flips the ride to ACCEPTED and deletes every offer atomically.
const (
	RideStatusPending   = "PENDING"
	RideStatusAccepted  = "ACCEPTED"
	RideStatusStarted   = "STARTED"
	RideStatusCompleted = "COMPLETED"
	RideStatusCancelled = "CANCELLED"
)

// RatingEditWindow is how long after completion either party may submit or
// edit their rating for the ride.
const RatingEditWindow = 36 * time.Hour

type Ride struct {
	gorm.Model
	PassengerID uint       `json:"passengerId" gorm:"column:passenger_id;not null;index"`
	DriverID    *uint      `json:"driverId,omitempty" gorm:"column:driver_id;index"`
	Direction   string     `json:"direction" gorm:"column:direction"`
	Day         string     `json:"day" gorm:"column:day;not null"`
	Time        string     `json:"time" gorm:"column:time;not null"`
	Area        string     `json:"area" gorm:"column:area;not null"`
	Status      string     `json:"status" gorm:"column:status;not null;default:'PENDING'"`
	RequestedAt time.Time  `json:"requestedAt" gorm:"column:requested_at"`
	StartedAt   *time.Time `json:"startedAt,omitempty" gorm:"column:started_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" gorm:"column:completed_at"`
	Passenger   *User      `json:"passenger,omitempty" gorm:"foreignKey:PassengerID"`
	Driver      *User      `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (Ride) TableName() string {
	return "rides"
}

// RideOffer links one PENDING ride to one candidate driver. Offers are hard
// rows, not soft-deleted: the invariant is zero rows once the ride leaves
// PENDING, so they carry no gorm.Model.
type RideOffer struct {
	ID       uint  `json:"id" gorm:"primaryKey"`
	RideID   uint  `json:"rideId" gorm:"column:ride_id;not null;index"`
	DriverID uint  `json:"driverId" gorm:"column:driver_id;not null;index"`
	Ride     *Ride `json:"-" gorm:"foreignKey:RideID"`
	Driver   *User `json:"-" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (RideOffer) TableName() string {
	return "ride_offers"
}
