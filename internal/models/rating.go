package models

import "gorm.io/gorm"

// Rating is one row per (ride, rater). Re-rating within the edit window
// updates the row in place rather than inserting a duplicate.
type Rating struct {
	gorm.Model
	RatedUserID uint   `json:"ratedUserId" gorm:"column:rated_user_id;not null;index"`
	RaterUserID uint   `json:"raterUserId" gorm:"column:rater_user_id;not null;uniqueIndex:idx_ratings_ride_rater"`
	Rating      int    `json:"rating" gorm:"column:rating;not null;check:rating >= 1 AND rating <= 5"`
	Role        string `json:"role" gorm:"column:role;not null"` // side being rated: driver or passenger
	RideID      uint   `json:"rideId" gorm:"column:ride_id;not null;uniqueIndex:idx_ratings_ride_rater"`
	RatedUser   *User  `json:"-" gorm:"foreignKey:RatedUserID"`
	RaterUser   *User  `json:"-" gorm:"foreignKey:RaterUserID"`
}

// TableName specifies the table name
func (Rating) TableName() string {
	return "ratings"
}
