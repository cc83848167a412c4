package models

import "gorm.io/gorm"

// ScheduleEntry is one declared availability slot for a driver. Multiple
// entries per day are allowed; there is no overlap constraint.
type ScheduleEntry struct {
	gorm.Model
	UserID    uint   `json:"userId" gorm:"column:user_id;not null;index"`
	Day       string `json:"day" gorm:"column:day;not null"`   // weekday name, e.g. "Monday"
	Time      string `json:"time" gorm:"column:time;not null"` // "HH:MM", 24h
	Direction string `json:"direction" gorm:"column:direction;not null"`
	Area      string `json:"area" gorm:"column:area"`
	User      *User  `json:"-" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name
func (ScheduleEntry) TableName() string {
	return "schedules"
}
