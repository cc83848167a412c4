package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Rating roles. A user accumulates two independent aggregates, one for each
// side of the rides they took part in.
const (
	RoleDriver    = "driver"
	RolePassenger = "passenger"
)

type User struct {
	gorm.Model
	Name         string `json:"name" gorm:"column:name;not null"`
	Email        string `json:"email" gorm:"column:email;not null"`
	Username     string `json:"username" gorm:"column:username;unique;not null"`
	Password     string `json:"-" gorm:"-:migration;-"` // temporary field for password handling
	PasswordHash string `json:"-" gorm:"column:password_hash;not null"`
	IsDriver     bool   `json:"isDriver" gorm:"column:is_driver;not null;default:false"`
	Area         string `json:"area" gorm:"column:area"`
	MinRating    int    `json:"minRating" gorm:"column:min_rating;not null;default:0"`
	RoleSelected bool   `json:"roleSelected" gorm:"column:role_selected;not null;default:false"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) HashPassword() error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	u.Password = ""
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// Role returns the rating role this user plays given their driver flag.
func (u *User) Role() string {
	if u.IsDriver {
		return RoleDriver
	}
	return RolePassenger
}
