package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/aubus-project/aubus/internal/models"
)

// InitialSchedule is the optional weekly availability a driver may declare at
// registration: day -> direction -> "HH:MM".
type InitialSchedule map[string]map[string]string

// CreateUser registers a new account, hashing the password and creating any
// initial driver schedule entries in the same transaction.
func (s *Store) CreateUser(user *models.User, schedule InitialSchedule) error {
	if err := user.HashPassword(); err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return ErrUsernameTaken // unique constraint is the last line of defense
		}
		if !user.IsDriver || schedule == nil {
			return nil
		}
		for day, routes := range schedule {
			for direction, at := range routes {
				entry := models.ScheduleEntry{
					UserID:    user.ID,
					Day:       day,
					Time:      at,
					Direction: direction,
					Area:      user.Area,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Authenticate verifies a username/password pair. Returns ErrNotFound for an
// unknown username or a wrong password; callers do not learn which.
func (s *Store) Authenticate(username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := user.CheckPassword(password); err != nil {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *Store) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUserRole records an explicit role choice together with home area and,
// when given, the minimum-acceptable-partner-rating preference.
func (s *Store) SetUserRole(userID uint, isDriver bool, area string, minRating *int) error {
	updates := map[string]any{
		"is_driver":     isDriver,
		"area":          area,
		"role_selected": true,
	}
	if minRating != nil {
		updates["min_rating"] = *minRating
	}
	res := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
