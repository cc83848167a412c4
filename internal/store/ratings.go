package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/aubus-project/aubus/internal/models"
)

// UpsertRating stores or updates the single rating row for (ride, rater).
// Callers enforce the edit window and participant checks; this is pure
// persistence.
func (s *Store) UpsertRating(rating *models.Rating) error {
	var existing models.Rating
	err := s.db.Where("ride_id = ? AND rater_user_id = ?", rating.RideID, rating.RaterUserID).
		First(&existing).Error
	switch {
	case err == nil:
		err = s.db.Model(&existing).Updates(map[string]any{
			"rated_user_id": rating.RatedUserID,
			"rating":        rating.Rating,
			"role":          rating.Role,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = s.db.Create(rating).Error
	}
	if err != nil {
		return err
	}
	if s.ratings != nil {
		s.ratings.Invalidate(rating.RatedUserID, rating.Role)
	}
	return nil
}

// AverageRating is the mean of all ratings a user received in the given role;
// 0 when unrated. Served from the redis cache when one is attached.
func (s *Store) AverageRating(userID uint, role string) (float64, error) {
	if s.ratings != nil {
		if avg, ok := s.ratings.Get(userID, role); ok {
			return avg, nil
		}
	}
	var avg float64
	err := s.db.Model(&models.Rating{}).
		Where("rated_user_id = ? AND role = ?", userID, role).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if s.ratings != nil {
		s.ratings.Set(userID, role, avg)
	}
	return avg, nil
}
