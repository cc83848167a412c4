package store

import "github.com/aubus-project/aubus/internal/models"

func (s *Store) AddSchedule(entry *models.ScheduleEntry) error {
	return s.db.Create(entry).Error
}

func (s *Store) ListSchedule(userID uint) ([]models.ScheduleEntry, error) {
	var entries []models.ScheduleEntry
	err := s.db.Where("user_id = ?", userID).
		Order("day, time").
		Find(&entries).Error
	return entries, err
}

// DeleteScheduleEntry removes one entry, but only if it belongs to userID.
func (s *Store) DeleteScheduleEntry(scheduleID, userID uint) error {
	res := s.db.Where("id = ? AND user_id = ?", scheduleID, userID).
		Delete(&models.ScheduleEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
