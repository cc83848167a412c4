package store

import (
	"time"

	"github.com/aubus-project/aubus/internal/models"
)

// Contact is the partner view exposed by LIST_CONTACTS.
type Contact struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	IsDriver  bool   `json:"is_driver"`
	Area      string `json:"area"`
	MinRating int    `json:"min_rating"`
}

// SaveMessage persists a message, stamping SentAt server-side.
func (s *Store) SaveMessage(msg *models.Message) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	return s.db.Create(msg).Error
}

// FetchMessages returns the most recent messages between two users, oldest
// first, capped at limit.
func (s *Store) FetchMessages(userID, partnerID uint, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []models.Message
	err := s.db.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, partnerID, partnerID, userID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// reverse into chronological order
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Contacts derives the contact list: everyone who shares a ride with the user
// where both parties are resolved, plus everyone they exchanged at least one
// message with.
func (s *Store) Contacts(userID uint) ([]Contact, error) {
	partnerIDs := make(map[uint]struct{})

	var ridePartners []uint
	err := s.db.Model(&models.Ride{}).
		Select("CASE WHEN passenger_id = ? THEN driver_id ELSE passenger_id END", userID).
		Where("(passenger_id = ? OR driver_id = ?) AND driver_id IS NOT NULL", userID, userID).
		Scan(&ridePartners).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ridePartners {
		if id != 0 && id != userID {
			partnerIDs[id] = struct{}{}
		}
	}

	var messagePartners []uint
	err = s.db.Model(&models.Message{}).
		Select("CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END", userID).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Scan(&messagePartners).Error
	if err != nil {
		return nil, err
	}
	for _, id := range messagePartners {
		if id != 0 && id != userID {
			partnerIDs[id] = struct{}{}
		}
	}

	contacts := make([]Contact, 0, len(partnerIDs))
	for id := range partnerIDs {
		user, err := s.GetUserByID(id)
		if err != nil {
			continue
		}
		contacts = append(contacts, Contact{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			Username:  user.Username,
			IsDriver:  user.IsDriver,
			Area:      user.Area,
			MinRating: user.MinRating,
		})
	}
	return contacts, nil
}
