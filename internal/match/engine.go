// Package match finds drivers whose declared weekly schedule covers a
// requested ride. It only reads persisted state; ride mutation belongs to the
// coordinator.
package match

import (
	"strings"

	"gorm.io/gorm"

	"github.com/aubus-project/aubus/internal/models"
)

// Request is one passenger ride request as seen by the matcher.
type Request struct {
	Direction string
	Day       string
	Time      string
	Area      string
	MinRating int // passenger's minimum acceptable driver rating
}

// Candidate is an eligible driver. MinRating carries the driver's own
// minimum-passenger-rating preference so the coordinator can apply the
// two-sided gate without re-querying.
type Candidate struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Username  string  `json:"username"`
	Rating    float64 `json:"rating"`
	Area      string  `json:"area"`
	Time      string  `json:"time"`
	MinRating int     `json:"-"`
}

type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// FindDrivers returns drivers with a schedule entry inside the 15-minute
// window of the request, matching area and direction, whose aggregate driver
// rating meets the passenger's preference. The rating floor is applied after
// aggregation (HAVING), not per row; drivers with no ratings aggregate to 0.
func (e *Engine) FindDrivers(req Request) ([]Candidate, error) {
	window, err := ComputeWindow(req.Day, req.Time)
	if err != nil {
		return nil, err
	}

	q := e.db.Table("users u").
		Select("u.id, u.name, u.username, COALESCE(AVG(r.rating), 0) AS rating, u.area, u.min_rating, MIN(s.time) AS time").
		Joins("JOIN schedules s ON u.id = s.user_id AND s.deleted_at IS NULL").
		Joins("LEFT JOIN ratings r ON u.id = r.rated_user_id AND r.role = ? AND r.deleted_at IS NULL", models.RoleDriver).
		Where("u.deleted_at IS NULL").
		Where("u.is_driver = ?", true).
		Where("lower(replace(s.direction, '_', ' ')) = ?", Normalize(req.Direction)).
		Where("lower(replace(s.area, '_', ' ')) = ?", Normalize(req.Area))

	if window.Wraps {
		q = q.Where("(s.day = ? AND s.time >= ?) OR (s.day = ? AND s.time < ?)",
			window.Day, window.Start, window.NextDay, window.End)
	} else {
		q = q.Where("s.day = ? AND s.time >= ? AND s.time < ?",
			window.Day, window.Start, window.End)
	}

	var candidates []Candidate
	err = q.Group("u.id, u.name, u.username, u.area, u.min_rating").
		Having("COALESCE(AVG(r.rating), 0) >= ?", req.MinRating).
		Scan(&candidates).Error
	return candidates, err
}

// Normalize folds case and treats underscores as spaces, so "to_AUB" and
// "To AUB" compare equal.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
}
