// Package store is the persistence layer: gorm-backed query operations over
// users, schedules, rides, offers, ratings and messages. The coordinator owns
// all ride/offer mutation; everything here is mechanism, not policy.
package store

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrUsernameTaken = errors.New("store: username taken")
	ErrNotFound      = gorm.ErrRecordNotFound
)

type Store struct {
	db      *gorm.DB
	ratings *RatingCache // optional; nil means every aggregate hits SQL
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithRatingCache attaches a redis-backed cache for aggregate ratings.
func (s *Store) WithRatingCache(c *RatingCache) *Store {
	s.ratings = c
	return s
}

// DB exposes the underlying handle for transaction scoping by the coordinator.
func (s *Store) DB() *gorm.DB {
	return s.db
}
