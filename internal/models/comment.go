package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a post-activity review with a 1-5 rating.
type Comment struct {
	ID         uuid.UUID `json:"id"`
	ActivityID uuid.UUID `json:"activity_id"`
	UserID     uuid.UUID `json:"user_id"`
	Content    string    `json:"content"`
	Rating     int       `json:"rating"`
	ImageURLs  []string  `json:"image_urls,omitempty"`
	LikeCount  int       `json:"like_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
