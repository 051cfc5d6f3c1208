package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckIn is a one-time attendance record per (user, activity) pair.
type CheckIn struct {
	ID          uuid.UUID `json:"id"`
	ActivityID  uuid.UUID `json:"activity_id"`
	UserID      uuid.UUID `json:"user_id"`
	CheckInCode string    `json:"check_in_code"`
	CheckedInAt time.Time `json:"checked_in_at"`
}
