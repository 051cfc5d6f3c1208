package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types written by the worker.
const (
	NotificationRegistrationApproved = "registration_approved"
	NotificationRegistrationRejected = "registration_rejected"
	NotificationOrderRefunded        = "order_refunded"
	NotificationOrderExpired         = "order_expired"
)

// Notification is an in-app message for a user.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
