package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the lifecycle status of a registration.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationApproved  RegistrationStatus = "approved"
	RegistrationRejected  RegistrationStatus = "rejected"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationCompleted RegistrationStatus = "completed"
)

// Registration is a user's request to participate in an activity.
type Registration struct {
	ID           uuid.UUID          `json:"id"`
	ActivityID   uuid.UUID          `json:"activity_id"`
	UserID       uuid.UUID          `json:"user_id"`
	Status       RegistrationStatus `json:"status"`
	Message      string             `json:"message,omitempty"`
	RejectReason string             `json:"reject_reason,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// IsActive reports whether the registration still occupies the one-per-user
// slot for its activity.
func (r *Registration) IsActive() bool {
	return r.Status == RegistrationPending || r.Status == RegistrationApproved
}

// CanReview reports whether an approve/reject decision is still possible.
func (r *Registration) CanReview() bool {
	return r.Status == RegistrationPending
}

// CanCancel reports whether the registering user may cancel at t, given the
// activity start time. Pending registrations are withdrawn via rejection or
// expiry of the activity, not user cancel.
func (r *Registration) CanCancel(t, activityStart time.Time) bool {
	return r.Status == RegistrationApproved && t.Before(activityStart)
}
