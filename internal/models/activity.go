package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityStatus is the lifecycle status of an activity.
type ActivityStatus string

const (
	ActivityDraft     ActivityStatus = "draft"
	ActivityPublished ActivityStatus = "published"
	ActivityOngoing   ActivityStatus = "ongoing"
	ActivityCompleted ActivityStatus = "completed"
	ActivityCancelled ActivityStatus = "cancelled"
)

// activityTransitions is the allowed status transition table. Time-driven
// transitions (published->ongoing, ongoing->completed) are performed by the
// worker's status sweep through the same table.
var activityTransitions = map[ActivityStatus][]ActivityStatus{
	ActivityDraft:     {ActivityPublished, ActivityCancelled},
	ActivityPublished: {ActivityOngoing, ActivityCancelled},
	ActivityOngoing:   {ActivityCompleted},
}

// Activity is a schedulable, capacity-bounded event users register for.
type Activity struct {
	ID                   uuid.UUID      `json:"id"`
	CreatorID            uuid.UUID      `json:"creator_id"`
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	Location             string         `json:"location"`
	StartTime            time.Time      `json:"start_time"`
	EndTime              time.Time      `json:"end_time"`
	RegistrationDeadline time.Time      `json:"registration_deadline"`
	MinParticipants      int            `json:"min_participants"`
	MaxParticipants      int            `json:"max_participants"`
	CurrentParticipants  int            `json:"current_participants"`
	FeeCents             int            `json:"fee_cents"`
	Status               ActivityStatus `json:"status"`
	CheckInCode          string         `json:"-"`
	CheckInEnabled       bool           `json:"check_in_enabled"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// IsPaid reports whether registrations for this activity require payment.
func (a *Activity) IsPaid() bool {
	return a.FeeCents > 0
}

// IsFull reports whether the activity reached its participant cap.
func (a *Activity) IsFull() bool {
	return a.CurrentParticipants >= a.MaxParticipants
}

// RegistrationOpen reports whether new applications are accepted at t:
// the activity is published, the deadline has not passed and it has not started.
func (a *Activity) RegistrationOpen(t time.Time) bool {
	if a.Status != ActivityPublished {
		return false
	}
	if t.After(a.RegistrationDeadline) {
		return false
	}
	return t.Before(a.StartTime)
}

// Started reports whether the activity start time has passed at t.
func (a *Activity) Started(t time.Time) bool {
	return !t.Before(a.StartTime)
}

// CanEdit reports whether activity fields may still be changed.
func (a *Activity) CanEdit() bool {
	return a.Status == ActivityDraft || a.Status == ActivityPublished
}

// CanTransitionTo reports whether the status change is allowed.
func (a *Activity) CanTransitionTo(next ActivityStatus) bool {
	for _, s := range activityTransitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// RefundDeadline is the last instant a paid order for this activity may be
// refunded (two hours before start).
func (a *Activity) RefundDeadline() time.Time {
	return a.StartTime.Add(-2 * time.Hour)
}
