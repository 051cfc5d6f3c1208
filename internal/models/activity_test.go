package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActivityCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to ActivityStatus
		want     bool
	}{
		{ActivityDraft, ActivityPublished, true},
		{ActivityDraft, ActivityCancelled, true},
		{ActivityDraft, ActivityOngoing, false},
		{ActivityPublished, ActivityOngoing, true},
		{ActivityPublished, ActivityCancelled, true},
		{ActivityPublished, ActivityDraft, false},
		{ActivityOngoing, ActivityCompleted, true},
		{ActivityOngoing, ActivityCancelled, false},
		{ActivityCompleted, ActivityCancelled, false},
		{ActivityCancelled, ActivityPublished, false},
	}
	for _, tc := range cases {
		a := Activity{Status: tc.from}
		assert.Equal(t, tc.want, a.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestActivityRegistrationOpen(t *testing.T) {
	now := time.Now()
	a := Activity{
		Status:               ActivityPublished,
		StartTime:            now.Add(24 * time.Hour),
		RegistrationDeadline: now.Add(12 * time.Hour),
	}
	assert.True(t, a.RegistrationOpen(now))

	assert.False(t, a.RegistrationOpen(now.Add(13*time.Hour)), "past deadline")
	assert.False(t, a.RegistrationOpen(now.Add(25*time.Hour)), "past start")

	a.Status = ActivityDraft
	assert.False(t, a.RegistrationOpen(now), "not published")

	a.Status = ActivityCancelled
	assert.False(t, a.RegistrationOpen(now), "cancelled")
}

func TestActivityIsFull(t *testing.T) {
	a := Activity{MaxParticipants: 2}
	assert.False(t, a.IsFull())
	a.CurrentParticipants = 1
	assert.False(t, a.IsFull())
	a.CurrentParticipants = 2
	assert.True(t, a.IsFull())
}

func TestActivityCanEdit(t *testing.T) {
	for _, s := range []ActivityStatus{ActivityDraft, ActivityPublished} {
		a := Activity{Status: s}
		assert.True(t, a.CanEdit(), string(s))
	}
	for _, s := range []ActivityStatus{ActivityOngoing, ActivityCompleted, ActivityCancelled} {
		a := Activity{Status: s}
		assert.False(t, a.CanEdit(), string(s))
	}
}

func TestActivityRefundDeadline(t *testing.T) {
	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	a := Activity{StartTime: start}
	assert.Equal(t, start.Add(-2*time.Hour), a.RefundDeadline())
}

func TestActivityIsPaid(t *testing.T) {
	assert.False(t, (&Activity{}).IsPaid())
	assert.True(t, (&Activity{FeeCents: 500}).IsPaid())
}
