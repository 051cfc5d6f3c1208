package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistrationIsActive(t *testing.T) {
	assert.True(t, (&Registration{Status: RegistrationPending}).IsActive())
	assert.True(t, (&Registration{Status: RegistrationApproved}).IsActive())
	assert.False(t, (&Registration{Status: RegistrationRejected}).IsActive())
	assert.False(t, (&Registration{Status: RegistrationCancelled}).IsActive())
	assert.False(t, (&Registration{Status: RegistrationCompleted}).IsActive())
}

func TestRegistrationCanReview(t *testing.T) {
	assert.True(t, (&Registration{Status: RegistrationPending}).CanReview())
	assert.False(t, (&Registration{Status: RegistrationApproved}).CanReview())
	assert.False(t, (&Registration{Status: RegistrationRejected}).CanReview())
}

func TestRegistrationCanCancel(t *testing.T) {
	now := time.Now()
	start := now.Add(2 * time.Hour)

	r := Registration{Status: RegistrationApproved}
	assert.True(t, r.CanCancel(now, start))
	assert.False(t, r.CanCancel(start.Add(time.Minute), start), "activity started")

	r.Status = RegistrationPending
	assert.False(t, r.CanCancel(now, start), "pending is not user-cancellable")

	r.Status = RegistrationCancelled
	assert.False(t, r.CanCancel(now, start))
}
