package checkins

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldday/backend/internal/models"
)

func TestEvaluate(t *testing.T) {
	activity := func() *models.Activity {
		return &models.Activity{
			Status:         models.ActivityOngoing,
			CheckInEnabled: true,
			CheckInCode:    "XYZ789",
		}
	}
	approved := &models.Registration{Status: models.RegistrationApproved}

	t.Run("allowed", func(t *testing.T) {
		res := Evaluate(activity(), "xyz789", approved, false, false)
		assert.True(t, res.Allowed)
		assert.Empty(t, res.Reason)
	})

	t.Run("check-in disabled", func(t *testing.T) {
		a := activity()
		a.CheckInEnabled = false
		res := Evaluate(a, "XYZ789", approved, false, false)
		assert.False(t, res.Allowed)
		assert.Equal(t, DenyCheckInDisabled, res.Reason)
	})

	t.Run("cancelled activity", func(t *testing.T) {
		a := activity()
		a.Status = models.ActivityCancelled
		res := Evaluate(a, "XYZ789", approved, false, false)
		assert.Equal(t, DenyCheckInDisabled, res.Reason)
	})

	t.Run("wrong code", func(t *testing.T) {
		res := Evaluate(activity(), "WRONG1", approved, false, false)
		assert.Equal(t, DenyBadCode, res.Reason)
	})

	t.Run("already checked in", func(t *testing.T) {
		res := Evaluate(activity(), "XYZ789", approved, true, false)
		assert.Equal(t, DenyAlreadyCheckedIn, res.Reason)
	})

	t.Run("no approved registration", func(t *testing.T) {
		res := Evaluate(activity(), "XYZ789", nil, false, false)
		assert.Equal(t, DenyNotApproved, res.Reason)

		pending := &models.Registration{Status: models.RegistrationPending}
		res = Evaluate(activity(), "XYZ789", pending, false, false)
		assert.Equal(t, DenyNotApproved, res.Reason)
	})

	t.Run("unpaid fee blocks check-in", func(t *testing.T) {
		a := activity()
		a.FeeCents = 1500
		res := Evaluate(a, "XYZ789", approved, false, false)
		assert.Equal(t, DenyUnpaid, res.Reason)

		res = Evaluate(a, "XYZ789", approved, false, true)
		assert.True(t, res.Allowed)
	})
}
