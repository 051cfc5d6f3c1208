package checkins

import (
	"github.com/fieldday/backend/internal/models"
)

// Denial reasons returned by Evaluate.
const (
	DenyCheckInDisabled  = "check-in is not open for this activity"
	DenyBadCode          = "invalid check-in code"
	DenyAlreadyCheckedIn = "already checked in"
	DenyNotApproved      = "no approved registration for this activity"
	DenyUnpaid           = "payment required before check-in"
)

// Result is the outcome of a check-in attempt.
type Result struct {
	Allowed bool
	Reason  string
}

func deny(reason string) Result {
	return Result{Reason: reason}
}

// Evaluate decides whether a user may check in. It is pure so the rules can
// be tested without a database; the unique constraint on check_ins remains
// the final guard against a concurrent double check-in.
func Evaluate(a *models.Activity, code string, reg *models.Registration, alreadyCheckedIn, hasPaidOrder bool) Result {
	if !a.CheckInEnabled || a.Status == models.ActivityCancelled {
		return deny(DenyCheckInDisabled)
	}
	if !CodeMatches(a.CheckInCode, code) {
		return deny(DenyBadCode)
	}
	if alreadyCheckedIn {
		return deny(DenyAlreadyCheckedIn)
	}
	if reg == nil || reg.Status != models.RegistrationApproved {
		return deny(DenyNotApproved)
	}
	if a.IsPaid() && !hasPaidOrder {
		return deny(DenyUnpaid)
	}
	return Result{Allowed: true}
}
