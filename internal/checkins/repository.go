package checkins

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldday/backend/internal/models"
)

// ErrAlreadyCheckedIn is returned when the user already checked in to the activity.
var ErrAlreadyCheckedIn = errors.New("already checked in")

// Repository handles check-in persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a check-ins repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create records a check-in. The unique constraint on (activity_id, user_id)
// is the final guard against a concurrent double check-in.
func (r *Repository) Create(ctx context.Context, ci *models.CheckIn) error {
	const q = `INSERT INTO check_ins (activity_id, user_id, check_in_code)
		VALUES ($1, $2, $3)
		RETURNING id, activity_id, user_id, check_in_code, checked_in_at`
	err := r.pool.QueryRow(ctx, q, ci.ActivityID, ci.UserID, ci.CheckInCode).
		Scan(&ci.ID, &ci.ActivityID, &ci.UserID, &ci.CheckInCode, &ci.CheckedInAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyCheckedIn
		}
		return err
	}
	return nil
}

// Exists reports whether the user has checked in to the activity.
func (r *Repository) Exists(ctx context.Context, activityID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM check_ins WHERE activity_id = $1 AND user_id = $2)`,
		activityID, userID).Scan(&exists)
	return exists, err
}

// GetApprovedRegistration returns the user's approved registration for the
// activity, or pgx.ErrNoRows wrapped as nil when there is none.
func (r *Repository) GetApprovedRegistration(ctx context.Context, activityID, userID uuid.UUID) (*models.Registration, error) {
	const q = `SELECT id, activity_id, user_id, status, message, reject_reason, created_at, updated_at
		FROM registrations WHERE activity_id = $1 AND user_id = $2 AND status = 'approved'`
	var reg models.Registration
	err := r.pool.QueryRow(ctx, q, activityID, userID).Scan(&reg.ID, &reg.ActivityID, &reg.UserID,
		&reg.Status, &reg.Message, &reg.RejectReason, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

// HasPaidOrder reports whether the registration has a settled order.
func (r *Repository) HasPaidOrder(ctx context.Context, registrationID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE registration_id = $1 AND status = 'paid')`,
		registrationID).Scan(&exists)
	return exists, err
}

// CheckInWithUser is a check-in joined with the attendee's profile for the
// creator's attendance list.
type CheckInWithUser struct {
	models.CheckIn
	UserName   string `json:"user_name"`
	UserAvatar string `json:"user_avatar,omitempty"`
}

// ListByActivity returns the activity's check-ins, newest first.
func (r *Repository) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]CheckInWithUser, error) {
	const q = `SELECT c.id, c.activity_id, c.user_id, c.check_in_code, c.checked_in_at,
			u.full_name, COALESCE(u.avatar_url, '')
		FROM check_ins c
		JOIN users u ON u.id = c.user_id
		WHERE c.activity_id = $1
		ORDER BY c.checked_in_at DESC`
	rows, err := r.pool.Query(ctx, q, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []CheckInWithUser
	for rows.Next() {
		var cw CheckInWithUser
		if err := rows.Scan(&cw.ID, &cw.ActivityID, &cw.UserID, &cw.CheckInCode, &cw.CheckedInAt,
			&cw.UserName, &cw.UserAvatar); err != nil {
			return nil, err
		}
		list = append(list, cw)
	}
	return list, rows.Err()
}

// Count returns the number of check-ins for an activity.
func (r *Repository) Count(ctx context.Context, activityID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM check_ins WHERE activity_id = $1`, activityID).Scan(&n)
	return n, err
}
