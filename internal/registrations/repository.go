package registrations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldday/backend/internal/models"
	"github.com/fieldday/backend/internal/orders"
)

var (
	// ErrNotFound is returned when the registration does not exist.
	ErrNotFound = errors.New("registration not found")
	// ErrStateConflict is returned when a conditional update matched no row.
	ErrStateConflict = errors.New("registration state conflict")
	// ErrAlreadyRegistered is returned when the user already has an active
	// registration for the activity.
	ErrAlreadyRegistered = errors.New("already registered for this activity")
	// ErrActivityFull is returned when approval would exceed the participant cap.
	ErrActivityFull = errors.New("activity is full")
	// ErrPaidOrder is returned when cancelling a registration that has a paid
	// order; the caller must go through the refund flow instead.
	ErrPaidOrder = errors.New("registration has a paid order")
)

const registrationColumns = `id, activity_id, user_id, status, message, reject_reason, created_at, updated_at`

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRegistration(row pgx.Row, reg *models.Registration) error {
	return row.Scan(&reg.ID, &reg.ActivityID, &reg.UserID, &reg.Status,
		&reg.Message, &reg.RejectReason, &reg.CreatedAt, &reg.UpdatedAt)
}

// Create inserts a pending registration. The partial unique index on active
// registrations rejects a second concurrent apply, which surfaces as
// ErrAlreadyRegistered.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (activity_id, user_id, message)
		VALUES ($1, $2, $3)
		RETURNING ` + registrationColumns
	err := scanRegistration(r.pool.QueryRow(ctx, q, reg.ActivityID, reg.UserID, reg.Message), reg)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	var reg models.Registration
	if err := scanRegistration(r.pool.QueryRow(ctx, q, id), &reg); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// GetLatest returns the user's most recent registration for the activity,
// whatever its status.
func (r *Repository) GetLatest(ctx context.Context, activityID, userID uuid.UUID) (*models.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations
		WHERE activity_id = $1 AND user_id = $2
		ORDER BY created_at DESC LIMIT 1`
	var reg models.Registration
	if err := scanRegistration(r.pool.QueryRow(ctx, q, activityID, userID), &reg); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// HasRefunded reports whether the user ever refunded an order for the
// activity. Refunded users may not register again.
func (r *Repository) HasRefunded(ctx context.Context, activityID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS(
		SELECT 1 FROM orders WHERE activity_id = $1 AND user_id = $2 AND status = 'refunded')`
	var exists bool
	err := r.pool.QueryRow(ctx, q, activityID, userID).Scan(&exists)
	return exists, err
}

// Approve approves a pending registration in one transaction: the activity row
// is locked, capacity is re-checked under the lock, the seat counter is bumped
// and, for paid activities, the payment order is created. Any failure rolls
// the whole decision back.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID) (*models.Registration, *models.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	var reg models.Registration
	err = scanRegistration(tx.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id), &reg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if reg.Status != models.RegistrationPending {
		return nil, nil, ErrStateConflict
	}

	var current, max, feeCents int
	err = tx.QueryRow(ctx,
		`SELECT current_participants, max_participants, fee_cents FROM activities WHERE id = $1 FOR UPDATE`,
		reg.ActivityID).Scan(&current, &max, &feeCents)
	if err != nil {
		return nil, nil, err
	}
	if current >= max {
		return nil, nil, ErrActivityFull
	}

	tag, err := tx.Exec(ctx,
		`UPDATE registrations SET status = 'approved', updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return nil, nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil, ErrStateConflict
	}

	tag, err = tx.Exec(ctx,
		`UPDATE activities SET current_participants = current_participants + 1, updated_at = NOW()
		 WHERE id = $1 AND current_participants < max_participants`, reg.ActivityID)
	if err != nil {
		return nil, nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil, ErrActivityFull
	}

	var order *models.Order
	if feeCents > 0 {
		order = &models.Order{
			RegistrationID: reg.ID,
			ActivityID:     reg.ActivityID,
			UserID:         reg.UserID,
			AmountCents:    feeCents,
			ExpireTime:     time.Now().Add(models.OrderTTL),
		}
		if err := orders.CreateTx(ctx, tx, order); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	reg.Status = models.RegistrationApproved
	return &reg, order, nil
}

// Reject rejects a pending registration with a reason.
func (r *Repository) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations SET status = 'rejected', reject_reason = $1, updated_at = NOW()
		 WHERE id = $2 AND status = 'pending'`, reason, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

// Cancel cancels an approved registration, frees the seat and voids any
// pending order, all in one transaction. A paid order blocks the cancel; the
// user must request a refund instead.
func (r *Repository) Cancel(ctx context.Context, reg *models.Registration) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var hasPaid bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE registration_id = $1 AND status = 'paid')`,
		reg.ID).Scan(&hasPaid)
	if err != nil {
		return err
	}
	if hasPaid {
		return ErrPaidOrder
	}

	tag, err := tx.Exec(ctx,
		`UPDATE registrations SET status = 'cancelled', updated_at = NOW()
		 WHERE id = $1 AND status = 'approved'`, reg.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status = 'cancelled', updated_at = NOW()
		 WHERE registration_id = $1 AND status = 'pending'`, reg.ID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE activities SET current_participants = current_participants - 1, updated_at = NOW()
		 WHERE id = $1 AND current_participants > 0`, reg.ActivityID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CompleteForFinishedActivities flips approved registrations of completed
// activities to completed. Run by the worker's status sweep.
func (r *Repository) CompleteForFinishedActivities(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations SET status = 'completed', updated_at = NOW()
		 WHERE status = 'approved'
		   AND activity_id IN (SELECT id FROM activities WHERE status = 'completed')`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RegistrationWithUser is a registration joined with its applicant's profile,
// for the creator's review list.
type RegistrationWithUser struct {
	models.Registration
	UserName   string `json:"user_name"`
	UserAvatar string `json:"user_avatar,omitempty"`
}

// ListByActivity returns all registrations for an activity, oldest first,
// optionally filtered by status.
func (r *Repository) ListByActivity(ctx context.Context, activityID uuid.UUID, status models.RegistrationStatus) ([]RegistrationWithUser, error) {
	q := `SELECT r.id, r.activity_id, r.user_id, r.status, r.message, r.reject_reason,
			r.created_at, r.updated_at, u.full_name, COALESCE(u.avatar_url, '')
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.activity_id = $1`
	args := []interface{}{activityID}
	if status != "" {
		q += ` AND r.status = $2`
		args = append(args, string(status))
	}
	q += ` ORDER BY r.created_at ASC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []RegistrationWithUser
	for rows.Next() {
		var rw RegistrationWithUser
		if err := rows.Scan(&rw.ID, &rw.ActivityID, &rw.UserID, &rw.Status, &rw.Message,
			&rw.RejectReason, &rw.CreatedAt, &rw.UpdatedAt, &rw.UserName, &rw.UserAvatar); err != nil {
			return nil, err
		}
		list = append(list, rw)
	}
	return list, rows.Err()
}

// ListByUser returns the user's registrations, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := scanRegistration(rows, &reg); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}
