package activities

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldday/backend/internal/models"
)

var (
	// ErrNotFound is returned when the activity does not exist.
	ErrNotFound = errors.New("activity not found")
	// ErrStateConflict is returned when a conditional update matched no row,
	// meaning the activity was not in the expected lifecycle state.
	ErrStateConflict = errors.New("activity state conflict")
)

const activityColumns = `id, creator_id, title, description, location, start_time, end_time,
	registration_deadline, min_participants, max_participants, current_participants,
	fee_cents, status, check_in_code, check_in_enabled, created_at, updated_at`

// Repository handles activity persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an activities repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanActivity(row pgx.Row, a *models.Activity) error {
	return row.Scan(&a.ID, &a.CreatorID, &a.Title, &a.Description, &a.Location,
		&a.StartTime, &a.EndTime, &a.RegistrationDeadline,
		&a.MinParticipants, &a.MaxParticipants, &a.CurrentParticipants,
		&a.FeeCents, &a.Status, &a.CheckInCode, &a.CheckInEnabled,
		&a.CreatedAt, &a.UpdatedAt)
}

// Create inserts a new activity in draft status.
func (r *Repository) Create(ctx context.Context, a *models.Activity) error {
	const q = `INSERT INTO activities (creator_id, title, description, location, start_time, end_time,
			registration_deadline, min_participants, max_participants, fee_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + activityColumns
	row := r.pool.QueryRow(ctx, q, a.CreatorID, a.Title, a.Description, a.Location,
		a.StartTime, a.EndTime, a.RegistrationDeadline,
		a.MinParticipants, a.MaxParticipants, a.FeeCents)
	return scanActivity(row, a)
}

// GetByID returns an activity by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	const q = `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`
	var a models.Activity
	if err := scanActivity(r.pool.QueryRow(ctx, q, id), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListParams filters and paginates List.
type ListParams struct {
	Status    models.ActivityStatus // empty = published/ongoing/completed (public view)
	CreatorID *uuid.UUID
	Page      int
	PageSize  int
}

// List returns activities matching the params, newest start first, plus total count.
func (r *Repository) List(ctx context.Context, p ListParams) ([]models.Activity, int64, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}

	cond := ` WHERE status IN ('published', 'ongoing', 'completed')`
	args := []interface{}{}
	if p.Status != "" {
		cond = ` WHERE status = $1`
		args = append(args, string(p.Status))
	}
	if p.CreatorID != nil {
		if p.Status != "" {
			cond += ` AND creator_id = $2`
		} else {
			cond = ` WHERE creator_id = $1`
		}
		args = append(args, *p.CreatorID)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activities`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + activityColumns + ` FROM activities` + cond +
		` ORDER BY start_time DESC LIMIT ` + strconv.Itoa(p.PageSize) + ` OFFSET ` + strconv.Itoa((p.Page-1)*p.PageSize)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := scanActivity(rows, &a); err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	return list, total, rows.Err()
}

// Update changes the editable fields. Only draft and published activities can
// be edited; the WHERE clause makes the guard atomic with the write.
func (r *Repository) Update(ctx context.Context, a *models.Activity) error {
	const q = `UPDATE activities SET title = $1, description = $2, location = $3,
			start_time = $4, end_time = $5, registration_deadline = $6,
			min_participants = $7, max_participants = $8, fee_cents = $9, updated_at = NOW()
		WHERE id = $10 AND status IN ('draft', 'published')`
	tag, err := r.pool.Exec(ctx, q, a.Title, a.Description, a.Location,
		a.StartTime, a.EndTime, a.RegistrationDeadline,
		a.MinParticipants, a.MaxParticipants, a.FeeCents, a.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

// UpdateStatus moves the activity from one status to another. The old status
// in the WHERE clause guards against concurrent transitions.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ActivityStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE activities SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		string(to), id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

// SetCheckInCode stores a new rotating check-in code and enables check-in.
func (r *Repository) SetCheckInCode(ctx context.Context, id uuid.UUID, code string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE activities SET check_in_code = $1, check_in_enabled = TRUE, updated_at = NOW() WHERE id = $2`,
		code, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DisableCheckIn turns check-in off; the code is kept but inert.
func (r *Repository) DisableCheckIn(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE activities SET check_in_enabled = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StartDue flips published activities whose start time has passed to ongoing.
// Called by the worker's status sweep.
func (r *Repository) StartDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE activities SET status = 'ongoing', updated_at = NOW()
		 WHERE status = 'published' AND start_time <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CompleteDue flips ongoing activities whose end time has passed to completed.
func (r *Repository) CompleteDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE activities SET status = 'completed', updated_at = NOW()
		 WHERE status = 'ongoing' AND end_time <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
