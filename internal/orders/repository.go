package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldday/backend/internal/models"
)

var (
	// ErrNotFound is returned when the order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrStateConflict is returned when a conditional update matched no row.
	ErrStateConflict = errors.New("order state conflict")
	// ErrAlreadyPaid is returned when the registration already has a settled order.
	ErrAlreadyPaid = errors.New("registration already has a paid order")
)

const orderColumns = `id, order_no, registration_id, activity_id, user_id, amount_cents, status,
	payment_method, provider_ref, expire_time, paid_at, refunded_at, created_at, updated_at`

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, so order creation can
// run standalone or inside the registration approval transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles order persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an orders repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanOrder(row pgx.Row, o *models.Order) error {
	return row.Scan(&o.ID, &o.OrderNo, &o.RegistrationID, &o.ActivityID, &o.UserID,
		&o.AmountCents, &o.Status, &o.PaymentMethod, &o.ProviderRef,
		&o.ExpireTime, &o.PaidAt, &o.RefundedAt, &o.CreatedAt, &o.UpdatedAt)
}

// CreateTx inserts a pending order on db (pool or open transaction). Order
// number collisions are retried with a fresh number; a conflict on the
// one-live-order-per-registration index surfaces as ErrStateConflict so the
// caller can re-read the winning row.
func CreateTx(ctx context.Context, db dbtx, o *models.Order) error {
	const q = `INSERT INTO orders (order_no, registration_id, activity_id, user_id, amount_cents, expire_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + orderColumns

	for attempt := 0; attempt < 3; attempt++ {
		orderNo, err := GenerateOrderNo(time.Now())
		if err != nil {
			return err
		}
		err = scanOrder(db.QueryRow(ctx, q, orderNo, o.RegistrationID, o.ActivityID, o.UserID, o.AmountCents, o.ExpireTime), o)
		if err == nil {
			return nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "orders_order_no_key" {
				continue
			}
			return ErrStateConflict
		}
		return err
	}
	return errors.New("order number collision retries exhausted")
}

// GetByID returns an order by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	var o models.Order
	if err := scanOrder(r.pool.QueryRow(ctx, q, id), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// GetLiveByRegistration returns the pending or paid order for a registration, if any.
func (r *Repository) GetLiveByRegistration(ctx context.Context, registrationID uuid.UUID) (*models.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders
		WHERE registration_id = $1 AND status IN ('pending', 'paid')`
	var o models.Order
	if err := scanOrder(r.pool.QueryRow(ctx, q, registrationID), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Order
	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// OrderRegistration is the slice of a registration the order flow needs.
type OrderRegistration struct {
	ID         uuid.UUID
	ActivityID uuid.UUID
	UserID     uuid.UUID
	Status     models.RegistrationStatus
}

// GetRegistration reads the registration referenced by an order request.
func (r *Repository) GetRegistration(ctx context.Context, id uuid.UUID) (*OrderRegistration, error) {
	const q = `SELECT id, activity_id, user_id, status FROM registrations WHERE id = $1`
	var reg OrderRegistration
	err := r.pool.QueryRow(ctx, q, id).Scan(&reg.ID, &reg.ActivityID, &reg.UserID, &reg.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// CreateForRegistration creates (or returns) the order for an approved paid
// registration. Retrying while a pending order is unexpired is idempotent and
// returns the existing order; an expired pending order is flipped and replaced.
func (r *Repository) CreateForRegistration(ctx context.Context, reg *OrderRegistration, amountCents int) (*models.Order, error) {
	existing, err := r.GetLiveByRegistration(ctx, reg.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		switch {
		case existing.Status == models.OrderPaid:
			return nil, ErrAlreadyPaid
		case existing.IsExpired(time.Now()):
			if err := r.MarkExpired(ctx, existing.ID); err != nil {
				return nil, err
			}
		default:
			return existing, nil
		}
	}

	o := &models.Order{
		RegistrationID: reg.ID,
		ActivityID:     reg.ActivityID,
		UserID:         reg.UserID,
		AmountCents:    amountCents,
		ExpireTime:     time.Now().Add(models.OrderTTL),
	}
	if err := CreateTx(ctx, r.pool, o); err != nil {
		if errors.Is(err, ErrStateConflict) {
			// lost a concurrent create; the winner's row is the order
			return r.GetLiveByRegistration(ctx, reg.ID)
		}
		return nil, err
	}
	return o, nil
}

// MarkExpired flips a pending order to expired (lazy expiry).
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = 'expired', updated_at = NOW() WHERE id = $1 AND status = 'pending'`, id)
	return err
}

// MarkPaid settles a pending, unexpired order.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, method, providerRef string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = 'paid', payment_method = $1, provider_ref = $2, paid_at = NOW(), updated_at = NOW()
		 WHERE id = $3 AND status = 'pending' AND expire_time > NOW()`,
		method, providerRef, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

// Cancel cancels a pending order.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = 'cancelled', updated_at = NOW() WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

// Refund refunds a paid order and compensates in the same transaction: the
// linked registration goes back to cancelled and the activity seat is freed.
func (r *Repository) Refund(ctx context.Context, o *models.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status = 'refunded', refunded_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'paid'`, o.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}

	if _, err := tx.Exec(ctx,
		`UPDATE registrations SET status = 'cancelled', updated_at = NOW()
		 WHERE id = $1 AND status = 'approved'`, o.RegistrationID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE activities SET current_participants = current_participants - 1, updated_at = NOW()
		 WHERE id = $1 AND current_participants > 0`, o.ActivityID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ExpireOverdue flips all pending orders past their payment window and returns
// them so the caller can notify the owners. Run by the worker sweep.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) ([]models.Order, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE orders SET status = 'expired', updated_at = NOW()
		 WHERE status = 'pending' AND expire_time < $1
		 RETURNING `+orderColumns, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Order
	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}
