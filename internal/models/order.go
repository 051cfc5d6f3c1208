package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the payment lifecycle status of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderRefunded  OrderStatus = "refunded"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
)

// OrderTTL is how long a pending order stays payable.
const OrderTTL = 30 * time.Minute

// Order is a time-boxed payment obligation for an approved paid registration.
type Order struct {
	ID             uuid.UUID   `json:"id"`
	OrderNo        string      `json:"order_no"`
	RegistrationID uuid.UUID   `json:"registration_id"`
	ActivityID     uuid.UUID   `json:"activity_id"`
	UserID         uuid.UUID   `json:"user_id"`
	AmountCents    int         `json:"amount_cents"`
	Status         OrderStatus `json:"status"`
	PaymentMethod  string      `json:"payment_method,omitempty"`
	ProviderRef    string      `json:"provider_ref,omitempty"`
	ExpireTime     time.Time   `json:"expire_time"`
	PaidAt         *time.Time  `json:"paid_at,omitempty"`
	RefundedAt     *time.Time  `json:"refunded_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// IsExpired reports whether a pending order has passed its payment window at t.
// Expiry is detected lazily; the row is flipped on the next pay/sweep.
func (o *Order) IsExpired(t time.Time) bool {
	return o.Status == OrderPending && t.After(o.ExpireTime)
}

// CanPay reports whether the order can be paid at t.
func (o *Order) CanPay(t time.Time) bool {
	return o.Status == OrderPending && !t.After(o.ExpireTime)
}

// CanCancel reports whether the owner may cancel the order.
func (o *Order) CanCancel() bool {
	return o.Status == OrderPending
}

// CanRefund reports whether a refund is allowed at t for an activity starting
// at activityStart. Refunds close two hours before start.
func (o *Order) CanRefund(t, activityStart time.Time) bool {
	return o.Status == OrderPaid && t.Before(activityStart.Add(-2*time.Hour))
}
