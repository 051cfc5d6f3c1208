package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderIsExpired(t *testing.T) {
	now := time.Now()
	o := Order{Status: OrderPending, ExpireTime: now.Add(10 * time.Minute)}
	assert.False(t, o.IsExpired(now))
	assert.True(t, o.IsExpired(now.Add(11*time.Minute)))

	o.Status = OrderPaid
	assert.False(t, o.IsExpired(now.Add(11*time.Minute)), "paid orders never expire")
}

func TestOrderCanPay(t *testing.T) {
	now := time.Now()
	o := Order{Status: OrderPending, ExpireTime: now.Add(OrderTTL)}
	assert.True(t, o.CanPay(now))
	assert.True(t, o.CanPay(now.Add(OrderTTL)), "payable up to the boundary")
	assert.False(t, o.CanPay(now.Add(OrderTTL+time.Second)))

	for _, s := range []OrderStatus{OrderPaid, OrderRefunded, OrderCancelled, OrderExpired} {
		o := Order{Status: s, ExpireTime: now.Add(OrderTTL)}
		assert.False(t, o.CanPay(now), string(s))
	}
}

func TestOrderCanCancel(t *testing.T) {
	assert.True(t, (&Order{Status: OrderPending}).CanCancel())
	assert.False(t, (&Order{Status: OrderPaid}).CanCancel())
	assert.False(t, (&Order{Status: OrderExpired}).CanCancel())
}

func TestOrderCanRefund(t *testing.T) {
	now := time.Now()
	start := now.Add(24 * time.Hour)

	o := Order{Status: OrderPaid}
	assert.True(t, o.CanRefund(now, start))
	assert.False(t, o.CanRefund(start.Add(-90*time.Minute), start), "window closes 2h before start")
	assert.False(t, o.CanRefund(start.Add(time.Hour), start))

	o.Status = OrderPending
	assert.False(t, o.CanRefund(now, start), "only paid orders refund")
}
