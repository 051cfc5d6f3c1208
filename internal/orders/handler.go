package orders

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldday/backend/internal/activities"
	"github.com/fieldday/backend/internal/middleware"
	"github.com/fieldday/backend/internal/models"
	"github.com/fieldday/backend/pkg/queue"
	"github.com/fieldday/backend/pkg/response"
)

// PayRequest is the body for POST /orders/:id/pay.
type PayRequest struct {
	Method string `json:"method" binding:"required,oneof=wallet card mock"`
}

// Handler handles order HTTP endpoints.
type Handler struct {
	repo         *Repository
	activityRepo *activities.Repository
	jobs         *queue.Queue
	logger       *zap.Logger
}

// NewHandler creates an orders handler.
func NewHandler(repo *Repository, activityRepo *activities.Repository, jobs *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, activityRepo: activityRepo, jobs: jobs, logger: logger}
}

// Create handles POST /registrations/:id/order. It is idempotent: retrying
// while a pending order is still payable returns the existing order.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	registrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}

	reg, err := h.repo.GetRegistration(c.Request.Context(), registrationID)
	if err != nil {
		response.NotFound(c, "registration not found")
		return
	}
	if reg.UserID != userID {
		response.Forbidden(c, "not your registration")
		return
	}
	if reg.Status != models.RegistrationApproved {
		response.Conflict(c, "registration is not approved")
		return
	}

	a, err := h.activityRepo.GetByID(c.Request.Context(), reg.ActivityID)
	if err != nil {
		response.NotFound(c, "activity not found")
		return
	}
	if !a.IsPaid() {
		response.Conflict(c, "activity is free; no order needed")
		return
	}

	o, err := h.repo.CreateForRegistration(c.Request.Context(), reg, a.FeeCents)
	if err != nil {
		if errors.Is(err, ErrAlreadyPaid) {
			response.Conflict(c, "registration already paid")
			return
		}
		h.logger.Error("create order failed", zap.Error(err), zap.String("registration_id", registrationID.String()))
		response.Internal(c, "failed to create order")
		return
	}
	response.Created(c, o)
}

// Pay handles POST /orders/:id/pay. Payment runs against a mock provider; the
// provider reference is recorded on the order.
func (h *Handler) Pay(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}

	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	o, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "order not found")
		return
	}
	if o.UserID != userID {
		response.Forbidden(c, "not your order")
		return
	}
	now := time.Now()
	if o.IsExpired(now) {
		if err := h.repo.MarkExpired(c.Request.Context(), o.ID); err != nil {
			h.logger.Warn("mark expired failed", zap.Error(err), zap.String("order_id", id.String()))
		}
		response.Conflict(c, "order expired")
		return
	}
	if !o.CanPay(now) {
		response.Conflict(c, "order is "+string(o.Status))
		return
	}

	providerRef := "MOCK-" + uuid.New().String()
	if err := h.repo.MarkPaid(c.Request.Context(), o.ID, req.Method, providerRef); err != nil {
		if errors.Is(err, ErrStateConflict) {
			response.Conflict(c, "order is no longer payable")
			return
		}
		h.logger.Error("pay order failed", zap.Error(err), zap.String("order_id", id.String()))
		response.Internal(c, "failed to pay order")
		return
	}

	o, err = h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load order")
		return
	}
	response.OK(c, o)
}

// Cancel handles POST /orders/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}

	o, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "order not found")
		return
	}
	if o.UserID != userID {
		response.Forbidden(c, "not your order")
		return
	}
	if !o.CanCancel() {
		response.Conflict(c, "order is "+string(o.Status))
		return
	}

	if err := h.repo.Cancel(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrStateConflict) {
			response.Conflict(c, "order is no longer cancellable")
			return
		}
		h.logger.Error("cancel order failed", zap.Error(err), zap.String("order_id", id.String()))
		response.Internal(c, "failed to cancel order")
		return
	}
	o.Status = models.OrderCancelled
	response.OK(c, o)
}

// Refund handles POST /orders/:id/refund. The refund window closes two hours
// before the activity starts; the linked registration is cancelled and the
// seat freed in the same transaction.
func (h *Handler) Refund(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}

	o, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "order not found")
		return
	}
	if o.UserID != userID {
		response.Forbidden(c, "not your order")
		return
	}

	a, err := h.activityRepo.GetByID(c.Request.Context(), o.ActivityID)
	if err != nil {
		response.NotFound(c, "activity not found")
		return
	}
	if !o.CanRefund(time.Now(), a.StartTime) {
		response.Conflict(c, "order is not refundable")
		return
	}

	if err := h.repo.Refund(c.Request.Context(), o); err != nil {
		if errors.Is(err, ErrStateConflict) {
			response.Conflict(c, "order is not refundable")
			return
		}
		h.logger.Error("refund order failed", zap.Error(err), zap.String("order_id", id.String()))
		response.Internal(c, "failed to refund order")
		return
	}

	if h.jobs != nil {
		err := h.jobs.EnqueueNotification(c.Request.Context(), queue.NotificationPayload{
			UserID:     o.UserID,
			ActivityID: o.ActivityID,
			Type:       models.NotificationOrderRefunded,
			Title:      "Order refunded",
			Body:       "Your payment for " + a.Title + " was refunded.",
		})
		if err != nil {
			h.logger.Warn("notification enqueue failed", zap.Error(err))
		}
	}

	o, err = h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load order")
		return
	}
	response.OK(c, o)
}

// Get handles GET /orders/:id (owner only).
func (h *Handler) Get(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	o, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "order not found")
		return
	}
	if o.UserID != userID {
		response.Forbidden(c, "not your order")
		return
	}
	response.OK(c, o)
}

// ListMine handles GET /orders.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list orders failed", zap.Error(err))
		response.Internal(c, "failed to list orders")
		return
	}
	response.OK(c, list)
}
