package registrations

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

// ApplyRequest is the body for POST /activities/:id/registrations.
type ApplyRequest struct {
	Message string `json:"message"`
}

// ReviewRequest is the body for POST /registrations/:id/review.
type ReviewRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
	Reason string `json:"reason"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	repo         *Repository
	activityRepo *activities.Repository
	jobs         *queue.Queue
	logger       *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(repo *Repository, activityRepo *activities.Repository, jobs *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, activityRepo: activityRepo, jobs: jobs, logger: logger}
}

// Apply handles POST /activities/:id/registrations.
func (h *Handler) Apply(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}

	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	a, err := h.activityRepo.GetByID(c.Request.Context(), activityID)
	if err != nil {
		response.NotFound(c, "activity not found")
		return
	}
	if a.CreatorID == userID {
		response.Conflict(c, "creators cannot register for their own activity")
		return
	}
	if !a.RegistrationOpen(time.Now()) {
		response.Conflict(c, "registration is closed for this activity")
		return
	}
	if a.IsFull() {
		response.Conflict(c, "activity is full")
		return
	}

	refunded, err := h.repo.HasRefunded(c.Request.Context(), activityID, userID)
	if err != nil {
		h.logger.Error("refund lookup failed", zap.Error(err))
		response.Internal(c, "failed to register")
		return
	}
	if refunded {
		response.Conflict(c, "cannot re-register after a refund for this activity")
		return
	}

	reg := &models.Registration{ActivityID: activityID, UserID: userID, Message: req.Message}
	if err := h.repo.Create(c.Request.Context(), reg); err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			response.Conflict(c, "already registered for this activity")
			return
		}
		h.logger.Error("create registration failed", zap.Error(err))
		response.Internal(c, "failed to register")
		return
	}
	response.Created(c, reg)
}

// Cancel handles POST /registrations/:id/cancel (registrant only).
func (h *Handler) Cancel(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}

	reg, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "registration not found")
		return
	}
	if reg.UserID != userID {
		response.Forbidden(c, "not your registration")
		return
	}

	a, err := h.activityRepo.GetByID(c.Request.Context(), reg.ActivityID)
	if err != nil {
		response.NotFound(c, "activity not found")
		return
	}
	if !reg.CanCancel(time.Now(), a.StartTime) {
		response.Conflict(c, "registration cannot be cancelled")
		return
	}

	if err := h.repo.Cancel(c.Request.Context(), reg); err != nil {
		switch {
		case errors.Is(err, ErrPaidOrder):
			response.Conflict(c, "order already paid; request a refund instead")
		case errors.Is(err, ErrStateConflict):
			response.Conflict(c, "registration cannot be cancelled")
		default:
			h.logger.Error("cancel registration failed", zap.Error(err), zap.String("registration_id", id.String()))
			response.Internal(c, "failed to cancel registration")
		}
		return
	}
	reg.Status = models.RegistrationCancelled
	response.OK(c, reg)
}

// Review handles POST /registrations/:id/review (activity creator only).
func (h *Handler) Review(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	reg, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "registration not found")
		return
	}
	a, err := h.activityRepo.GetByID(c.Request.Context(), reg.ActivityID)
	if err != nil {
		response.NotFound(c, "activity not found")
		return
	}
	if a.CreatorID != userID {
		response.Forbidden(c, "only the activity creator can review registrations")
		return
	}
	if !reg.CanReview() {
		response.Conflict(c, "registration already reviewed")
		return
	}

	if req.Action == "approve" {
		approved, order, err := h.repo.Approve(c.Request.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, ErrActivityFull):
				response.Conflict(c, "activity is full")
			case errors.Is(err, ErrStateConflict):
				response.Conflict(c, "registration already reviewed")
			default:
				h.logger.Error("approve registration failed", zap.Error(err), zap.String("registration_id", id.String()))
				response.Internal(c, "failed to approve registration")
			}
			return
		}
		h.notify(c, approved.UserID, a.ID, models.NotificationRegistrationApproved,
			"Registration approved", "Your registration for "+a.Title+" was approved.")
		response.OK(c, gin.H{"registration": approved, "order": order})
		return
	}

	if err := h.repo.Reject(c.Request.Context(), id, req.Reason); err != nil {
		if errors.Is(err, ErrStateConflict) {
			response.Conflict(c, "registration already reviewed")
			return
		}
		h.logger.Error("reject registration failed", zap.Error(err), zap.String("registration_id", id.String()))
		response.Internal(c, "failed to reject registration")
		return
	}
	reg.Status = models.RegistrationRejected
	reg.RejectReason = req.Reason
	h.notify(c, reg.UserID, a.ID, models.NotificationRegistrationRejected,
		"Registration rejected", "Your registration for "+a.Title+" was rejected.")
	response.OK(c, gin.H{"registration": reg})
}

// MyStatus handles GET /activities/:id/registrations/me.
func (h *Handler) MyStatus(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	reg, err := h.repo.GetLatest(c.Request.Context(), activityID, userID)
	if err != nil {
		response.NotFound(c, "no registration for this activity")
		return
	}
	refunded, err := h.repo.HasRefunded(c.Request.Context(), activityID, userID)
	if err != nil {
		h.logger.Error("refund lookup failed", zap.Error(err))
		response.Internal(c, "failed to load registration status")
		return
	}
	response.OK(c, gin.H{"registration": reg, "refunded": refunded})
}

// ListByActivity handles GET /activities/:id/registrations (creator only).
func (h *Handler) ListByActivity(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	a, err := h.activityRepo.GetByID(c.Request.Context(), activityID)
	if err != nil {
		response.NotFound(c, "activity not found")
		return
	}
	if a.CreatorID != userID {
		response.Forbidden(c, "only the activity creator can list registrations")
		return
	}
	list, err := h.repo.ListByActivity(c.Request.Context(), activityID, models.RegistrationStatus(c.Query("status")))
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// ListMine handles GET /registrations.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// notify enqueues a notification job; delivery is best effort and never fails
// the request.
func (h *Handler) notify(c *gin.Context, userID, activityID uuid.UUID, typ, title, body string) {
	if h.jobs == nil {
		return
	}
	err := h.jobs.EnqueueNotification(c.Request.Context(), queue.NotificationPayload{
		UserID:     userID,
		ActivityID: activityID,
		Type:       typ,
		Title:      title,
		Body:       body,
	})
	if err != nil {
		h.logger.Warn("notification enqueue failed", zap.Error(err), zap.String("type", typ))
	}
}
