package checkins

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldday/backend/internal/activities"
	"github.com/fieldday/backend/internal/middleware"
	"github.com/fieldday/backend/internal/models"
	"github.com/fieldday/backend/internal/realtime"
	"github.com/fieldday/backend/pkg/response"
)

// CheckInRequest is the body for POST /activities/:id/check-in.
type CheckInRequest struct {
	Code string `json:"code" binding:"required"`
}

// ValidateRequest is the body for POST /activities/:id/check-in/validate.
type ValidateRequest struct {
	Code string `json:"code" binding:"required"`
}

// Handler handles check-in HTTP endpoints.
type Handler struct {
	repo         *Repository
	activityRepo *activities.Repository
	hub          *realtime.Hub
	logger       *zap.Logger
}

// NewHandler creates a check-ins handler.
func NewHandler(repo *Repository, activityRepo *activities.Repository, hub *realtime.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, activityRepo: activityRepo, hub: hub, logger: logger}
}

// GenerateCode handles POST /activities/:id/check-in/code (creator only).
// A new code replaces and invalidates the previous one.
func (h *Handler) GenerateCode(c *gin.Context) {
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
		response.Forbidden(c, "only the creator can manage check-in")
		return
	}
	if a.Status != models.ActivityPublished && a.Status != models.ActivityOngoing {
		response.Conflict(c, "check-in is only available for published or ongoing activities")
		return
	}

	code, err := GenerateCode()
	if err != nil {
		response.Internal(c, "failed to generate code")
		return
	}
	if err := h.activityRepo.SetCheckInCode(c.Request.Context(), activityID, code); err != nil {
		h.logger.Error("set check-in code failed", zap.Error(err), zap.String("activity_id", activityID.String()))
		response.Internal(c, "failed to set check-in code")
		return
	}
	response.OK(c, gin.H{"code": code})
}

// DisableCode handles DELETE /activities/:id/check-in/code (creator only).
func (h *Handler) DisableCode(c *gin.Context) {
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
		response.Forbidden(c, "only the creator can manage check-in")
		return
	}

	if err := h.activityRepo.DisableCheckIn(c.Request.Context(), activityID); err != nil {
		response.Internal(c, "failed to disable check-in")
		return
	}
	response.NoContent(c)
}

// Validate handles POST /activities/:id/check-in/validate. It reports whether
// a check-in would succeed without recording anything.
func (h *Handler) Validate(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	res, _, err := h.evaluate(c, activityID, userID, req.Code)
	if err != nil {
		return // evaluate already wrote the response
	}
	response.OK(c, gin.H{"allowed": res.Allowed, "reason": res.Reason})
}

// CheckIn handles POST /activities/:id/check-in.
func (h *Handler) CheckIn(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	res, a, err := h.evaluate(c, activityID, userID, req.Code)
	if err != nil {
		return
	}
	if !res.Allowed {
		response.Conflict(c, res.Reason)
		return
	}

	ci := &models.CheckIn{ActivityID: activityID, UserID: userID, CheckInCode: a.CheckInCode}
	if err := h.repo.Create(c.Request.Context(), ci); err != nil {
		if errors.Is(err, ErrAlreadyCheckedIn) {
			response.Conflict(c, DenyAlreadyCheckedIn)
			return
		}
		h.logger.Error("create check-in failed", zap.Error(err), zap.String("activity_id", activityID.String()))
		response.Internal(c, "failed to check in")
		return
	}

	if h.hub != nil {
		h.hub.PublishToActivity(activityID, "check_in", gin.H{
			"user_id":       userID.String(),
			"checked_in_at": ci.CheckedInAt,
		})
	}
	response.Created(c, ci)
}

// List handles GET /activities/:id/check-ins (creator only).
func (h *Handler) List(c *gin.Context) {
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
		response.Forbidden(c, "only the creator can view the attendance list")
		return
	}

	list, err := h.repo.ListByActivity(c.Request.Context(), activityID)
	if err != nil {
		h.logger.Error("list check-ins failed", zap.Error(err))
		response.Internal(c, "failed to list check-ins")
		return
	}
	response.OK(c, gin.H{"check_ins": list, "total": len(list)})
}

// evaluate gathers the state a check-in decision needs and runs Evaluate. On
// lookup failure it writes the error response and returns a non-nil error.
func (h *Handler) evaluate(c *gin.Context, activityID, userID uuid.UUID, code string) (Result, *models.Activity, error) {
	a, err := h.activityRepo.GetByID(c.Request.Context(), activityID)
	if err != nil {
		response.NotFound(c, "activity not found")
		return Result{}, nil, err
	}

	already, err := h.repo.Exists(c.Request.Context(), activityID, userID)
	if err != nil {
		response.Internal(c, "failed to check in")
		return Result{}, nil, err
	}

	reg, err := h.repo.GetApprovedRegistration(c.Request.Context(), activityID, userID)
	if err != nil {
		response.Internal(c, "failed to check in")
		return Result{}, nil, err
	}

	var hasPaid bool
	if reg != nil && a.IsPaid() {
		hasPaid, err = h.repo.HasPaidOrder(c.Request.Context(), reg.ID)
		if err != nil {
			response.Internal(c, "failed to check in")
			return Result{}, nil, err
		}
	}

	return Evaluate(a, code, reg, already, hasPaid), a, nil
}
