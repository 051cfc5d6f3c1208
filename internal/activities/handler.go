package activities

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldday/backend/internal/middleware"
	"github.com/fieldday/backend/internal/models"
	"github.com/fieldday/backend/pkg/response"
)

// CreateRequest is the body for POST /activities.
type CreateRequest struct {
	Title                string    `json:"title" binding:"required"`
	Description          string    `json:"description"`
	Location             string    `json:"location"`
	StartTime            time.Time `json:"start_time" binding:"required"`
	EndTime              time.Time `json:"end_time" binding:"required"`
	RegistrationDeadline time.Time `json:"registration_deadline" binding:"required"`
	MinParticipants      int       `json:"min_participants" binding:"min=0"`
	MaxParticipants      int       `json:"max_participants" binding:"required,min=1"`
	FeeCents             int       `json:"fee_cents" binding:"min=0"`
}

// UpdateRequest is the body for PATCH /activities/:id. Nil fields are left unchanged.
type UpdateRequest struct {
	Title                *string    `json:"title"`
	Description          *string    `json:"description"`
	Location             *string    `json:"location"`
	StartTime            *time.Time `json:"start_time"`
	EndTime              *time.Time `json:"end_time"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MinParticipants      *int       `json:"min_participants"`
	MaxParticipants      *int       `json:"max_participants"`
	FeeCents             *int       `json:"fee_cents"`
}

// StatusRequest is the body for POST /activities/:id/status.
type StatusRequest struct {
	Status models.ActivityStatus `json:"status" binding:"required"`
}

// Handler handles activity HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an activities handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /activities. New activities start in draft.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !req.EndTime.After(req.StartTime) {
		response.BadRequest(c, "end_time must be after start_time")
		return
	}
	if req.RegistrationDeadline.After(req.StartTime) {
		response.BadRequest(c, "registration_deadline must not be after start_time")
		return
	}

	a := &models.Activity{
		CreatorID:            userID,
		Title:                req.Title,
		Description:          req.Description,
		Location:             req.Location,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		RegistrationDeadline: req.RegistrationDeadline,
		MinParticipants:      req.MinParticipants,
		MaxParticipants:      req.MaxParticipants,
		FeeCents:             req.FeeCents,
	}
	if err := h.repo.Create(c.Request.Context(), a); err != nil {
		h.logger.Error("create activity failed", zap.Error(err))
		response.Internal(c, "failed to create activity")
		return
	}
	response.Created(c, a)
}

// GetByID handles GET /activities/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	a, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "activity not found")
		return
	}
	response.OK(c, a)
}

// List handles GET /activities. Without filters only public statuses are shown.
func (h *Handler) List(c *gin.Context) {
	p := ListParams{
		Status:   models.ActivityStatus(c.Query("status")),
		Page:     atoiOr(c.Query("page"), 1),
		PageSize: atoiOr(c.Query("page_size"), 20),
	}
	if creator := c.Query("creator_id"); creator != "" {
		id, err := uuid.Parse(creator)
		if err != nil {
			response.BadRequest(c, "invalid creator_id")
			return
		}
		p.CreatorID = &id
	}
	list, total, err := h.repo.List(c.Request.Context(), p)
	if err != nil {
		h.logger.Error("list activities failed", zap.Error(err))
		response.Internal(c, "failed to list activities")
		return
	}
	response.OK(c, gin.H{"activities": list, "total": total, "page": p.Page, "page_size": p.PageSize})
}

// Update handles PATCH /activities/:id (creator only, draft/published only).
func (h *Handler) Update(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}

	a, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "activity not found")
		return
	}
	if a.CreatorID != userID {
		response.Forbidden(c, "only the creator can edit this activity")
		return
	}
	if !a.CanEdit() {
		response.Conflict(c, "activity can no longer be edited")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	applyUpdate(a, &req)
	if !a.EndTime.After(a.StartTime) {
		response.BadRequest(c, "end_time must be after start_time")
		return
	}
	if a.RegistrationDeadline.After(a.StartTime) {
		response.BadRequest(c, "registration_deadline must not be after start_time")
		return
	}
	if a.MaxParticipants < a.CurrentParticipants {
		response.Conflict(c, "max_participants below current participant count")
		return
	}

	if err := h.repo.Update(c.Request.Context(), a); err != nil {
		if errors.Is(err, ErrStateConflict) {
			response.Conflict(c, "activity can no longer be edited")
			return
		}
		h.logger.Error("update activity failed", zap.Error(err), zap.String("activity_id", id.String()))
		response.Internal(c, "failed to update activity")
		return
	}
	response.OK(c, a)
}

// TransitionStatus handles POST /activities/:id/status (creator only).
// Time-driven transitions are applied by the worker through the same table.
func (h *Handler) TransitionStatus(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	a, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "activity not found")
		return
	}
	if a.CreatorID != userID {
		response.Forbidden(c, "only the creator can change activity status")
		return
	}
	if !a.CanTransitionTo(req.Status) {
		response.Conflict(c, "cannot transition from "+string(a.Status)+" to "+string(req.Status))
		return
	}

	if err := h.repo.UpdateStatus(c.Request.Context(), id, a.Status, req.Status); err != nil {
		if errors.Is(err, ErrStateConflict) {
			response.Conflict(c, "activity status changed concurrently")
			return
		}
		h.logger.Error("transition status failed", zap.Error(err), zap.String("activity_id", id.String()))
		response.Internal(c, "failed to update status")
		return
	}
	a.Status = req.Status
	response.OK(c, a)
}

func applyUpdate(a *models.Activity, req *UpdateRequest) {
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Location != nil {
		a.Location = *req.Location
	}
	if req.StartTime != nil {
		a.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		a.EndTime = *req.EndTime
	}
	if req.RegistrationDeadline != nil {
		a.RegistrationDeadline = *req.RegistrationDeadline
	}
	if req.MinParticipants != nil {
		a.MinParticipants = *req.MinParticipants
	}
	if req.MaxParticipants != nil {
		a.MaxParticipants = *req.MaxParticipants
	}
	if req.FeeCents != nil {
		a.FeeCents = *req.FeeCents
	}
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
