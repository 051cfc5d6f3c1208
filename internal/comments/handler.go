package comments

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldday/backend/internal/activities"
	"github.com/fieldday/backend/internal/middleware"
	"github.com/fieldday/backend/internal/models"
	"github.com/fieldday/backend/internal/registrations"
	"github.com/fieldday/backend/pkg/response"
)

// CreateRequest is the body for POST /activities/:id/comments.
type CreateRequest struct {
	Content   string   `json:"content" binding:"required"`
	Rating    int      `json:"rating" binding:"required,min=1,max=5"`
	ImageURLs []string `json:"image_urls" binding:"max=9"`
}

// UpdateRequest is the body for PATCH /comments/:id.
type UpdateRequest struct {
	Content   *string  `json:"content"`
	Rating    *int     `json:"rating" binding:"omitempty,min=1,max=5"`
	ImageURLs []string `json:"image_urls" binding:"max=9"`
}

// Handler handles comment HTTP endpoints.
type Handler struct {
	repo         *Repository
	activityRepo *activities.Repository
	regRepo      *registrations.Repository
	logger       *zap.Logger
}

// NewHandler creates a comments handler.
func NewHandler(repo *Repository, activityRepo *activities.Repository, regRepo *registrations.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, activityRepo: activityRepo, regRepo: regRepo, logger: logger}
}

// Create handles POST /activities/:id/comments. Only participants of a
// completed activity may review it, once each.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	a, err := h.activityRepo.GetByID(c.Request.Context(), activityID)
	if err != nil {
		response.NotFound(c, "activity not found")
		return
	}
	if a.Status != models.ActivityCompleted {
		response.Conflict(c, "activity is not completed yet")
		return
	}

	reg, err := h.regRepo.GetLatest(c.Request.Context(), activityID, userID)
	if err != nil || (reg.Status != models.RegistrationApproved && reg.Status != models.RegistrationCompleted) {
		response.Forbidden(c, "only participants can review this activity")
		return
	}

	cm := &models.Comment{
		ActivityID: activityID,
		UserID:     userID,
		Content:    req.Content,
		Rating:     req.Rating,
		ImageURLs:  req.ImageURLs,
	}
	if cm.ImageURLs == nil {
		cm.ImageURLs = []string{}
	}
	if err := h.repo.Create(c.Request.Context(), cm); err != nil {
		if errors.Is(err, ErrAlreadyCommented) {
			response.Conflict(c, "already commented on this activity")
			return
		}
		h.logger.Error("create comment failed", zap.Error(err), zap.String("activity_id", activityID.String()))
		response.Internal(c, "failed to create comment")
		return
	}
	response.Created(c, cm)
}

// Update handles PATCH /comments/:id (author only).
func (h *Handler) Update(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid comment id")
		return
	}

	cm, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "comment not found")
		return
	}
	if cm.UserID != userID {
		response.Forbidden(c, "not your comment")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Content != nil {
		cm.Content = *req.Content
	}
	if req.Rating != nil {
		cm.Rating = *req.Rating
	}
	if req.ImageURLs != nil {
		cm.ImageURLs = req.ImageURLs
	}

	if err := h.repo.Update(c.Request.Context(), cm); err != nil {
		h.logger.Error("update comment failed", zap.Error(err), zap.String("comment_id", id.String()))
		response.Internal(c, "failed to update comment")
		return
	}
	response.OK(c, cm)
}

// Delete handles DELETE /comments/:id (author or admin).
func (h *Handler) Delete(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role, _ := c.Get(middleware.ContextUserRole)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid comment id")
		return
	}

	cm, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "comment not found")
		return
	}
	if cm.UserID != userID && role != string(models.RoleAdmin) {
		response.Forbidden(c, "not your comment")
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete comment")
		return
	}
	response.NoContent(c)
}

// List handles GET /activities/:id/comments with the activity's rating summary.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}

	page := atoiOr(c.Query("page"), 1)
	pageSize := atoiOr(c.Query("page_size"), 20)
	list, err := h.repo.ListByActivity(c.Request.Context(), activityID, userID, page, pageSize)
	if err != nil {
		h.logger.Error("list comments failed", zap.Error(err))
		response.Internal(c, "failed to list comments")
		return
	}
	avg, count, err := h.repo.AverageRating(c.Request.Context(), activityID)
	if err != nil {
		h.logger.Error("average rating failed", zap.Error(err))
		response.Internal(c, "failed to list comments")
		return
	}
	response.OK(c, gin.H{"comments": list, "average_rating": avg, "rating_count": count})
}

// Rating handles GET /activities/:id/rating.
func (h *Handler) Rating(c *gin.Context) {
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	avg, count, err := h.repo.AverageRating(c.Request.Context(), activityID)
	if err != nil {
		h.logger.Error("average rating failed", zap.Error(err))
		response.Internal(c, "failed to compute rating")
		return
	}
	response.OK(c, gin.H{"average_rating": avg, "rating_count": count})
}

// ToggleLike handles POST /comments/:id/like.
func (h *Handler) ToggleLike(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid comment id")
		return
	}

	liked, err := h.repo.ToggleLike(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "comment not found")
			return
		}
		h.logger.Error("toggle like failed", zap.Error(err), zap.String("comment_id", id.String()))
		response.Internal(c, "failed to toggle like")
		return
	}
	cm, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load comment")
		return
	}
	response.OK(c, gin.H{"liked": liked, "like_count": cm.LikeCount})
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
