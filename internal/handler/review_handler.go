package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sciencehub/internal/model"
	"sciencehub/internal/service/review"
)

type ReviewHandler struct {
	reviews *review.Service
	logger  *zap.Logger
}

func NewReviewHandler(reviews *review.Service, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

// List handles GET /reviews?user_id=&application_id=
func (h *ReviewHandler) List(c *gin.Context) {
	if _, ok := requireCaller(c, h.logger); !ok {
		return
	}
	filter := model.ReviewFilter{
		RevieweeID:    c.Query("user_id"),
		ApplicationID: c.Query("application_id"),
	}
	reviews, err := h.reviews.List(c.Request.Context(), filter)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// Get handles GET /reviews/:id
func (h *ReviewHandler) Get(c *gin.Context) {
	if _, ok := requireCaller(c, h.logger); !ok {
		return
	}
	rv, err := h.reviews.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": rv})
}

// Create handles POST /reviews
func (h *ReviewHandler) Create(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var req model.NewReview
	if !bindJSON(c, h.logger, &req) {
		return
	}
	rv, err := h.reviews.Create(c.Request.Context(), cl, req)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": rv})
}

// Update handles PUT /reviews/:id
func (h *ReviewHandler) Update(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var patch model.ReviewPatch
	if !bindJSON(c, h.logger, &patch) {
		return
	}
	rv, err := h.reviews.Update(c.Request.Context(), cl, c.Param("id"), patch)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": rv})
}

// Delete handles DELETE /reviews/:id
func (h *ReviewHandler) Delete(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	if err := h.reviews.Delete(c.Request.Context(), cl, c.Param("id")); err != nil {
		WriteError(c, h.logger, err)
		return
	}
	deleted(c)
}
