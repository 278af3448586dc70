package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sciencehub/internal/model"
	"sciencehub/internal/service/application"
)

type ApplicationHandler struct {
	applications *application.Service
	logger       *zap.Logger
}

func NewApplicationHandler(applications *application.Service, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, logger: logger}
}

// List handles GET /applications
func (h *ApplicationHandler) List(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	applications, err := h.applications.List(c.Request.Context(), cl)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": applications})
}

// Get handles GET /applications/:id
func (h *ApplicationHandler) Get(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	a, err := h.applications.Get(c.Request.Context(), cl, c.Param("id"))
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": a})
}

// Create handles POST /applications
func (h *ApplicationHandler) Create(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var req model.NewApplication
	if !bindJSON(c, h.logger, &req) {
		return
	}
	a, err := h.applications.Create(c.Request.Context(), cl, req)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"application": a})
}

// Update handles PUT /applications/:id
func (h *ApplicationHandler) Update(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var patch model.ApplicationPatch
	if !bindJSON(c, h.logger, &patch) {
		return
	}
	a, err := h.applications.Update(c.Request.Context(), cl, c.Param("id"), patch)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": a})
}

// Delete handles DELETE /applications/:id
func (h *ApplicationHandler) Delete(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	if err := h.applications.Delete(c.Request.Context(), cl, c.Param("id")); err != nil {
		WriteError(c, h.logger, err)
		return
	}
	deleted(c)
}
