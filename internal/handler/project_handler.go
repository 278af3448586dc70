package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sciencehub/internal/model"
	"sciencehub/internal/service/project"
)

type ProjectHandler struct {
	projects *project.Service
	logger   *zap.Logger
}

func NewProjectHandler(projects *project.Service, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

// List handles GET /projects
func (h *ProjectHandler) List(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	projects, err := h.projects.List(c.Request.Context(), cl)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Get handles GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	if _, ok := requireCaller(c, h.logger); !ok {
		return
	}
	p, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// Create handles POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var req model.NewProject
	if !bindJSON(c, h.logger, &req) {
		return
	}
	p, err := h.projects.Create(c.Request.Context(), cl, req)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

// Update handles PUT /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var patch model.ProjectPatch
	if !bindJSON(c, h.logger, &patch) {
		return
	}
	p, err := h.projects.Update(c.Request.Context(), cl, c.Param("id"), patch)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// Delete handles DELETE /projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), cl, c.Param("id")); err != nil {
		WriteError(c, h.logger, err)
		return
	}
	deleted(c)
}
