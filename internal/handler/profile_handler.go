package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sciencehub/internal/apperr"
	"sciencehub/internal/model"
	"sciencehub/internal/service/profile"
)

type ProfileHandler struct {
	profiles *profile.Service
	logger   *zap.Logger
}

func NewProfileHandler(profiles *profile.Service, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// Create handles POST /create-profile
func (h *ProfileHandler) Create(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var req struct {
		Role model.Role `json:"role"`
	}
	if !bindJSON(c, h.logger, &req) {
		return
	}
	p, err := h.profiles.CreateProfile(c.Request.Context(), cl, req.Role)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"profile": p})
}

// Get handles GET /profile
func (h *ProfileHandler) Get(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	p, err := h.profiles.GetProfile(c.Request.Context(), cl)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

// Update handles PUT /profile. The body is read as the caller's role
// profile.
func (h *ProfileHandler) Update(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	switch cl.Role {
	case model.RoleCompany:
		var patch model.CompanyProfilePatch
		if !bindJSON(c, h.logger, &patch) {
			return
		}
		p, err := h.profiles.UpdateCompanyProfile(ctx, cl, patch)
		if err != nil {
			WriteError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": p})
	case model.RoleResearcher:
		var patch model.ResearcherProfilePatch
		if !bindJSON(c, h.logger, &patch) {
			return
		}
		p, err := h.profiles.UpdateResearcherProfile(ctx, cl, patch)
		if err != nil {
			WriteError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": p})
	default:
		WriteError(c, h.logger, apperr.Forbidden("create a profile first"))
	}
}
