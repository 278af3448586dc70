package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sciencehub/internal/apperr"
	"sciencehub/internal/caller"
	"sciencehub/pkg/logger"
)

// WriteError maps err onto its HTTP status and writes {"error": ...}.
// Internal failures are logged with their cause and answered with a generic
// message.
func WriteError(c *gin.Context, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if kind == apperr.KindInternal {
		logger.WithTrace(c.Request.Context(), log).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

// getCaller reads the caller resolved by the auth middleware.
func getCaller(c *gin.Context) (caller.Caller, bool) {
	return caller.FromContext(c.Request.Context())
}

// requireCaller writes 401 and returns false when no caller is attached.
func requireCaller(c *gin.Context, log *zap.Logger) (caller.Caller, bool) {
	cl, ok := getCaller(c)
	if !ok || cl.UserID == "" {
		WriteError(c, log, apperr.Unauthenticated("user not authenticated"))
		return caller.Caller{}, false
	}
	return cl, true
}

func bindJSON(c *gin.Context, log *zap.Logger, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		WriteError(c, log, apperr.Validation("invalid request body"))
		return false
	}
	return true
}

func deleted(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}
