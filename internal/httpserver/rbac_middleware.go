package httpserver

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sciencehub/internal/apperr"
	"sciencehub/internal/caller"
	"sciencehub/internal/handler"
	"sciencehub/pkg/rbac"
)

// RequirePermission rejects callers whose role does not grant permission.
// It runs after AuthMiddleware.
func RequirePermission(permission string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := caller.FromContext(c.Request.Context())
		if !ok {
			handler.WriteError(c, logger, apperr.Unauthenticated("user not authenticated"))
			return
		}
		if err := rbac.CheckPermission(string(cl.Role), permission); err != nil {
			handler.WriteError(c, logger, apperr.Forbidden("%s", err.Error()))
			return
		}
		c.Next()
	}
}
