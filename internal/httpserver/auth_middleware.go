package httpserver

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sciencehub/internal/apperr"
	"sciencehub/internal/caller"
	"sciencehub/internal/handler"
	"sciencehub/pkg/util"
)

// CallerResolver turns a verified identity into the caller a request acts as.
type CallerResolver interface {
	Resolve(ctx context.Context, userID, email string) (caller.Caller, error)
}

// AuthMiddleware verifies the bearer token and attaches the resolved caller
// to the request context.
func AuthMiddleware(jwtSecret, audience string, resolver CallerResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			handler.WriteError(c, logger, apperr.Unauthenticated("missing token"))
			return
		}

		identity, err := util.ParseJWT(token, jwtSecret, audience)
		if err != nil {
			logger.Debug("Rejected token", zap.Error(err))
			handler.WriteError(c, logger, apperr.Unauthenticated("invalid token"))
			return
		}

		cl, err := resolver.Resolve(c.Request.Context(), identity.UserID, identity.Email)
		if err != nil {
			handler.WriteError(c, logger, err)
			return
		}

		c.Request = c.Request.WithContext(caller.WithContext(c.Request.Context(), cl))
		c.Set("user_id", cl.UserID)
		c.Next()
	}
}
