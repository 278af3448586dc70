package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sciencehub/internal/handler"
	"sciencehub/pkg/rbac"
)

// Handlers groups the HTTP handlers the router mounts. Admin may be nil, in
// which case the operator endpoints are not registered.
type Handlers struct {
	Profile     *handler.ProfileHandler
	Project     *handler.ProjectHandler
	Application *handler.ApplicationHandler
	Chat        *handler.ChatHandler
	Review      *handler.ReviewHandler
	Admin       *handler.AdminHandler
}

type Options struct {
	JWTSecret   string
	JWTAudience string
	AdminToken  string
	// MessageLimiter throttles message sends per user. Nil disables it.
	MessageLimiter *UserRateLimiter
	// Ready reports whether backing services are reachable. Nil means
	// always ready.
	Ready func(ctx context.Context) error
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, resolver CallerResolver, opts Options, logger *zap.Logger) *Router {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
			logger.Error("Recovered from panic", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}),
		TraceMiddleware(),
		RequestLogger(logger),
		MetricsMiddleware(),
		CORSMiddleware(),
	)

	methodNotAllowed := func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	}
	r.NoRoute(methodNotAllowed)
	r.NoMethod(methodNotAllowed)

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		if opts.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
			defer cancel()
			if err := opts.Ready(ctx); err != nil {
				logger.Warn("Readiness check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if h.Admin != nil {
		admin := r.Group("/admin")
		admin.Use(AdminTokenMiddleware(opts.AdminToken))
		{
			admin.POST("/outbox/replay", h.Admin.ReplayOutboxEvent)
			admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
		}
	}

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(opts.JWTSecret, opts.JWTAudience, resolver, logger))
	{
		auth.POST("/create-profile", h.Profile.Create)
		auth.GET("/profile", h.Profile.Get)
		auth.PUT("/profile", h.Profile.Update)

		auth.GET("/projects", h.Project.List)
		auth.GET("/projects/:id", h.Project.Get)
		auth.POST("/projects", RequirePermission(rbac.PermissionProjectCreate, logger), h.Project.Create)
		auth.PUT("/projects/:id", h.Project.Update)
		auth.DELETE("/projects/:id", h.Project.Delete)

		auth.GET("/applications", h.Application.List)
		auth.GET("/applications/:id", h.Application.Get)
		auth.POST("/applications", RequirePermission(rbac.PermissionApplicationCreate, logger), h.Application.Create)
		auth.PUT("/applications/:id", h.Application.Update)
		auth.DELETE("/applications/:id", h.Application.Delete)

		auth.GET("/chats", h.Chat.List)
		auth.GET("/chats/:id", h.Chat.Get)
		auth.POST("/chats", h.Chat.Create)
		auth.PUT("/chats/:id", h.Chat.UpdateStatus)
		auth.GET("/chats/:id/messages", h.Chat.ListMessages)
		auth.POST("/chats/:id/read", h.Chat.MarkRead)
		if opts.MessageLimiter != nil {
			auth.POST("/chats/:id/messages", opts.MessageLimiter.Middleware(), h.Chat.SendMessage)
		} else {
			auth.POST("/chats/:id/messages", h.Chat.SendMessage)
		}

		auth.GET("/reviews", h.Review.List)
		auth.GET("/reviews/:id", h.Review.Get)
		auth.POST("/reviews", h.Review.Create)
		auth.PUT("/reviews/:id", h.Review.Update)
		auth.DELETE("/reviews/:id", h.Review.Delete)
	}

	return &Router{Engine: r}
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (r *Router) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
