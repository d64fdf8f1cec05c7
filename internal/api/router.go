package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sociallink/backend/internal/api/auth"
	"github.com/sociallink/backend/internal/api/comment"
	"github.com/sociallink/backend/internal/api/httperr"
	"github.com/sociallink/backend/internal/api/middleware"
	"github.com/sociallink/backend/internal/api/post"
	"github.com/sociallink/backend/internal/api/reaction"
	"github.com/sociallink/backend/internal/queue"
	"github.com/sociallink/backend/pkg/config"
	"github.com/sociallink/backend/pkg/logging"
	"github.com/sociallink/backend/pkg/telemetry"
)

const healthTimeout = 2 * time.Second

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// QueueStats reports the state of the job queues
type QueueStats interface {
	Stats(ctx context.Context) ([]queue.QueueStats, error)
}

// Handlers groups the route handlers served by the router
type Handlers struct {
	Auth      *auth.Handler
	Posts     *post.Handler
	Comments  *comment.Handler
	Reactions *reaction.Handler
}

// Router sets up API routes
type Router struct {
	handlers Handlers
	cfg      *config.Config
	checks   map[string]HealthChecker
	queues   QueueStats
	logger   *zap.Logger
}

// NewRouter creates a new API router. checks maps a service name to its health
// check; queues may be nil.
func NewRouter(handlers Handlers, cfg *config.Config, checks map[string]HealthChecker, queues QueueStats) *Router {
	return &Router{
		handlers: handlers,
		cfg:      cfg,
		checks:   checks,
		queues:   queues,
		logger:   logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(
		gin.Recovery(),
		middleware.RequestLogger(),
		middleware.SecurityHeaders(),
		httperr.ErrorHandler(),
	)

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)
	engine.GET("/queues", r.queuesHandler)
	if r.cfg.Telemetry.Enabled && r.cfg.Telemetry.PrometheusEnabled {
		engine.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
	}

	v1 := engine.Group("/api/v1")

	a := r.handlers.Auth
	public := v1.Group("/", middleware.RateLimit(r.cfg.Server.AuthRateLimit, r.cfg.Server.AuthRateBurst))
	public.POST("/signup", a.Signup)
	public.POST("/signin", a.Signin)
	public.GET("/signout", a.Signout)
	public.POST("/forgot-password", a.ForgotPassword)
	public.POST("/reset-password/:token", a.ResetPassword)

	protected := v1.Group("/", middleware.RequireAuth(r.cfg.Auth.JWTSecret))
	protected.GET("/currentuser", a.CurrentUser)

	p := r.handlers.Posts
	protected.POST("/post", p.Create)
	protected.POST("/post/image", p.CreateWithImage)
	protected.GET("/post/all", p.All)
	protected.GET("/post/images", p.WithImages)
	protected.GET("/post/user/:uId", p.UserPosts)
	protected.GET("/post/:postId", p.Get)
	protected.PUT("/post/:postId", p.Update)
	protected.DELETE("/post/:postId", p.Delete)

	cm := r.handlers.Comments
	protected.POST("/post/comment", cm.Add)
	protected.GET("/post/comments/:postId", cm.Comments)
	protected.GET("/post/commentsnames/:postId", cm.Names)
	protected.GET("/post/single/comment/:postId/:commentId", cm.Single)
	protected.DELETE("/post/comment/:postId/:commentId", cm.Remove)

	rc := r.handlers.Reactions
	protected.POST("/post/reaction", rc.Add)
	protected.DELETE("/post/reaction/:postId", rc.Remove)
	protected.GET("/post/reactions/:postId", rc.Reactions)
	protected.GET("/post/single/reaction/username/:username/:postId", rc.ByUsername)
	protected.GET("/post/reactions/username/:username", rc.AllByUsername)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	services := make(gin.H, len(r.checks))
	for name, check := range r.checks {
		if err := check.Health(ctx); err != nil {
			r.logger.Warn("Health check failed", zap.String("service", name), zap.Error(err))
			services[name] = "DOWN"
			status = http.StatusServiceUnavailable
			continue
		}
		services[name] = "OK"
	}

	overall := "OK"
	if status != http.StatusOK {
		overall = "DEGRADED"
	}
	c.JSON(status, gin.H{
		"status":   overall,
		"service":  r.cfg.Telemetry.ServiceName,
		"services": services,
	})
}

// queuesHandler reports queue sizes
func (r *Router) queuesHandler(c *gin.Context) {
	if r.queues == nil {
		httperr.Abort(c, httperr.NotFound("Queue inspection is disabled"))
		return
	}
	stats, err := r.queues.Stats(c.Request.Context())
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Queue stats", "queues": stats})
}
