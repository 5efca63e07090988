package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"password-analyzer/internal/service"
)

// RouterOptions agrupa middlewares configurables. Los limiters y Metrics pueden ser nil.
type RouterOptions struct {
	AllowedOrigins []string
	Authenticator  Authenticator
	LoginLimiter   service.RateLimiter
	AnalyzeLimiter service.RateLimiter
	Metrics        *Metrics
	// DebugErrors agrega el detalle interno a las respuestas de error.
	DebugErrors bool
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	opts RouterOptions,
	authH *AuthHandler,
	analysisH *AnalysisHandler,
	healthH *HealthHandler,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()

	r.Use(
		zapLoggerMiddleware(logger),
		recoveryMiddleware(logger),
		debugErrorsMiddleware(opts.DebugErrors),
		corsMiddleware(opts.AllowedOrigins),
	)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.middleware())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	requireAuth := JWTAuthMiddleware(logger, opts.Authenticator)

	auth := r.Group("/auth")
	auth.POST("/google/token", rateLimitMiddleware(opts.LoginLimiter, clientIPKey), authH.GoogleToken)
	auth.GET("/verify", requireAuth, authH.Verify)

	r.POST("/analyze-password",
		requireAuth,
		rateLimitMiddleware(opts.AnalyzeLimiter, authUserKey),
		analysisH.AnalyzePassword,
	)
	r.GET("/password-history", requireAuth, analysisH.PasswordHistory)

	r.GET("/health", healthH.Health)
	r.GET("/", healthH.Root)

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "Not Found", nil)
	})

	return r
}
