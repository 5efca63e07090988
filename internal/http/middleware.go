package http

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"password-analyzer/internal/service"
)

const debugKey = "debug_errors"

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// recoveryMiddleware convierte un panic en un 500 generico.
func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("unhandled panic",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	})
}

// debugErrorsMiddleware marca el request para incluir el detalle interno en errores.
func debugErrorsMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(debugKey, enabled)
		c.Next()
	}
}

// corsMiddleware permite solo los origenes configurados, con credenciales.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	origins := make([]string, 0, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && slices.Contains(origins, origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// rateLimitMiddleware rechaza con 429 y Retry-After cuando el limiter niega la clave.
// keyFn devuelve "" si el request no tiene clave; en ese caso no se limita.
func rateLimitMiddleware(limiter service.RateLimiter, keyFn func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := keyFn(c)
		if key == "" {
			c.Next()
			return
		}
		if ok, retryAfter := limiter.Allow(c.Request.Context(), key); !ok {
			c.Header("Retry-After", retryAfterSeconds(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

// retryAfterSeconds redondea hacia arriba; nunca devuelve menos de 1.
func retryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	return strconv.FormatInt(max(secs, 1), 10)
}

func clientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

func authUserKey(c *gin.Context) string {
	user, ok := GetAuthUser(c)
	if !ok {
		return ""
	}
	return user.ID
}

// writeError responde {error} y agrega el detalle interno en modo desarrollo.
func writeError(c *gin.Context, status int, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil && c.GetBool(debugKey) {
		body["detail"] = err.Error()
	}
	c.JSON(status, body)
}
