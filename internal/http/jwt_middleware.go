package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"password-analyzer/internal/domain"
	"password-analyzer/internal/service"
)

const authUserCtxKey = "auth_user"

// Authenticator valida un bearer token y devuelve el usuario referenciado.
type Authenticator interface {
	Verify(ctx context.Context, token string) (domain.User, error)
}

// JWTAuthMiddleware valida el session token y guarda el usuario en el contexto.
// Los errores que no son de autenticacion (store caido) se loguean y responden 500.
func JWTAuthMiddleware(logger *zap.Logger, auth Authenticator) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if auth == nil {
			writeError(c, http.StatusInternalServerError, "Internal Server Error", errors.New("authenticator not configured"))
			c.Abort()
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			writeError(c, http.StatusUnauthorized, "No token provided", nil)
			c.Abort()
			return
		}

		user, err := auth.Verify(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUserNotFound):
				writeError(c, http.StatusUnauthorized, "User not found", err)
			case errors.Is(err, service.ErrJWTInvalid), errors.Is(err, service.ErrJWTExpired):
				writeError(c, http.StatusUnauthorized, "Invalid token", err)
			default:
				logger.Error("token verification failed",
					zap.Error(err),
					zap.String("path", c.Request.URL.Path),
				)
				writeError(c, http.StatusInternalServerError, "Internal Server Error", err)
			}
			c.Abort()
			return
		}

		c.Set(authUserCtxKey, user)
		c.Next()
	}
}

// GetAuthUser obtiene el usuario autenticado desde el contexto.
func GetAuthUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(authUserCtxKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
