package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"password-analyzer/internal/service"
)

const (
	loginSuccess  = "success"
	loginInvalid  = "invalid"
	loginRejected = "rejected"
	loginConflict = "conflict"
	loginError    = "error"
)

// AuthHandler mantiene dependencias para endpoints de autenticacion.
type AuthHandler struct {
	logger  *zap.Logger
	auth    *service.AuthService
	metrics *Metrics
}

// NewAuthHandler crea una instancia de AuthHandler. metrics puede ser nil.
func NewAuthHandler(logger *zap.Logger, auth *service.AuthService, metrics *Metrics) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		auth:    auth,
		metrics: metrics,
	}
}

type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleToken maneja POST /auth/google/token.
func (h *AuthHandler) GoogleToken(c *gin.Context) {
	var req struct {
		AccessToken string          `json:"access_token" binding:"required"`
		UserInfo    *googleUserInfo `json:"user_info" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid google token request", zap.Error(err))
		h.metrics.RecordLogin(loginInvalid)
		writeError(c, http.StatusBadRequest, "Missing token or user info", err)
		return
	}

	result, err := h.auth.LoginWithGoogle(c.Request.Context(), service.GoogleLoginInput{
		AccessToken: req.AccessToken,
		Sub:         req.UserInfo.Sub,
		Email:       req.UserInfo.Email,
		Name:        req.UserInfo.Name,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOAuthInvalid):
			h.metrics.RecordLogin(loginInvalid)
			writeError(c, http.StatusBadRequest, "Missing token or user info", err)
		case errors.Is(err, service.ErrOAuthRejected):
			h.metrics.RecordLogin(loginRejected)
			writeError(c, http.StatusUnauthorized, "Invalid Google token", err)
		case errors.Is(err, service.ErrEmailTaken):
			h.metrics.RecordLogin(loginConflict)
			writeError(c, http.StatusConflict, "Email already linked to another account", err)
		default:
			h.logger.Error("google login failed", zap.Error(err))
			h.metrics.RecordLogin(loginError)
			writeError(c, http.StatusInternalServerError, "Authentication failed", err)
		}
		return
	}

	h.metrics.RecordLogin(loginSuccess)
	c.JSON(http.StatusOK, gin.H{"token": result.Token.Token, "user": result.User})
}

// Verify maneja GET /auth/verify. Requiere JWTAuthMiddleware.
func (h *AuthHandler) Verify(c *gin.Context) {
	user, ok := GetAuthUser(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Invalid token", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}
