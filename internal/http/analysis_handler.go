package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"password-analyzer/internal/service"
)

// AnalysisHandler expone el scorer y el historial del usuario autenticado.
type AnalysisHandler struct {
	logger   *zap.Logger
	analysis *service.AnalysisService
	metrics  *Metrics
}

func NewAnalysisHandler(logger *zap.Logger, analysis *service.AnalysisService, metrics *Metrics) *AnalysisHandler {
	return &AnalysisHandler{
		logger:   logger,
		analysis: analysis,
		metrics:  metrics,
	}
}

// AnalyzePassword maneja POST /analyze-password.
func (h *AnalysisHandler) AnalyzePassword(c *gin.Context) {
	user, ok := GetAuthUser(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Invalid token", nil)
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Password is required", err)
		return
	}

	result, err := h.analysis.Analyze(c.Request.Context(), user.ID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordRequired):
			writeError(c, http.StatusBadRequest, "Password is required", err)
		case errors.Is(err, service.ErrUserNotFound):
			writeError(c, http.StatusUnauthorized, "User not found", err)
		default:
			// nunca loguear el password
			h.logger.Error("password analysis failed", zap.Error(err), zap.String("user_id", user.ID))
			writeError(c, http.StatusInternalServerError, "Analysis failed", err)
		}
		return
	}

	h.metrics.RecordAnalysis(result.Score)
	c.JSON(http.StatusOK, result)
}

// PasswordHistory maneja GET /password-history.
func (h *AnalysisHandler) PasswordHistory(c *gin.Context) {
	user, ok := GetAuthUser(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Invalid token", nil)
		return
	}

	entries, err := h.analysis.History(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(c, http.StatusUnauthorized, "User not found", err)
			return
		}
		h.logger.Error("password history failed", zap.Error(err), zap.String("user_id", user.ID))
		writeError(c, http.StatusInternalServerError, "Could not fetch history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}
