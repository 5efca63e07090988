package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"password-analyzer/internal/db"
)

const (
	bannerMessage = "Password Strength Analyzer API is running"
	apiVersion    = "1.0.0"
)

// HealthHandler responde el health check y el banner de la API.
type HealthHandler struct {
	store db.StatusReporter
	now   func() time.Time
}

func NewHealthHandler(store db.StatusReporter) *HealthHandler {
	return &HealthHandler{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Health maneja GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	state := db.StateDisconnected
	if h.store != nil {
		state = h.store.State()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.now().Format(time.RFC3339),
		"store":     state,
	})
}

// Root maneja GET /.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   bannerMessage,
		"version":   apiVersion,
		"timestamp": h.now().Format(time.RFC3339),
	})
}
