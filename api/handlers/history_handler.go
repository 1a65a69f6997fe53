package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/sonic-extract-go/internal/domain"
)

// HistoryHandler serves the durable record of finished tasks
type HistoryHandler struct {
	history domain.HistoryRepository
	logger  *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history domain.HistoryRepository, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// ListHistory handles GET /api/v1/history
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	filters := make(map[string]interface{})
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if kind := c.Query("kind"); kind != "" {
		filters["kind"] = kind
	}

	records, err := h.history.FindAll(filters)
	if err != nil {
		h.logger.Error("Failed to list history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetHistoryStats handles GET /api/v1/history/stats
func (h *HistoryHandler) GetHistoryStats(c *gin.Context) {
	stats, err := h.history.GetStats()
	if err != nil {
		h.logger.Error("Failed to get history stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
