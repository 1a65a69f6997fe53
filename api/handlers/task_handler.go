package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/sonic-extract-go/internal/app"
	"github.com/yourusername/sonic-extract-go/internal/domain"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	scheduler *app.Scheduler
	logger    *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(scheduler *app.Scheduler, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// AddDownloadRequest represents a request to submit a download task
type AddDownloadRequest struct {
	URL string `json:"url" binding:"required"`
}

// AddConversionRequest represents a request to submit a conversion task
type AddConversionRequest struct {
	Input   string                    `json:"input" binding:"required"`
	Output  string                    `json:"output" binding:"required"`
	Options *domain.ConversionOptions `json:"options,omitempty"`
}

// AddDownload handles POST /api/v1/tasks/downloads
func (h *TaskHandler) AddDownload(c *gin.Context) {
	var req AddDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.scheduler.SubmitDownload(req.URL)
	if err != nil {
		h.logger.Error("Failed to submit download", zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, task)
}

// AddConversion handles POST /api/v1/tasks/conversions
func (h *TaskHandler) AddConversion(c *gin.Context) {
	var req AddConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	options := domain.DefaultConversionOptions()
	if req.Options != nil {
		options = *req.Options
	}

	task, err := h.scheduler.SubmitConversion(req.Input, req.Output, options)
	if err != nil {
		h.logger.Error("Failed to submit conversion", zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, task)
}

// GetTask handles GET /api/v1/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.scheduler.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// ListTasks handles GET /api/v1/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	status := c.Query("status")
	kind := c.Query("kind")

	tasks := h.scheduler.List()
	filtered := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if status != "" && string(t.Status) != status {
			continue
		}
		if kind != "" && string(t.Kind) != kind {
			continue
		}
		filtered = append(filtered, t)
	}

	c.JSON(http.StatusOK, filtered)
}

// GetStats handles GET /api/v1/tasks/stats
func (h *TaskHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Stats())
}

// PauseTask handles POST /api/v1/tasks/:id/pause
func (h *TaskHandler) PauseTask(c *gin.Context) {
	id := c.Param("id")

	if err := h.scheduler.Pause(id); err != nil {
		h.logger.Warn("Failed to pause task", zap.String("id", id), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "pause requested"})
}

// ResumeTask handles POST /api/v1/tasks/:id/resume
func (h *TaskHandler) ResumeTask(c *gin.Context) {
	id := c.Param("id")

	if err := h.scheduler.Resume(id); err != nil {
		h.logger.Warn("Failed to resume task", zap.String("id", id), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task queued"})
}

// CancelTask handles POST /api/v1/tasks/:id/cancel
func (h *TaskHandler) CancelTask(c *gin.Context) {
	id := c.Param("id")

	if err := h.scheduler.Cancel(id); err != nil {
		h.logger.Warn("Failed to cancel task", zap.String("id", id), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "cancel requested"})
}

// statusFor maps core errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidOperation),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyTerminal),
		errors.Is(err, domain.ErrDestinationConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
