package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/sonic-extract-go/internal/app"
	"github.com/yourusername/sonic-extract-go/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// EventWebSocketHandler streams task lifecycle events to WebSocket clients
type EventWebSocketHandler struct {
	scheduler *app.Scheduler
	logger    *zap.Logger
}

// NewEventWebSocketHandler creates a new WebSocket handler
func NewEventWebSocketHandler(scheduler *app.Scheduler, log *zap.Logger) *EventWebSocketHandler {
	return &EventWebSocketHandler{
		scheduler: scheduler,
		logger:    log,
	}
}

// HandleWebSocket handles WebSocket connections for event streaming. Each
// connection gets its own bus subscription; a client that cannot keep up
// loses events rather than stalling the core.
func (h *EventWebSocketHandler) HandleWebSocket(c *gin.Context) {
	taskFilter := c.Query("task_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket client connected",
		zap.String("remote_addr", c.Request.RemoteAddr),
		zap.String("task_filter", taskFilter))

	events, unsubscribe := h.scheduler.Subscribe(256)
	defer unsubscribe()

	// Read messages from client (for close detection and ping/pong)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if taskFilter != "" && event.TaskID != taskFilter {
				continue
			}
			if err := h.writeEvent(conn, event); err != nil {
				return
			}

		case <-ticker.C:
			// Send ping to keep connection alive
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

func (h *EventWebSocketHandler) writeEvent(conn *websocket.Conn, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal event", zap.Error(err))
		return nil
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug("WebSocket write failed, dropping client", zap.Error(err))
		return err
	}
	return nil
}
