package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/hub"
)

// WebSocketHandler upgrades connections and hands them to the hub. Room
// membership is negotiated afterwards over join-room events, not in the URL.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origins once the deployment origin is fixed.
				return true
			},
		},
		hub: h,
	}
}

// HandleConnection upgrades the request, mints the connection identifier and
// starts the client's pumps.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade writes its own HTTP error response.
		logrus.WithError(err).Warn("Failed to upgrade connection")
		return
	}

	connID := uuid.NewString()
	client := hub.NewClient(h.hub, conn, connID)
	h.hub.Register(client)
	client.Run()

	logrus.WithField("conn_id", connID).Info("Connection established")
}
