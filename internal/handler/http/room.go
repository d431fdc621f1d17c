package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/domain"
)

// RoomService is the slice of the room service the HTTP surface consumes.
type RoomService interface {
	JoinOrCreate(ctx context.Context, roomID string) (*domain.Room, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
}

// RoomHandler serves the non-real-time room lookup/creation endpoints.
type RoomHandler struct {
	rooms RoomService
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(rooms RoomService) *RoomHandler {
	if rooms == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	return &RoomHandler{rooms: rooms}
}

// JoinRoomRequest is the body of POST /api/rooms/join.
type JoinRoomRequest struct {
	RoomID string `json:"roomId" binding:"required"`
}

// RoomResponse is the room metadata returned by the CRUD endpoints.
type RoomResponse struct {
	RoomID      string    `json:"roomId"`
	CreatedAt   time.Time `json:"createdAt"`
	ActiveUsers uint      `json:"activeUsers"`

	DrawingHistory []domain.DrawingCommand `json:"drawingData,omitempty"`
}

// JoinRoom creates the room when absent and returns its metadata. Creation
// is idempotent; concurrent joins for the same room converge on one record.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Room ID is required")
		return
	}

	room, err := h.rooms.JoinOrCreate(c.Request.Context(), req.RoomID)
	if err != nil {
		logrus.WithField("room_id", req.RoomID).WithError(err).Warn("Failed to join or create room")
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"success": true,
		"room": RoomResponse{
			RoomID:      room.RoomID,
			CreatedAt:   room.CreatedAt,
			ActiveUsers: room.ActiveUsers,
		},
	})
}

// GetRoom returns the room metadata and its drawing history.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	room, err := h.rooms.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"success": true,
		"room": RoomResponse{
			RoomID:         room.RoomID,
			CreatedAt:      room.CreatedAt,
			ActiveUsers:    room.ActiveUsers,
			DrawingHistory: room.DrawingHistory,
		},
	})
}
