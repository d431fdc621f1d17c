package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-whiteboard/internal/domain"
	httpHandler "collaborative-whiteboard/internal/handler/http"
	"collaborative-whiteboard/internal/service"
)

type stubRoomService struct {
	joinRoom *domain.Room
	joinErr  error
	getRoom  *domain.Room
	getErr   error
}

func (s *stubRoomService) JoinOrCreate(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.joinRoom, s.joinErr
}

func (s *stubRoomService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.getRoom, s.getErr
}

func setupRouter(svc httpHandler.RoomService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := httpHandler.NewRoomHandler(svc)
	router := gin.New()
	router.POST("/api/rooms/join", handler.JoinRoom)
	router.GET("/api/rooms/:roomId", handler.GetRoom)
	return router
}

func TestJoinRoomReturnsRoom(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	router := setupRouter(&stubRoomService{
		joinRoom: &domain.Room{RoomID: "room1", CreatedAt: created, ActiveUsers: 2},
	})

	body, _ := json.Marshal(gin.H{"roomId": "room1"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/rooms/join", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Room    struct {
			RoomID      string `json:"roomId"`
			ActiveUsers uint   `json:"activeUsers"`
		} `json:"room"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "room1", resp.Room.RoomID)
	assert.Equal(t, uint(2), resp.Room.ActiveUsers)
}

func TestJoinRoomRejectsMissingRoomID(t *testing.T) {
	router := setupRouter(&stubRoomService{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/rooms/join", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinRoomMapsInvalidRoomID(t *testing.T) {
	router := setupRouter(&stubRoomService{joinErr: service.ErrInvalidRoomID})

	body, _ := json.Marshal(gin.H{"roomId": "way-too-long"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/rooms/join", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRoomReturnsHistory(t *testing.T) {
	cmd := domain.DrawingCommand{ID: 1, RoomID: "room1", Kind: domain.CommandStroke, Payload: json.RawMessage(`{"points":[],"color":"#000","width":2}`)}
	router := setupRouter(&stubRoomService{
		getRoom: &domain.Room{RoomID: "room1", DrawingHistory: []domain.DrawingCommand{cmd}},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/rooms/room1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Room struct {
			DrawingData []domain.DrawingCommand `json:"drawingData"`
		} `json:"room"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Room.DrawingData, 1)
	assert.Equal(t, domain.CommandStroke, resp.Room.DrawingData[0].Kind)
}

func TestGetRoomMapsNotFound(t *testing.T) {
	router := setupRouter(&stubRoomService{getErr: service.ErrRoomNotFound})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/rooms/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRoomMapsInternalError(t *testing.T) {
	router := setupRouter(&stubRoomService{getErr: service.ErrInternalServer})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/rooms/room1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
