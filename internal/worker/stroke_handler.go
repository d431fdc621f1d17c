package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/service"
	"collaborative-whiteboard/internal/tasks"
)

// StrokePersistHandler writes finalized strokes through to the Room Store.
// A returned error lets asynq retry, giving the at-least-once persistence
// attempt the relay path does not wait for.
type StrokePersistHandler struct {
	rooms *service.RoomService
}

// NewStrokePersistHandler creates the handler.
func NewStrokePersistHandler(rooms *service.RoomService) *StrokePersistHandler {
	if rooms == nil {
		panic("RoomService cannot be nil for StrokePersistHandler")
	}
	return &StrokePersistHandler{rooms: rooms}
}

// ProcessTask implements asynq.Handler.
func (h *StrokePersistHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.StrokePersistPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// Malformed payloads never become valid; skip retries.
		return fmt.Errorf("unmarshal stroke payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.rooms.AppendStroke(ctx, payload.RoomID, payload.Stroke, payload.Timestamp); err != nil {
		return fmt.Errorf("persist stroke for room %q: %w", payload.RoomID, err)
	}
	logrus.WithFields(logrus.Fields{
		"room_id": payload.RoomID,
		"points":  len(payload.Stroke.Points),
	}).Debug("Stroke persisted to history")
	return nil
}
