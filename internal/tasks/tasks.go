// Package tasks defines the asynq task types and payloads shared by the
// enqueueing side (hub, scheduler) and the worker handlers.
package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"collaborative-whiteboard/internal/domain"
)

const (
	// TypeStrokePersist persists one finalized stroke to the Room Store.
	TypeStrokePersist = "drawing:persist_stroke"
	// TypeRoomSweep reclaims rooms left unoccupied and inactive.
	TypeRoomSweep = "room:sweep"
)

// StrokePersistPayload carries a finalized stroke to the worker.
type StrokePersistPayload struct {
	RoomID    string               `json:"room_id"`
	Stroke    domain.StrokePayload `json:"stroke"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewStrokePersistTask builds the persistence task for one finalized stroke.
func NewStrokePersistTask(roomID string, stroke domain.StrokePayload, at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(StrokePersistPayload{RoomID: roomID, Stroke: stroke, Timestamp: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeStrokePersist, payload), nil
}

// NewRoomSweepTask builds the periodic sweep task. It carries no payload.
func NewRoomSweepTask() *asynq.Task {
	return asynq.NewTask(TypeRoomSweep, nil)
}
