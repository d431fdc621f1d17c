package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/repository"
)

const maxRoomIDLength = 64

// ValidRoomID reports whether roomID fits the room_id column. Both the HTTP
// join endpoint and the WebSocket join path enforce it, so no room can exist
// in memory that the store cannot record.
func ValidRoomID(roomID string) bool {
	return roomID != "" && len(roomID) <= maxRoomIDLength
}

// RoomService owns all Room Store access: room lookup/creation for the HTTP
// surface, the presence side effects of join/leave, history replay, stroke
// persistence and idle-room reclamation.
type RoomService struct {
	roomRepo repository.RoomRepository
}

// NewRoomService creates a RoomService.
func NewRoomService(roomRepo repository.RoomRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo}
}

// JoinOrCreate returns the room record, creating it when absent. Concurrent
// creation attempts converge on one record in the repository.
func (s *RoomService) JoinOrCreate(ctx context.Context, roomID string) (*domain.Room, error) {
	if !ValidRoomID(roomID) {
		return nil, ErrInvalidRoomID
	}
	room, err := s.roomRepo.CreateIfAbsent(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to create or fetch room")
		return nil, ErrInternalServer
	}
	return room, nil
}

// GetRoom returns the room record with its drawing history.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to fetch room")
		return nil, ErrInternalServer
	}
	history, err := s.roomRepo.History(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to fetch room history")
		return nil, ErrInternalServer
	}
	room.DrawingHistory = history
	return room, nil
}

// RecordJoin applies the presence side effect of a join: upsert the room,
// increment ActiveUsers and touch LastActivity. Best-effort; a failure is
// logged and must never block the presence broadcast. The discrepancy
// self-heals on the next successful update or is swept once the room goes
// permanently stale.
func (s *RoomService) RecordJoin(ctx context.Context, roomID string) {
	if err := s.roomRepo.RecordJoin(ctx, roomID); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Warn("Presence join update failed, continuing with in-memory state")
	}
}

// RecordLeave applies the presence side effect of a leave or disconnect.
// Best-effort, same contract as RecordJoin. The repository floors the
// counter at zero.
func (s *RoomService) RecordLeave(ctx context.Context, roomID string) {
	if err := s.roomRepo.RecordLeave(ctx, roomID); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Warn("Presence leave update failed, continuing with in-memory state")
	}
}

// TouchActivity refreshes the room's LastActivity. Best-effort.
func (s *RoomService) TouchActivity(ctx context.Context, roomID string) {
	if err := s.roomRepo.TouchActivity(ctx, roomID); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Warn("Activity touch failed")
	}
}

// History returns the room's drawing commands in replay order. A store
// failure degrades to an empty history so a joiner still gets a replay
// message.
func (s *RoomService) History(ctx context.Context, roomID string) []domain.DrawingCommand {
	history, err := s.roomRepo.History(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Warn("Failed to load history for replay, sending empty canvas")
		return nil
	}
	return history
}

// AppendStroke persists one completed stroke as a single history command.
func (s *RoomService) AppendStroke(ctx context.Context, roomID string, stroke domain.StrokePayload, at time.Time) error {
	cmd := domain.DrawingCommand{RoomID: roomID, Timestamp: at}
	if err := cmd.SetStroke(stroke); err != nil {
		return err
	}
	return s.roomRepo.AppendCommand(ctx, cmd)
}

// ClearCanvas truncates the room's history. Best-effort; the canvas-cleared
// broadcast has already been delivered when this runs.
func (s *RoomService) ClearCanvas(ctx context.Context, roomID string) {
	if err := s.roomRepo.ClearHistory(ctx, roomID); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to truncate room history after clear broadcast")
	}
}

// SweepIdleRooms deletes every room that has been unoccupied and inactive
// for longer than maxIdle. Returns the number of rooms reclaimed.
func (s *RoomService) SweepIdleRooms(ctx context.Context, maxIdle time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxIdle)
	removed, err := s.roomRepo.DeleteStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logrus.WithFields(logrus.Fields{"removed": removed, "cutoff": cutoff.Format(time.RFC3339)}).Info("Reclaimed idle rooms")
	}
	return removed, nil
}
