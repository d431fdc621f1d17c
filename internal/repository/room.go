package repository

import (
	"context"
	"time"

	"collaborative-whiteboard/internal/domain"
)

// RoomRepository is the durable Room Store: room identity, activity metadata
// and the accumulated drawing history. All per-room mutations must be atomic
// with respect to each other for the same room; operations on different rooms
// are independent.
type RoomRepository interface {
	// FindByID returns the room record without its history.
	// Returns ErrRoomNotFound when the room does not exist.
	FindByID(ctx context.Context, roomID string) (*domain.Room, error)

	// CreateIfAbsent creates the room record if it does not exist and returns
	// the current record, touching LastActivity either way. Concurrent
	// creation attempts for the same roomID must converge to a single record.
	CreateIfAbsent(ctx context.Context, roomID string) (*domain.Room, error)

	// RecordJoin atomically upserts the room, increments ActiveUsers and
	// touches LastActivity.
	RecordJoin(ctx context.Context, roomID string) error

	// RecordLeave atomically decrements ActiveUsers, flooring at zero, and
	// touches LastActivity. Leaving an unknown room is a no-op.
	RecordLeave(ctx context.Context, roomID string) error

	// TouchActivity updates LastActivity without changing counters.
	TouchActivity(ctx context.Context, roomID string) error

	// History returns the room's drawing commands in replay order. An unknown
	// or empty room yields an empty slice, not an error.
	History(ctx context.Context, roomID string) ([]domain.DrawingCommand, error)

	// AppendCommand appends one command to the room's history and touches
	// LastActivity.
	AppendCommand(ctx context.Context, cmd domain.DrawingCommand) error

	// ClearHistory truncates the room's history and touches LastActivity.
	ClearHistory(ctx context.Context, roomID string) error

	// DeleteStale removes every room with zero active users whose last
	// activity is older than cutoff, along with its history. Returns the
	// number of rooms removed. Re-running when nothing qualifies is a no-op.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}
