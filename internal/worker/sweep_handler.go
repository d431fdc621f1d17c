package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/service"
)

const sweepLockKey = "wb:sweep:lock"

// RoomSweepHandler reclaims rooms with no active users whose last activity
// is older than the idle threshold. A redis lock keeps concurrent processes
// from sweeping at the same time; the sweep itself is idempotent, so a lost
// lock only costs a redundant DELETE.
type RoomSweepHandler struct {
	rooms   *service.RoomService
	redis   *redis.Client
	maxIdle time.Duration
}

// NewRoomSweepHandler creates the handler. maxIdle is the staleness
// threshold after which an unoccupied room is reclaimed.
func NewRoomSweepHandler(rooms *service.RoomService, redisClient *redis.Client, maxIdle time.Duration) *RoomSweepHandler {
	if rooms == nil {
		panic("RoomService cannot be nil for RoomSweepHandler")
	}
	return &RoomSweepHandler{rooms: rooms, redis: redisClient, maxIdle: maxIdle}
}

// ProcessTask implements asynq.Handler.
func (h *RoomSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	if h.redis != nil {
		locked, err := h.redis.SetNX(ctx, sweepLockKey, time.Now().UTC().Format(time.RFC3339), 10*time.Minute).Result()
		if err != nil {
			logCtx.WithError(err).Warn("Sweep lock check failed, proceeding without lock")
		} else if !locked {
			logCtx.Debug("Sweep already running elsewhere, skipping")
			return nil
		} else {
			defer h.redis.Del(context.Background(), sweepLockKey)
		}
	}

	removed, err := h.rooms.SweepIdleRooms(ctx, h.maxIdle)
	if err != nil {
		return fmt.Errorf("sweep idle rooms: %w", err)
	}
	logCtx.WithField("removed", removed).Info("Idle-room sweep complete")
	return nil
}
