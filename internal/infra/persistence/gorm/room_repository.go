package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/repository"
)

// GormRoomRepository is the GORM implementation of repository.RoomRepository.
// Per-room atomicity comes from single-statement updates; multi-table
// mutations (append, clear, sweep) run inside a transaction.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, "room_id = ?", roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room %q: %w", roomID, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) CreateIfAbsent(ctx context.Context, roomID string) (*domain.Room, error) {
	now := time.Now().UTC()
	room := domain.Room{RoomID: roomID, LastActivity: now}
	// Concurrent creators converge on one record; joining an existing room
	// still counts as activity.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_activity": now}),
		}).
		Create(&room).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: create room %q: %w", roomID, err)
	}
	return r.FindByID(ctx, roomID)
}

func (r *GormRoomRepository) RecordJoin(ctx context.Context, roomID string) error {
	now := time.Now().UTC()
	room := domain.Room{RoomID: roomID, LastActivity: now, ActiveUsers: 1}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "room_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"active_users":  gorm.Expr("active_users + 1"),
				"last_activity": now,
			}),
		}).
		Create(&room).Error
	if err != nil {
		return fmt.Errorf("gorm: record join for room %q: %w", roomID, err)
	}
	return nil
}

func (r *GormRoomRepository) RecordLeave(ctx context.Context, roomID string) error {
	now := time.Now().UTC()
	// CASE expression floors the counter at zero; duplicate leaves and
	// out-of-order disconnects must never drive it negative.
	err := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"active_users":  gorm.Expr("CASE WHEN active_users > 0 THEN active_users - 1 ELSE 0 END"),
			"last_activity": now,
		}).Error
	if err != nil {
		return fmt.Errorf("gorm: record leave for room %q: %w", roomID, err)
	}
	return nil
}

func (r *GormRoomRepository) TouchActivity(ctx context.Context, roomID string) error {
	err := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("room_id = ?", roomID).
		Update("last_activity", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("gorm: touch activity for room %q: %w", roomID, err)
	}
	return nil
}

func (r *GormRoomRepository) History(ctx context.Context, roomID string) ([]domain.DrawingCommand, error) {
	var cmds []domain.DrawingCommand
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id ASC").
		Find(&cmds).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: load history for room %q: %w", roomID, err)
	}
	return cmds, nil
}

func (r *GormRoomRepository) AppendCommand(ctx context.Context, cmd domain.DrawingCommand) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&cmd).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Room{}).
			Where("room_id = ?", cmd.RoomID).
			Update("last_activity", time.Now().UTC()).Error
	})
	if err != nil {
		return fmt.Errorf("gorm: append %s command to room %q: %w", cmd.Kind, cmd.RoomID, err)
	}
	return nil
}

func (r *GormRoomRepository) ClearHistory(ctx context.Context, roomID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.DrawingCommand{}).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Room{}).
			Where("room_id = ?", roomID).
			Update("last_activity", time.Now().UTC()).Error
	})
	if err != nil {
		return fmt.Errorf("gorm: clear history for room %q: %w", roomID, err)
	}
	return nil
}

func (r *GormRoomRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var staleIDs []string
		if err := tx.Model(&domain.Room{}).
			Where("active_users = 0 AND last_activity < ?", cutoff).
			Pluck("room_id", &staleIDs).Error; err != nil {
			return err
		}
		if len(staleIDs) == 0 {
			return nil
		}
		if err := tx.Where("room_id IN ?", staleIDs).Delete(&domain.DrawingCommand{}).Error; err != nil {
			return err
		}
		res := tx.Where("room_id IN ?", staleIDs).Delete(&domain.Room{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("gorm: delete stale rooms before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return removed, nil
}
