package gormpersistence_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"collaborative-whiteboard/internal/domain"
	gormpersistence "collaborative-whiteboard/internal/infra/persistence/gorm"
	"collaborative-whiteboard/internal/repository"
)

func newTestRepo(t *testing.T) (*gormpersistence.GormRoomRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Room{}, &domain.DrawingCommand{}))
	return gormpersistence.NewGormRoomRepository(db), db
}

func setLastActivity(t *testing.T, db *gorm.DB, roomID string, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&domain.Room{}).Where("room_id = ?", roomID).
		Update("last_activity", at).Error)
}

func TestCreateIfAbsentCreatesOnce(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	room, err := repo.CreateIfAbsent(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, "room1", room.RoomID)
	assert.Equal(t, uint(0), room.ActiveUsers)

	_, err = repo.CreateIfAbsent(ctx, "room1")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&domain.Room{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateIfAbsentTouchesExistingRoom(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateIfAbsent(ctx, "room1")
	require.NoError(t, err)
	stale := time.Now().UTC().Add(-48 * time.Hour)
	setLastActivity(t, db, "room1", stale)

	room, err := repo.CreateIfAbsent(ctx, "room1")
	require.NoError(t, err)
	assert.True(t, room.LastActivity.After(stale.Add(time.Hour)),
		"joining an existing room must refresh LastActivity")
}

func TestRecordJoinUpsertsAndIncrements(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	// First join creates the room record.
	require.NoError(t, repo.RecordJoin(ctx, "room1"))
	require.NoError(t, repo.RecordJoin(ctx, "room1"))

	room, err := repo.FindByID(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, uint(2), room.ActiveUsers)
}

func TestRecordLeaveFloorsAtZero(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.RecordJoin(ctx, "room1"))
	require.NoError(t, repo.RecordLeave(ctx, "room1"))
	require.NoError(t, repo.RecordLeave(ctx, "room1"))
	require.NoError(t, repo.RecordLeave(ctx, "room1"))

	room, err := repo.FindByID(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, uint(0), room.ActiveUsers, "duplicate leaves must never drive the counter negative")
}

func TestFindByIDUnknownRoom(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestAppendAndClearHistory(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateIfAbsent(ctx, "room1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		cmd := domain.DrawingCommand{RoomID: "room1", Timestamp: time.Now().UTC()}
		require.NoError(t, cmd.SetStroke(domain.StrokePayload{
			Points: []domain.Point{{X: float64(i), Y: float64(i)}},
			Color:  "#000",
			Width:  2,
		}))
		require.NoError(t, repo.AppendCommand(ctx, cmd))
	}

	history, err := repo.History(ctx, "room1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	first, err := history[0].ParseStroke()
	require.NoError(t, err)
	assert.Equal(t, []domain.Point{{X: 0, Y: 0}}, first.Points, "history replays in insertion order")

	require.NoError(t, repo.ClearHistory(ctx, "room1"))
	history, err = repo.History(ctx, "room1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// The room record itself survives a clear.
	_, err = repo.FindByID(ctx, "room1")
	require.NoError(t, err)
}

func TestDeleteStaleRemovesOnlyIdleStaleRooms(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	stale := time.Now().UTC().Add(-48 * time.Hour)
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	// Idle and stale: reclaimed, history included.
	_, err := repo.CreateIfAbsent(ctx, "idle-stale")
	require.NoError(t, err)
	cmd := domain.DrawingCommand{RoomID: "idle-stale", Timestamp: stale}
	require.NoError(t, cmd.SetStroke(domain.StrokePayload{Points: []domain.Point{{X: 1, Y: 1}}, Color: "#000", Width: 2}))
	require.NoError(t, repo.AppendCommand(ctx, cmd))
	setLastActivity(t, db, "idle-stale", stale)

	// Occupied and stale: kept regardless of age.
	require.NoError(t, repo.RecordJoin(ctx, "occupied-stale"))
	setLastActivity(t, db, "occupied-stale", stale)

	// Idle but fresh: kept.
	_, err = repo.CreateIfAbsent(ctx, "idle-fresh")
	require.NoError(t, err)

	removed, err := repo.DeleteStale(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.FindByID(ctx, "idle-stale")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
	var orphaned int64
	require.NoError(t, db.Model(&domain.DrawingCommand{}).Where("room_id = ?", "idle-stale").Count(&orphaned).Error)
	assert.Zero(t, orphaned, "a reclaimed room leaves no history rows behind")

	_, err = repo.FindByID(ctx, "occupied-stale")
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, "idle-fresh")
	require.NoError(t, err)

	// Nothing left to reclaim.
	removed, err = repo.DeleteStale(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
