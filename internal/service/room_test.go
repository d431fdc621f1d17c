package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/repository"
	"collaborative-whiteboard/internal/repository/mocks"
	"collaborative-whiteboard/internal/service"
)

func TestJoinOrCreateValidatesRoomID(t *testing.T) {
	repo := new(mocks.RoomRepository)
	svc := service.NewRoomService(repo)

	_, err := svc.JoinOrCreate(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrInvalidRoomID)

	_, err = svc.JoinOrCreate(context.Background(), strings.Repeat("x", 65))
	assert.ErrorIs(t, err, service.ErrInvalidRoomID)

	repo.AssertNotCalled(t, "CreateIfAbsent")
}

func TestJoinOrCreateReturnsRoom(t *testing.T) {
	repo := new(mocks.RoomRepository)
	svc := service.NewRoomService(repo)
	want := &domain.Room{RoomID: "room1"}
	repo.On("CreateIfAbsent", mock.Anything, "room1").Return(want, nil)

	room, err := svc.JoinOrCreate(context.Background(), "room1")
	require.NoError(t, err)
	assert.Equal(t, want, room)
	repo.AssertExpectations(t)
}

func TestJoinOrCreateMapsRepositoryFailure(t *testing.T) {
	repo := new(mocks.RoomRepository)
	svc := service.NewRoomService(repo)
	repo.On("CreateIfAbsent", mock.Anything, "room1").Return(nil, errors.New("db down"))

	_, err := svc.JoinOrCreate(context.Background(), "room1")
	assert.ErrorIs(t, err, service.ErrInternalServer)
}

func TestGetRoomAttachesHistory(t *testing.T) {
	repo := new(mocks.RoomRepository)
	svc := service.NewRoomService(repo)

	cmd := domain.DrawingCommand{ID: 1, RoomID: "room1", Kind: domain.CommandStroke}
	repo.On("FindByID", mock.Anything, "room1").Return(&domain.Room{RoomID: "room1"}, nil)
	repo.On("History", mock.Anything, "room1").Return([]domain.DrawingCommand{cmd}, nil)

	room, err := svc.GetRoom(context.Background(), "room1")
	require.NoError(t, err)
	require.Len(t, room.DrawingHistory, 1)
	assert.Equal(t, cmd, room.DrawingHistory[0])
}

func TestGetRoomMapsNotFound(t *testing.T) {
	repo := new(mocks.RoomRepository)
	svc := service.NewRoomService(repo)
	repo.On("FindByID", mock.Anything, "missing").Return(nil, repository.ErrRoomNotFound)

	_, err := svc.GetRoom(context.Background(), "missing")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

func TestPresenceUpdatesSwallowRepositoryErrors(t *testing.T) {
	repo := new(mocks.RoomRepository)
	svc := service.NewRoomService(repo)
	repo.On("RecordJoin", mock.Anything, "room1").Return(errors.New("db down"))
	repo.On("RecordLeave", mock.Anything, "room1").Return(errors.New("db down"))
	repo.On("TouchActivity", mock.Anything, "room1").Return(errors.New("db down"))

	// Best-effort contract: none of these may panic or surface the error.
	svc.RecordJoin(context.Background(), "room1")
	svc.RecordLeave(context.Background(), "room1")
	svc.TouchActivity(context.Background(), "room1")
	repo.AssertExpectations(t)
}

func TestHistoryDegradesToEmptyOnFailure(t *testing.T) {
	repo := new(mocks.RoomRepository)
	svc := service.NewRoomService(repo)
	repo.On("History", mock.Anything, "room1").Return(nil, errors.New("db down"))

	assert.Empty(t, svc.History(context.Background(), "room1"))
}

func TestAppendStrokeBuildsStrokeCommand(t *testing.T) {
	repo := new(mocks.RoomRepository)
	svc := service.NewRoomService(repo)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stroke := domain.StrokePayload{
		Points: []domain.Point{{X: 1, Y: 2}, {X: 3, Y: 4}},
		Color:  "#00f",
		Width:  5,
	}

	repo.On("AppendCommand", mock.Anything, mock.MatchedBy(func(cmd domain.DrawingCommand) bool {
		if cmd.RoomID != "room1" || cmd.Kind != domain.CommandStroke || !cmd.Timestamp.Equal(at) {
			return false
		}
		got, err := cmd.ParseStroke()
		return err == nil && len(got.Points) == 2 && got.Color == "#00f" && got.Width == 5
	})).Return(nil)

	require.NoError(t, svc.AppendStroke(context.Background(), "room1", stroke, at))
	repo.AssertExpectations(t)
}

func TestSweepIdleRoomsUsesIdleCutoff(t *testing.T) {
	repo := new(mocks.RoomRepository)
	svc := service.NewRoomService(repo)

	maxIdle := 24 * time.Hour
	repo.On("DeleteStale", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		want := time.Now().UTC().Add(-maxIdle)
		diff := cutoff.Sub(want)
		return diff > -time.Minute && diff < time.Minute
	})).Return(int64(3), nil)

	removed, err := svc.SweepIdleRooms(context.Background(), maxIdle)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestSweepIdleRoomsPropagatesError(t *testing.T) {
	repo := new(mocks.RoomRepository)
	svc := service.NewRoomService(repo)
	repo.On("DeleteStale", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	_, err := svc.SweepIdleRooms(context.Background(), 24*time.Hour)
	assert.Error(t, err)
}
