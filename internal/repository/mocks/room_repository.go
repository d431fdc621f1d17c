package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"collaborative-whiteboard/internal/domain"
)

// RoomRepository is a testify mock of repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	var room *domain.Room
	if args.Get(0) != nil {
		room = args.Get(0).(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepository) CreateIfAbsent(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	var room *domain.Room
	if args.Get(0) != nil {
		room = args.Get(0).(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepository) RecordJoin(ctx context.Context, roomID string) error {
	return m.Called(ctx, roomID).Error(0)
}

func (m *RoomRepository) RecordLeave(ctx context.Context, roomID string) error {
	return m.Called(ctx, roomID).Error(0)
}

func (m *RoomRepository) TouchActivity(ctx context.Context, roomID string) error {
	return m.Called(ctx, roomID).Error(0)
}

func (m *RoomRepository) History(ctx context.Context, roomID string) ([]domain.DrawingCommand, error) {
	args := m.Called(ctx, roomID)
	var cmds []domain.DrawingCommand
	if args.Get(0) != nil {
		cmds = args.Get(0).([]domain.DrawingCommand)
	}
	return cmds, args.Error(1)
}

func (m *RoomRepository) AppendCommand(ctx context.Context, cmd domain.DrawingCommand) error {
	return m.Called(ctx, cmd).Error(0)
}

func (m *RoomRepository) ClearHistory(ctx context.Context, roomID string) error {
	return m.Called(ctx, roomID).Error(0)
}

func (m *RoomRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
