//go:build !production

package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/word-duel/internal/storage"
)

// MockRoomStore 房间镜像存储 mock
type MockRoomStore struct {
	mock.Mock
}

func (m *MockRoomStore) SaveRoom(ctx context.Context, data *storage.RoomData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockRoomStore) DeleteRoom(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRoomStore) SaveSession(ctx context.Context, session *storage.PlayerSessionData) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockRoomStore) DeleteSession(ctx context.Context, playerIDs ...string) error {
	args := m.Called(ctx, playerIDs)
	return args.Error(0)
}

// MockQueueStore 匹配队列镜像存储 mock
type MockQueueStore struct {
	mock.Mock
}

func (m *MockQueueStore) AddToMatchQueue(ctx context.Context, playerID string) error {
	args := m.Called(ctx, playerID)
	return args.Error(0)
}

func (m *MockQueueStore) RemoveFromMatchQueue(ctx context.Context, playerIDs ...string) error {
	args := m.Called(ctx, playerIDs)
	return args.Error(0)
}
