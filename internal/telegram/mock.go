package telegram

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of Client for service tests.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetRecentItems(ctx context.Context, channelID int64, limit int) ([]Item, error) {
	args := m.Called(ctx, channelID, limit)
	items, _ := args.Get(0).([]Item)
	return items, args.Error(1)
}

func (m *MockClient) SendItem(ctx context.Context, channelID int64, payload io.Reader, name string, caption string) (int64, error) {
	args := m.Called(ctx, channelID, payload, name, caption)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClient) DownloadItem(ctx context.Context, channelID int64, messageID int64) (*Content, error) {
	args := m.Called(ctx, channelID, messageID)
	content, _ := args.Get(0).(*Content)
	return content, args.Error(1)
}

func (m *MockClient) JoinChannel(ctx context.Context, channelID int64) error {
	return m.Called(ctx, channelID).Error(0)
}

func (m *MockClient) LeaveChannel(ctx context.Context, channelID int64) error {
	return m.Called(ctx, channelID).Error(0)
}
