package testutils

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/maheshrc27/dmflow/internal/graph"
	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

// GraphMock is a testify mock of graph.API.
type GraphMock struct {
	mock.Mock
}

var _ graph.API = (*GraphMock)(nil)

func (m *GraphMock) ListRecentComments(ctx context.Context, creds graph.Credentials) ([]models.CommentEvent, error) {
	args := m.Called(ctx, creds)
	events, _ := args.Get(0).([]models.CommentEvent)
	return events, args.Error(1)
}

func (m *GraphMock) ListRecentMessages(ctx context.Context, creds graph.Credentials) ([]models.InboxMessage, error) {
	args := m.Called(ctx, creds)
	messages, _ := args.Get(0).([]models.InboxMessage)
	return messages, args.Error(1)
}

func (m *GraphMock) SendPrivateReply(ctx context.Context, creds graph.Credentials, commentID, text string) error {
	return m.Called(ctx, creds, commentID, text).Error(0)
}

func (m *GraphMock) SendDirectMessage(ctx context.Context, creds graph.Credentials, recipientID, text string) error {
	return m.Called(ctx, creds, recipientID, text).Error(0)
}

func (m *GraphMock) IsUserFollowing(ctx context.Context, creds graph.Credentials, userID string) (bool, error) {
	args := m.Called(ctx, creds, userID)
	return args.Bool(0), args.Error(1)
}

func (m *GraphMock) ListMedia(ctx context.Context, creds graph.Credentials, limit int) ([]transfer.GraphMedia, error) {
	args := m.Called(ctx, creds, limit)
	media, _ := args.Get(0).([]transfer.GraphMedia)
	return media, args.Error(1)
}

func (m *GraphMock) CreateContainer(ctx context.Context, creds graph.Credentials, req graph.ContainerRequest) (string, error) {
	args := m.Called(ctx, creds, req)
	return args.String(0), args.Error(1)
}

func (m *GraphMock) ContainerStatus(ctx context.Context, creds graph.Credentials, containerID string) (string, error) {
	args := m.Called(ctx, creds, containerID)
	return args.String(0), args.Error(1)
}

func (m *GraphMock) PublishContainer(ctx context.Context, creds graph.Credentials, containerID string) (string, error) {
	args := m.Called(ctx, creds, containerID)
	return args.String(0), args.Error(1)
}
