package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/dmflow/internal/graph"
	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/repository"
	"github.com/maheshrc27/dmflow/internal/testutils"
)

var testCreds = graph.Credentials{Token: "tok", BusinessID: "ig_1", PageID: "page_1"}

type fakeAccounts struct {
	account *models.Account
	err     error
}

func (f *fakeAccounts) Active(ctx context.Context) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.account, nil
}

func (f *fakeAccounts) Get(ctx context.Context, id int64) (*models.Account, error) {
	if f.account == nil || f.account.ID != id {
		return nil, repository.ErrNotFound
	}
	return f.account, nil
}

type fakeSettings struct {
	settings models.Settings
}

func (f *fakeSettings) Settings(ctx context.Context) (models.Settings, error) {
	return f.settings, nil
}

func testAccount() *models.Account {
	return &models.Account{
		ID:          1,
		BusinessID:  testCreds.BusinessID,
		PageID:      testCreds.PageID,
		AccessToken: testCreds.Token,
		DisplayName: "Shop",
	}
}

type fixture struct {
	db       *sqlx.DB
	accounts *fakeAccounts
	settings *fakeSettings
	flows    repository.FlowRepository
	messages repository.MessageRepository
	posts    repository.ScheduledPostRepository
	api      *testutils.GraphMock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutils.NewTestDB(t)
	return &fixture{
		db:       db,
		accounts: &fakeAccounts{account: testAccount()},
		settings: &fakeSettings{},
		flows:    repository.NewFlowRepository(db),
		messages: repository.NewMessageRepository(db),
		posts:    repository.NewScheduledPostRepository(db),
		api:      new(testutils.GraphMock),
	}
}

func (f *fixture) dispatcher() *DispatchJob {
	return NewDispatchJob(f.accounts, f.settings, f.messages, f.api, 0)
}

func (f *fixture) poller() *PollerJob {
	return NewPollerJob(f.accounts, f.settings, f.flows, f.messages, f.api, f.dispatcher())
}

func (f *fixture) publisher(queue Enqueuer) *PublishJob {
	return NewPublishJob(f.accounts, f.posts, f.flows, f.api, queue, PublishOptions{PollTries: 3})
}

func (f *fixture) saveFlow(t *testing.T, flow *models.Flow) {
	t.Helper()
	require.NoError(t, f.flows.Save(context.Background(), flow))
}

func (f *fixture) messagesWith(t *testing.T, status models.MessageStatus) []*models.QueuedMessage {
	t.Helper()
	msgs, err := f.messages.List(context.Background(), status, 100)
	require.NoError(t, err)
	return msgs
}

func (f *fixture) post(t *testing.T, id int64) *models.ScheduledPost {
	t.Helper()
	found, err := f.posts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return found.MustGet()
}

func TestWaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := wait(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)

	require.NoError(t, wait(context.Background(), 0))
}

func TestActiveAccount(t *testing.T) {
	ctx := context.Background()

	require.Nil(t, activeAccount(ctx, &fakeAccounts{err: errors.New("no active account")}, "test"))
	require.Nil(t, activeAccount(ctx, &fakeAccounts{account: &models.Account{ID: 1, BusinessID: "ig_1"}}, "test"))
	require.NotNil(t, activeAccount(ctx, &fakeAccounts{account: testAccount()}, "test"))
}
