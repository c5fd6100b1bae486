package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/dmflow/internal/graph"
	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/testutils"
)

type fakeEnqueuer struct {
	mu     sync.Mutex
	posts  []int64
	tokens []string
	err    error
}

func (q *fakeEnqueuer) EnqueuePublish(ctx context.Context, postID, accountID int64, claimToken string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.posts = append(q.posts, postID)
	q.tokens = append(q.tokens, claimToken)
	return nil
}

func createPost(t *testing.T, f *fixture, mediaType models.MediaType, refs ...string) int64 {
	t.Helper()
	id, err := f.posts.Create(context.Background(), &models.ScheduledPost{
		FileRefs:  refs,
		Caption:   "launch day",
		MediaType: mediaType,
		PublishAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	return id
}

func TestPublishJob(t *testing.T) {
	ctx := context.Background()

	t.Run("LocalPathFailsWithoutRemoteCall", func(t *testing.T) {
		f := newFixture(t)
		id := createPost(t, f, models.MediaTypeReel, "/home/me/videos/launch.mp4")

		f.publisher(nil).Run(ctx)

		post := f.post(t, id)
		assert.Equal(t, models.PostStatusFailed, post.Status)
		require.NotNil(t, post.ErrorMessage)
		assert.Contains(t, *post.ErrorMessage, graph.ErrMediaNotPublic.Error())
		f.api.AssertNotCalled(t, "CreateContainer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ReelPublishesAndAttachesFlow", func(t *testing.T) {
		f := newFixture(t)
		f.saveFlow(t, &models.Flow{
			ID:          "launch",
			IsActive:    true,
			TriggerType: models.TriggerComment,
			Action:      models.SimpleAction{ReplyText: "thanks"},
		})

		id, err := f.posts.Create(ctx, &models.ScheduledPost{
			FileRefs:     models.FileRefs{"https://cdn.example.com/launch.mp4"},
			Caption:      "launch day",
			MediaType:    models.MediaTypeReel,
			PublishAt:    time.Now().Add(-time.Minute),
			LinkedFlowID: testutils.StrPtr("launch"),
		})
		require.NoError(t, err)

		f.api.On("CreateContainer", mock.Anything, testCreds, graph.ContainerRequest{
			MediaType: "REELS",
			VideoURL:  "https://cdn.example.com/launch.mp4",
			Caption:   "launch day",
		}).Return("cont_1", nil)
		f.api.On("ContainerStatus", mock.Anything, testCreds, "cont_1").Return(graph.ContainerInProgress, nil).Once()
		f.api.On("ContainerStatus", mock.Anything, testCreds, "cont_1").Return(graph.ContainerFinished, nil).Once()
		f.api.On("PublishContainer", mock.Anything, testCreds, "cont_1").Return("media_1", nil)

		f.publisher(nil).Run(ctx)

		post := f.post(t, id)
		assert.Equal(t, models.PostStatusPublished, post.Status)
		require.NotNil(t, post.RemoteMediaID)
		assert.Equal(t, "media_1", *post.RemoteMediaID)

		flow, err := f.flows.GetByID(ctx, "launch")
		require.NoError(t, err)
		assert.Equal(t, "media_1", flow.MustGet().MediaID())
		f.api.AssertExpectations(t)
	})

	t.Run("PollExhaustionPublishesAnyway", func(t *testing.T) {
		f := newFixture(t)
		id := createPost(t, f, models.MediaTypeImage, "https://cdn.example.com/a.jpg")

		f.api.On("CreateContainer", mock.Anything, testCreds, graph.ContainerRequest{
			ImageURL: "https://cdn.example.com/a.jpg",
			Caption:  "launch day",
		}).Return("cont_1", nil)
		f.api.On("ContainerStatus", mock.Anything, testCreds, "cont_1").Return(graph.ContainerInProgress, nil)
		f.api.On("PublishContainer", mock.Anything, testCreds, "cont_1").Return("media_1", nil)

		f.publisher(nil).Run(ctx)

		assert.Equal(t, models.PostStatusPublished, f.post(t, id).Status)
		f.api.AssertNumberOfCalls(t, "ContainerStatus", 3)
	})

	t.Run("ContainerErrorFails", func(t *testing.T) {
		f := newFixture(t)
		id := createPost(t, f, models.MediaTypeImage, "https://cdn.example.com/a.jpg")

		f.api.On("CreateContainer", mock.Anything, testCreds, mock.Anything).Return("cont_1", nil)
		f.api.On("ContainerStatus", mock.Anything, testCreds, "cont_1").Return(graph.ContainerError, nil)

		f.publisher(nil).Run(ctx)

		post := f.post(t, id)
		assert.Equal(t, models.PostStatusFailed, post.Status)
		assert.Contains(t, *post.ErrorMessage, graph.ContainerError)
		f.api.AssertNumberOfCalls(t, "ContainerStatus", 1)
		f.api.AssertNotCalled(t, "PublishContainer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("StatusFetchErrorFails", func(t *testing.T) {
		f := newFixture(t)
		id := createPost(t, f, models.MediaTypeImage, "https://cdn.example.com/a.jpg")

		f.api.On("CreateContainer", mock.Anything, testCreds, mock.Anything).Return("cont_1", nil)
		f.api.On("ContainerStatus", mock.Anything, testCreds, "cont_1").Return("", errors.New("container status: boom"))

		f.publisher(nil).Run(ctx)

		post := f.post(t, id)
		assert.Equal(t, models.PostStatusFailed, post.Status)
		assert.Contains(t, *post.ErrorMessage, "boom")
	})

	t.Run("CarouselCreatesChildrenFirst", func(t *testing.T) {
		f := newFixture(t)
		id := createPost(t, f, models.MediaTypeCarousel,
			"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.mp4")

		f.api.On("CreateContainer", mock.Anything, testCreds, graph.ContainerRequest{
			ImageURL: "https://cdn.example.com/1.jpg", IsCarouselItem: true,
		}).Return("child_1", nil)
		f.api.On("CreateContainer", mock.Anything, testCreds, graph.ContainerRequest{
			MediaType: "VIDEO", VideoURL: "https://cdn.example.com/2.mp4", IsCarouselItem: true,
		}).Return("child_2", nil)
		f.api.On("CreateContainer", mock.Anything, testCreds, graph.ContainerRequest{
			MediaType: "CAROUSEL", Caption: "launch day", Children: []string{"child_1", "child_2"},
		}).Return("parent", nil)
		f.api.On("ContainerStatus", mock.Anything, testCreds, "parent").Return(graph.ContainerFinished, nil)
		f.api.On("PublishContainer", mock.Anything, testCreds, "parent").Return("media_9", nil)

		f.publisher(nil).Run(ctx)

		assert.Equal(t, models.PostStatusPublished, f.post(t, id).Status)
		f.api.AssertExpectations(t)
	})

	t.Run("StoryPicksFieldByExtension", func(t *testing.T) {
		f := newFixture(t)
		id := createPost(t, f, models.MediaTypeStory, "https://cdn.example.com/s.png?sig=1")

		f.api.On("CreateContainer", mock.Anything, testCreds, graph.ContainerRequest{
			MediaType: "STORIES", ImageURL: "https://cdn.example.com/s.png?sig=1",
		}).Return("cont_s", nil)
		f.api.On("ContainerStatus", mock.Anything, testCreds, "cont_s").Return(graph.ContainerFinished, nil)
		f.api.On("PublishContainer", mock.Anything, testCreds, "cont_s").Return("media_s", nil)

		f.publisher(nil).Run(ctx)

		assert.Equal(t, models.PostStatusPublished, f.post(t, id).Status)
	})

	t.Run("FuturePostsAreLeftAlone", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.posts.Create(ctx, &models.ScheduledPost{
			FileRefs:  models.FileRefs{"https://cdn.example.com/a.jpg"},
			MediaType: models.MediaTypeImage,
			PublishAt: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		f.publisher(nil).Run(ctx)

		assert.Equal(t, models.PostStatusPending, f.post(t, id).Status)
	})

	t.Run("QueuedPostIsPublishedByWorker", func(t *testing.T) {
		f := newFixture(t)
		id := createPost(t, f, models.MediaTypeImage, "https://cdn.example.com/a.jpg")
		queue := &fakeEnqueuer{}
		job := f.publisher(queue)

		job.Run(ctx)

		assert.Equal(t, []int64{id}, queue.posts)
		require.Len(t, queue.tokens, 1)
		assert.NotEmpty(t, queue.tokens[0])
		assert.Equal(t, models.PostStatusProcessing, f.post(t, id).Status)

		// a second tick must not claim it again
		job.Run(ctx)
		assert.Len(t, queue.posts, 1)

		f.api.On("CreateContainer", mock.Anything, testCreds, mock.Anything).Return("cont_1", nil)
		f.api.On("ContainerStatus", mock.Anything, testCreds, "cont_1").Return(graph.ContainerFinished, nil)
		f.api.On("PublishContainer", mock.Anything, testCreds, "cont_1").Return("media_1", nil)

		require.NoError(t, job.PublishByID(ctx, id, testAccount().ID, queue.tokens[0]))
		assert.Equal(t, models.PostStatusPublished, f.post(t, id).Status)

		// redelivery of a finished task is a no-op
		require.NoError(t, job.PublishByID(ctx, id, testAccount().ID, queue.tokens[0]))
		f.api.AssertNumberOfCalls(t, "PublishContainer", 1)
	})

	t.Run("TaskQueuedPastStaleThresholdDoesNotPublishTwice", func(t *testing.T) {
		f := newFixture(t)
		id := createPost(t, f, models.MediaTypeImage, "https://cdn.example.com/a.jpg")
		queue := &fakeEnqueuer{}
		job := f.publisher(queue)

		job.Run(ctx)
		require.Len(t, queue.tokens, 1)

		// the first task is still queued when the sweep releases its claim
		job.now = func() time.Time { return time.Now().Add(time.Hour) }
		job.Run(ctx)
		require.Len(t, queue.tokens, 2)
		assert.Equal(t, []int64{id, id}, queue.posts)
		assert.NotEqual(t, queue.tokens[0], queue.tokens[1])

		f.api.On("CreateContainer", mock.Anything, testCreds, mock.Anything).Return("cont_1", nil)
		f.api.On("ContainerStatus", mock.Anything, testCreds, "cont_1").Return(graph.ContainerFinished, nil)
		f.api.On("PublishContainer", mock.Anything, testCreds, "cont_1").Return("media_1", nil)

		require.NoError(t, job.PublishByID(ctx, id, testAccount().ID, queue.tokens[0]))
		assert.Equal(t, models.PostStatusProcessing, f.post(t, id).Status)
		f.api.AssertNotCalled(t, "CreateContainer", mock.Anything, mock.Anything, mock.Anything)

		require.NoError(t, job.PublishByID(ctx, id, testAccount().ID, queue.tokens[1]))
		assert.Equal(t, models.PostStatusPublished, f.post(t, id).Status)

		require.NoError(t, job.PublishByID(ctx, id, testAccount().ID, queue.tokens[1]))
		f.api.AssertNumberOfCalls(t, "PublishContainer", 1)
	})

	t.Run("EnqueueErrorFallsBackInline", func(t *testing.T) {
		f := newFixture(t)
		id := createPost(t, f, models.MediaTypeReel, "relative/clip.mp4")

		f.publisher(&fakeEnqueuer{err: errors.New("redis down")}).Run(ctx)

		assert.Equal(t, models.PostStatusFailed, f.post(t, id).Status)
	})

	t.Run("RecoverStaleReleasesClaims", func(t *testing.T) {
		f := newFixture(t)
		id := createPost(t, f, models.MediaTypeImage, "https://cdn.example.com/a.jpg")
		claimed, err := f.posts.Claim(ctx, id, "claim-1")
		require.NoError(t, err)
		require.True(t, claimed)

		job := f.publisher(nil)
		job.RecoverStale(ctx)
		assert.Equal(t, models.PostStatusProcessing, f.post(t, id).Status)

		job.now = func() time.Time { return time.Now().Add(time.Hour) }
		job.RecoverStale(ctx)
		assert.Equal(t, models.PostStatusPending, f.post(t, id).Status)
	})

	t.Run("FallbackAccountDoesNotPublish", func(t *testing.T) {
		f := newFixture(t)
		f.accounts.account.BusinessID = models.FallbackBusinessPrefix + "page_1"
		id := createPost(t, f, models.MediaTypeImage, "https://cdn.example.com/a.jpg")

		f.publisher(nil).Run(ctx)

		assert.Equal(t, models.PostStatusPending, f.post(t, id).Status)
	})
}
