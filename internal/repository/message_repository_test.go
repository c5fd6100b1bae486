package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/testutils"
)

func TestMessageRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("PendingInEnqueueOrder", func(t *testing.T) {
		repo := NewMessageRepository(testutils.NewTestDB(t))
		base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		for i, recipient := range []string{"u1", "u2", "u3"} {
			_, err := repo.Enqueue(ctx, &models.QueuedMessage{
				RecipientID: recipient,
				Payload:     models.MessagePayload{Text: "hi"},
				Source:      models.MessageSourceDM,
				CreatedAt:   base.Add(time.Duration(i) * time.Second),
			})
			require.NoError(t, err)
		}

		pending, err := repo.ListPending(ctx, 2)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "u1", pending[0].RecipientID)
		assert.Equal(t, "u2", pending[1].RecipientID)
		assert.Equal(t, models.MessageTypeText, pending[0].MessageType)
		assert.Equal(t, "hi", pending[0].Payload.Text)
	})

	t.Run("TerminalUpdatesApplyOnce", func(t *testing.T) {
		repo := NewMessageRepository(testutils.NewTestDB(t))

		id, err := repo.Enqueue(ctx, &models.QueuedMessage{
			RecipientID:     "c1",
			Payload:         models.MessagePayload{Text: "hook"},
			Source:          models.MessageSourceComment,
			OriginCommentID: testutils.StrPtr("c1"),
		})
		require.NoError(t, err)

		ok, err := repo.MarkSent(ctx, id, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.MarkFailed(ctx, id, "late failure")
		require.NoError(t, err)
		assert.False(t, ok)

		sent, err := repo.List(ctx, models.MessageStatusSent, 10)
		require.NoError(t, err)
		require.Len(t, sent, 1)
		assert.NotNil(t, sent[0].ExecutedAt)
		assert.Equal(t, "hook", sent[0].Payload.Text)

		pending, err := repo.ListPending(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("FailureReplacesPayload", func(t *testing.T) {
		repo := NewMessageRepository(testutils.NewTestDB(t))

		id, err := repo.Enqueue(ctx, &models.QueuedMessage{RecipientID: "u1", Payload: models.MessagePayload{Text: "hi"}, Source: models.MessageSourceDM})
		require.NoError(t, err)

		ok, err := repo.MarkFailed(ctx, id, "(#10) blocked")
		require.NoError(t, err)
		assert.True(t, ok)

		failed, err := repo.List(ctx, models.MessageStatusFailed, 10)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, "(#10) blocked", failed[0].Payload.Error)
		assert.Empty(t, failed[0].Payload.Text)
		assert.Nil(t, failed[0].ExecutedAt)
	})

	t.Run("ExistsForCommentAndCounts", func(t *testing.T) {
		repo := NewMessageRepository(testutils.NewTestDB(t))

		exists, err := repo.ExistsForComment(ctx, "c9")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = repo.Enqueue(ctx, &models.QueuedMessage{RecipientID: "c9", Source: models.MessageSourceComment, OriginCommentID: testutils.StrPtr("c9")})
		require.NoError(t, err)

		exists, err = repo.ExistsForComment(ctx, "c9")
		require.NoError(t, err)
		assert.True(t, exists)

		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, counts[models.MessageStatusPending])
		assert.Equal(t, 0, counts[models.MessageStatusSent])
		assert.Equal(t, 0, counts[models.MessageStatusFailed])
	})
}
