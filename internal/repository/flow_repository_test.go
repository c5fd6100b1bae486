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

func newFlow(id string, createdAt time.Time) *models.Flow {
	return &models.Flow{
		ID:          id,
		Name:        "flow " + id,
		IsActive:    true,
		TriggerType: models.TriggerComment,
		Action:      models.SimpleAction{ReplyText: "hi from " + id},
		CreatedAt:   createdAt,
	}
}

func TestFlowRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTripsHookAction", func(t *testing.T) {
		repo := NewFlowRepository(testutils.NewTestDB(t))

		flow := newFlow("f1", time.Time{})
		flow.TriggerKeyword = testutils.StrPtr("GUIDE")
		flow.Action = models.HookVerifyRewardAction{
			HookText:            "Check your DMs",
			VerificationKeyword: "DONE",
			IsFollowGated:       true,
			GateText:            "Follow first",
			RewardText:          "Here you go",
			RewardLink:          "https://example.com/guide",
		}
		require.NoError(t, repo.Save(ctx, flow))
		assert.False(t, flow.CreatedAt.IsZero())

		got, err := repo.GetByID(ctx, "f1")
		require.NoError(t, err)
		stored := got.MustGet()
		assert.Equal(t, "GUIDE", stored.Keyword())
		assert.Equal(t, flow.Action, stored.Action)
	})

	t.Run("OrdersNewestFirst", func(t *testing.T) {
		repo := NewFlowRepository(testutils.NewTestDB(t))
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		require.NoError(t, repo.Save(ctx, newFlow("old", base)))
		require.NoError(t, repo.Save(ctx, newFlow("new", base.Add(time.Hour))))

		flows, err := repo.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, flows, 2)
		assert.Equal(t, "new", flows[0].ID)
		assert.Equal(t, "old", flows[1].ID)
	})

	t.Run("ToggleExcludesFromActive", func(t *testing.T) {
		repo := NewFlowRepository(testutils.NewTestDB(t))
		require.NoError(t, repo.Save(ctx, newFlow("f1", time.Time{})))

		ok, err := repo.Toggle(ctx, "f1")
		require.NoError(t, err)
		assert.True(t, ok)

		active, err := repo.ListActive(ctx)
		require.NoError(t, err)
		assert.Empty(t, active)

		n, err := repo.CountActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		ok, err = repo.Toggle(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("AttachMediaReportsMissingFlow", func(t *testing.T) {
		repo := NewFlowRepository(testutils.NewTestDB(t))
		require.NoError(t, repo.Save(ctx, newFlow("f1", time.Time{})))

		ok, err := repo.AttachMedia(ctx, "f1", "media_9")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, "media_9", got.MustGet().MediaID())

		ok, err = repo.AttachMedia(ctx, "gone", "media_9")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ReadsLegacyDMText", func(t *testing.T) {
		db := testutils.NewTestDB(t)
		repo := NewFlowRepository(db)

		_, err := db.ExecContext(ctx, `INSERT INTO flows (id, name, is_active, trigger_type, action_json) VALUES ('legacy', 'Old', TRUE, 'comment', '{"dm_text":"hello"}')`)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, "legacy")
		require.NoError(t, err)
		assert.Equal(t, models.SimpleAction{ReplyText: "hello"}, got.MustGet().Action)
	})
}
