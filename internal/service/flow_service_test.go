package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/repository"
	"github.com/maheshrc27/dmflow/internal/testutils"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

func TestFlowService(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveAppliesDefaults", func(t *testing.T) {
		svc := NewFlowService(repository.NewFlowRepository(testutils.NewTestDB(t)))

		flow, err := svc.Save(ctx, &transfer.FlowInput{Action: transfer.ActionInput{DMText: "legacy hi"}})
		require.NoError(t, err)
		assert.NotEmpty(t, flow.ID)
		assert.Equal(t, "Untitled Automation", flow.Name)
		assert.Equal(t, models.TriggerComment, flow.TriggerType)
		assert.Nil(t, flow.TriggerKeyword)
		assert.True(t, flow.IsActive)
		assert.Equal(t, models.SimpleAction{ReplyText: "legacy hi"}, flow.Action)
	})

	t.Run("SaveHookFlowKeepsToggleState", func(t *testing.T) {
		svc := NewFlowService(repository.NewFlowRepository(testutils.NewTestDB(t)))

		in := &transfer.FlowInput{
			ID:             "guide",
			Name:           "Guide",
			TriggerKeyword: " GUIDE ",
			Action: transfer.ActionInput{
				HookText:            "Follow and reply",
				VerificationKeyword: "DONE",
				IsFollowGated:       true,
				RewardText:          "Here",
			},
		}
		flow, err := svc.Save(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "GUIDE", flow.Keyword())
		assert.Equal(t, models.ActionHookVerifyReward, flow.Action.Kind())

		require.NoError(t, svc.Toggle(ctx, "guide"))
		in.Name = "Guide v2"
		flow, err = svc.Save(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "Guide v2", flow.Name)
		assert.False(t, flow.IsActive)
	})

	t.Run("EditKeepsAttachedMedia", func(t *testing.T) {
		fr := repository.NewFlowRepository(testutils.NewTestDB(t))
		svc := NewFlowService(fr)

		in := &transfer.FlowInput{ID: "launch", Name: "Launch", Action: transfer.ActionInput{ReplyText: "link"}}
		_, err := svc.Save(ctx, in)
		require.NoError(t, err)

		ok, err := fr.AttachMedia(ctx, "launch", "media-123")
		require.NoError(t, err)
		require.True(t, ok)

		in.Name = "Launch v2"
		flow, err := svc.Save(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "Launch v2", flow.Name)
		assert.Equal(t, "media-123", flow.MediaID())

		in.AttachedMediaID = "media-456"
		flow, err = svc.Save(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "media-456", flow.MediaID())
	})

	t.Run("RejectsUnknownTrigger", func(t *testing.T) {
		svc := NewFlowService(repository.NewFlowRepository(testutils.NewTestDB(t)))
		_, err := svc.Save(ctx, &transfer.FlowInput{TriggerType: "mention"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("MissingFlow", func(t *testing.T) {
		svc := NewFlowService(repository.NewFlowRepository(testutils.NewTestDB(t)))
		assert.ErrorIs(t, svc.Toggle(ctx, "nope"), repository.ErrNotFound)
		assert.ErrorIs(t, svc.Remove(ctx, "nope"), repository.ErrNotFound)
	})
}
