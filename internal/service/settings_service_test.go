package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/dmflow/internal/repository"
	"github.com/maheshrc27/dmflow/internal/testutils"
)

func TestSettingsService(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(repository.NewConfigRepository(testutils.NewTestDB(t)))

	require.NoError(t, svc.Set(ctx, "theme", "dark"))
	require.NoError(t, svc.Set(ctx, "reply_delay_seconds", 3))
	require.NoError(t, svc.Set(ctx, "blacklist", []string{"@spammer"}))
	require.NoError(t, svc.Set(ctx, "automations_paused", true))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", all["theme"])

	settings, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, settings.ReplyDelaySeconds)
	assert.True(t, settings.AutomationsPaused)
	assert.True(t, settings.IsBlacklisted("SPAMMER"))

	assert.ErrorIs(t, svc.Set(ctx, "reply_delay_seconds", "soon"), ErrInvalidInput)
	assert.ErrorIs(t, svc.Set(ctx, " ", 1), ErrInvalidInput)

	settings, err = svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, settings.ReplyDelaySeconds)
}
