package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/dmflow/internal/models"
)

// AccountSource resolves the account the jobs run for.
type AccountSource interface {
	Active(ctx context.Context) (*models.Account, error)
	Get(ctx context.Context, id int64) (*models.Account, error)
}

type SettingsSource interface {
	Settings(ctx context.Context) (models.Settings, error)
}

// activeAccount returns the active account when it can talk to the Graph API.
// Anything else, including a lookup failure, is reported as nil.
func activeAccount(ctx context.Context, accounts AccountSource, job string) *models.Account {
	account, err := accounts.Active(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Debug("no active account, skipping", "job", job, "reason", err)
		}
		return nil
	}
	if !account.HasCredentials() {
		slog.Debug("active account has no credentials, skipping", "job", job, "account_id", account.ID)
		return nil
	}
	return account
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
