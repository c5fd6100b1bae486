package job

import (
	"context"
	"log/slog"
	"sync"

	"github.com/maheshrc27/dmflow/internal/models"
)

// TokenRefresher lists the stored accounts and renews their long-lived
// tokens.
type TokenRefresher interface {
	List(ctx context.Context) ([]*models.Account, *int64, error)
	RefreshToken(ctx context.Context, id int64) error
}

type TokenRefreshJob struct {
	accounts TokenRefresher
}

func NewTokenRefreshJob(accounts TokenRefresher) *TokenRefreshJob {
	return &TokenRefreshJob{
		accounts: accounts,
	}
}

func (c *TokenRefreshJob) RefreshTokens(ctx context.Context) {
	accounts, _, err := c.accounts.List(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		if acc.AccessToken == "" {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.Account) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.accounts.RefreshToken(ctx, acc.ID); err != nil {
				slog.Info("Unable to refresh token", "account_id", acc.ID, "error", err)
			}
		}(acc)
	}

	wg.Wait()
}
