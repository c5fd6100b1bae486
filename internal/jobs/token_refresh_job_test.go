package job

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maheshrc27/dmflow/internal/models"
)

type fakeRefresher struct {
	mu        sync.Mutex
	accounts  []*models.Account
	refreshed []int64
}

func (f *fakeRefresher) List(ctx context.Context) ([]*models.Account, *int64, error) {
	return f.accounts, nil, nil
}

func (f *fakeRefresher) RefreshToken(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, id)
	if id == 2 {
		return errors.New("token expired")
	}
	return nil
}

func TestTokenRefreshJob(t *testing.T) {
	refresher := &fakeRefresher{accounts: []*models.Account{
		{ID: 1, AccessToken: "a"},
		{ID: 2, AccessToken: "b"},
		{ID: 3},
	}}

	NewTokenRefreshJob(refresher).RefreshTokens(context.Background())

	assert.ElementsMatch(t, []int64{1, 2}, refresher.refreshed)
}
