package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/dmflow/internal/graph"
	"github.com/maheshrc27/dmflow/internal/repository"
	"github.com/maheshrc27/dmflow/internal/testutils"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeCredentials struct {
	pages map[string][]graph.LinkedAccount
	err   error
}

func (f *fakeCredentials) ExchangeCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", errors.New("authorization code is empty")
	}
	return "token-for-" + code, nil
}

func (f *fakeCredentials) ExtendToken(ctx context.Context, token string) (string, error) {
	return token + "-extended", nil
}

func (f *fakeCredentials) FetchLinkedAccounts(ctx context.Context, token string) ([]graph.LinkedAccount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[token], nil
}

func newAccountService(t *testing.T, creds *fakeCredentials, api graph.API) (AccountService, *sqlx.DB) {
	t.Helper()
	db := testutils.NewTestDB(t)
	svc := NewAccountService(db, repository.NewAccountRepository(db), repository.NewConfigRepository(db), creds, api, testSecret)
	return svc, db
}

func TestAccountService(t *testing.T) {
	ctx := context.Background()

	t.Run("ConnectTokenActivatesAndEncrypts", func(t *testing.T) {
		creds := &fakeCredentials{pages: map[string][]graph.LinkedAccount{
			"tok": {{PageID: "p0"}, {PageID: "p1", BusinessID: "ig_1", Name: "Shop"}},
		}}
		svc, db := newAccountService(t, creds, nil)

		acc, err := svc.ConnectToken(ctx, " tok ")
		require.NoError(t, err)
		assert.Equal(t, "ig_1", acc.BusinessID)
		assert.Equal(t, "p1", acc.PageID)

		var stored string
		require.NoError(t, db.GetContext(ctx, &stored, `SELECT access_token FROM accounts WHERE id = ?`, acc.ID))
		assert.NotEqual(t, "tok", stored)

		active, err := svc.Active(ctx)
		require.NoError(t, err)
		assert.Equal(t, acc.ID, active.ID)
		assert.Equal(t, "tok", active.AccessToken)
	})

	t.Run("ConnectTokenWithoutBusinessAccountFails", func(t *testing.T) {
		creds := &fakeCredentials{pages: map[string][]graph.LinkedAccount{"tok": {{PageID: "p0"}}}}
		svc, _ := newAccountService(t, creds, nil)

		_, err := svc.ConnectToken(ctx, "tok")
		assert.ErrorIs(t, err, ErrNoLinkedAccount)

		_, err = svc.ConnectToken(ctx, "  ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("ConnectCodeFallsBackToFirstPage", func(t *testing.T) {
		creds := &fakeCredentials{pages: map[string][]graph.LinkedAccount{"token-for-abc": {{PageID: "p0", Name: "Page"}}}}
		api := &testutils.GraphMock{}
		svc, _ := newAccountService(t, creds, api)

		acc, err := svc.ConnectCode(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "fallback_p0", acc.BusinessID)
		assert.True(t, acc.IsFallback())

		media, err := svc.Media(ctx)
		require.NoError(t, err)
		assert.Empty(t, media)
		api.AssertNotCalled(t, "ListMedia", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RemoveReassignsActive", func(t *testing.T) {
		creds := &fakeCredentials{pages: map[string][]graph.LinkedAccount{
			"a": {{PageID: "pa", BusinessID: "ig_a"}},
			"b": {{PageID: "pb", BusinessID: "ig_b"}},
		}}
		svc, _ := newAccountService(t, creds, nil)

		first, err := svc.ConnectToken(ctx, "a")
		require.NoError(t, err)
		second, err := svc.ConnectToken(ctx, "b")
		require.NoError(t, err)

		_, activeID, err := svc.List(ctx)
		require.NoError(t, err)
		require.NotNil(t, activeID)
		assert.Equal(t, second.ID, *activeID)

		require.NoError(t, svc.Remove(ctx, second.ID))
		_, activeID, err = svc.List(ctx)
		require.NoError(t, err)
		require.NotNil(t, activeID)
		assert.Equal(t, first.ID, *activeID)

		require.NoError(t, svc.Remove(ctx, first.ID))
		_, activeID, err = svc.List(ctx)
		require.NoError(t, err)
		assert.Nil(t, activeID)

		_, err = svc.Active(ctx)
		assert.ErrorIs(t, err, ErrNoActiveAccount)

		assert.ErrorIs(t, svc.Remove(ctx, first.ID), repository.ErrNotFound)
	})

	t.Run("SwitchUnknownAccount", func(t *testing.T) {
		svc, _ := newAccountService(t, &fakeCredentials{}, nil)
		assert.ErrorIs(t, svc.Switch(ctx, 99), repository.ErrNotFound)
	})

	t.Run("VerifyRefreshesProfile", func(t *testing.T) {
		creds := &fakeCredentials{pages: map[string][]graph.LinkedAccount{
			"tok": {{PageID: "p1", BusinessID: "ig_1", Name: "Shop"}},
		}}
		svc, _ := newAccountService(t, creds, nil)
		_, err := svc.ConnectToken(ctx, "tok")
		require.NoError(t, err)

		creds.pages["tok"] = []graph.LinkedAccount{{PageID: "p1", BusinessID: "ig_1", Name: "Shop Renamed", PictureURL: "https://pic"}}
		acc, err := svc.Verify(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Shop Renamed", acc.DisplayName)

		accounts, _, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.Equal(t, "https://pic", accounts[0].AvatarURL)
	})

	t.Run("RefreshTokenStoresExtendedToken", func(t *testing.T) {
		creds := &fakeCredentials{pages: map[string][]graph.LinkedAccount{"tok": {{PageID: "p1", BusinessID: "ig_1"}}}}
		svc, _ := newAccountService(t, creds, nil)
		acc, err := svc.ConnectToken(ctx, "tok")
		require.NoError(t, err)

		require.NoError(t, svc.RefreshToken(ctx, acc.ID))

		got, err := svc.Get(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "tok-extended", got.AccessToken)

		assert.ErrorIs(t, svc.RefreshToken(ctx, 999), repository.ErrNotFound)
	})

	t.Run("MediaUsesActiveCredentials", func(t *testing.T) {
		creds := &fakeCredentials{pages: map[string][]graph.LinkedAccount{"tok": {{PageID: "p1", BusinessID: "ig_1"}}}}
		api := &testutils.GraphMock{}
		svc, _ := newAccountService(t, creds, api)
		_, err := svc.ConnectToken(ctx, "tok")
		require.NoError(t, err)

		want := []transfer.GraphMedia{{ID: "m1"}}
		api.On("ListMedia", mock.Anything, graph.Credentials{Token: "tok", BusinessID: "ig_1", PageID: "p1"}, 24).Return(want, nil)

		media, err := svc.Media(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, media)
		api.AssertExpectations(t)
	})
}
