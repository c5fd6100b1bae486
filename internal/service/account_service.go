package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/maheshrc27/dmflow/internal/graph"
	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/repository"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

const mediaPageSize = 24

// CredentialSource resolves tokens into linked accounts.
type CredentialSource interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	ExtendToken(ctx context.Context, token string) (string, error)
	FetchLinkedAccounts(ctx context.Context, token string) ([]graph.LinkedAccount, error)
}

type AccountService interface {
	ConnectToken(ctx context.Context, token string) (*models.Account, error)
	ConnectCode(ctx context.Context, code string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, *int64, error)
	Switch(ctx context.Context, id int64) error
	Remove(ctx context.Context, id int64) error
	Active(ctx context.Context) (*models.Account, error)
	Get(ctx context.Context, id int64) (*models.Account, error)
	RefreshToken(ctx context.Context, id int64) error
	Verify(ctx context.Context) (*models.Account, error)
	Media(ctx context.Context) ([]transfer.GraphMedia, error)
}

type accountService struct {
	db     *sqlx.DB
	ar     repository.AccountRepository
	cr     repository.ConfigRepository
	creds  CredentialSource
	api    graph.API
	sealer tokenSealer
}

func NewAccountService(
	db *sqlx.DB,
	ar repository.AccountRepository,
	cr repository.ConfigRepository,
	creds CredentialSource,
	api graph.API,
	secretKey string) AccountService {
	return &accountService{
		db:     db,
		ar:     ar,
		cr:     cr,
		creds:  creds,
		api:    api,
		sealer: newTokenSealer(secretKey),
	}
}

// ConnectToken stores the account linked to a user token and makes it
// active. The token must reach a page with a linked Instagram business
// account.
func (s *accountService) ConnectToken(ctx context.Context, token string) (*models.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		err := fmt.Errorf("%w: token is empty", ErrInvalidInput)
		slog.Info(err.Error())
		return nil, err
	}
	return s.connect(ctx, token, false)
}

// ConnectCode finishes the OAuth callback. Unlike ConnectToken it falls back
// to the first page when none has a business account, so the install can be
// completed later.
func (s *accountService) ConnectCode(ctx context.Context, code string) (*models.Account, error) {
	token, err := s.creds.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.connect(ctx, token, true)
}

func (s *accountService) connect(ctx context.Context, token string, allowFallback bool) (*models.Account, error) {
	linked, err := s.creds.FetchLinkedAccounts(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err := pickLinkedAccount(linked, allowFallback)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if account.IsFallback() {
		slog.Warn("no Instagram business account linked, storing page as fallback", "page_id", account.PageID)
	}

	sealed, err := s.sealer.seal(token)
	if err != nil {
		return nil, err
	}
	account.AccessToken = sealed

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.ar.Upsert(ctx, tx, account)
	if err != nil {
		return nil, fmt.Errorf("error saving account: %w", err)
	}
	if err := s.cr.SetActiveAccount(ctx, tx, &id); err != nil {
		return nil, fmt.Errorf("error activating account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	account.ID = id
	account.AccessToken = token
	account.IsActive = true
	slog.Info("account connected", "account_id", id, "business_id", account.BusinessID)
	return account, nil
}

func pickLinkedAccount(linked []graph.LinkedAccount, allowFallback bool) (*models.Account, error) {
	for _, l := range linked {
		if l.BusinessID != "" {
			return &models.Account{
				BusinessID:  l.BusinessID,
				PageID:      l.PageID,
				DisplayName: l.Name,
				AvatarURL:   l.PictureURL,
			}, nil
		}
	}
	if allowFallback && len(linked) > 0 {
		first := linked[0]
		return &models.Account{
			BusinessID:  models.FallbackBusinessPrefix + first.PageID,
			PageID:      first.PageID,
			DisplayName: first.Name,
			AvatarURL:   first.PictureURL,
		}, nil
	}
	return nil, ErrNoLinkedAccount
}

func (s *accountService) List(ctx context.Context) ([]*models.Account, *int64, error) {
	accounts, err := s.ar.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.cr.Get(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	return accounts, cfg.ActiveAccountID, nil
}

func (s *accountService) Switch(ctx context.Context, id int64) error {
	account, err := s.ar.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if account.IsAbsent() {
		err = fmt.Errorf("account %d: %w", id, repository.ErrNotFound)
		slog.Info(err.Error())
		return err
	}
	return s.cr.SetActiveAccount(ctx, nil, &id)
}

// Remove deletes the account. When it was the active one, the most recently
// created remaining account becomes active, or none.
func (s *accountService) Remove(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	removed, err := s.ar.Remove(ctx, tx, id)
	if err != nil {
		return err
	}
	if !removed {
		err = fmt.Errorf("account %d: %w", id, repository.ErrNotFound)
		slog.Info(err.Error())
		return err
	}

	cfg, err := s.cr.Get(ctx, tx)
	if err != nil {
		return err
	}
	if cfg.ActiveAccountID == nil || *cfg.ActiveAccountID == id {
		next, err := s.ar.MostRecent(ctx, tx)
		if err != nil {
			return err
		}
		var nextID *int64
		if acc, ok := next.Get(); ok {
			nextID = &acc.ID
		}
		if err := s.cr.SetActiveAccount(ctx, tx, nextID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Active returns the active account with its token decrypted.
func (s *accountService) Active(ctx context.Context) (*models.Account, error) {
	cfg, err := s.cr.Get(ctx, nil)
	if err != nil {
		return nil, err
	}
	if cfg.ActiveAccountID == nil {
		return nil, ErrNoActiveAccount
	}

	found, err := s.ar.GetByID(ctx, nil, *cfg.ActiveAccountID)
	if err != nil {
		return nil, err
	}
	account, ok := found.Get()
	if !ok {
		return nil, ErrNoActiveAccount
	}
	account.AccessToken = s.sealer.open(account.AccessToken)
	return account, nil
}

// Get returns an account with its token decrypted.
func (s *accountService) Get(ctx context.Context, id int64) (*models.Account, error) {
	found, err := s.ar.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	account, ok := found.Get()
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, repository.ErrNotFound)
	}
	account.AccessToken = s.sealer.open(account.AccessToken)
	return account, nil
}

// RefreshToken exchanges the stored long-lived token for a fresh one.
func (s *accountService) RefreshToken(ctx context.Context, id int64) error {
	account, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if account.AccessToken == "" {
		return nil
	}

	fresh, err := s.creds.ExtendToken(ctx, account.AccessToken)
	if err != nil {
		return err
	}
	if fresh == account.AccessToken {
		return nil
	}

	sealed, err := s.sealer.seal(fresh)
	if err != nil {
		return err
	}
	return s.ar.UpdateToken(ctx, id, sealed)
}

// Verify re-reads the linked page of the active account and refreshes its
// profile.
func (s *accountService) Verify(ctx context.Context) (*models.Account, error) {
	account, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}

	linked, err := s.creds.FetchLinkedAccounts(ctx, account.AccessToken)
	if err != nil {
		return nil, err
	}

	var match *graph.LinkedAccount
	for i := range linked {
		l := &linked[i]
		if l.BusinessID == account.BusinessID || (account.IsFallback() && l.PageID == account.PageID) {
			match = l
			break
		}
	}
	if match == nil {
		return nil, ErrNoLinkedAccount
	}

	account.PageID = match.PageID
	account.DisplayName = match.Name
	account.AvatarURL = match.PictureURL
	if account.IsFallback() && match.BusinessID != "" {
		// the page got a business account since it was connected
		account.BusinessID = match.BusinessID
	}
	if err := s.ar.UpdateProfile(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Media lists recent media of the active account. Fallback accounts have no
// business account to ask and get an empty list.
func (s *accountService) Media(ctx context.Context) ([]transfer.GraphMedia, error) {
	account, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	if account.IsFallback() || !account.HasCredentials() {
		return []transfer.GraphMedia{}, nil
	}

	media, err := s.api.ListMedia(ctx, graph.AccountCredentials(account), mediaPageSize)
	if err != nil {
		slog.Warn("media listing failed", "error", err)
		return nil, err
	}
	return media, nil
}
