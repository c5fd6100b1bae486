package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	"github.com/maheshrc27/dmflow/internal/models"
)

// is_active is derived from the app_config pointer so exactly one account
// reads as active.
const accountColumns = `id, external_user_id, business_id, page_id, access_token, display_name, avatar_url,
	COALESCE(accounts.id = (SELECT active_account_id FROM app_config WHERE app_config.id = 1), FALSE) AS is_active,
	created_at`

type AccountRepository interface {
	Upsert(ctx context.Context, tx *sqlx.Tx, a *models.Account) (int64, error)
	GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (mo.Option[*models.Account], error)
	List(ctx context.Context) ([]*models.Account, error)
	MostRecent(ctx context.Context, tx *sqlx.Tx) (mo.Option[*models.Account], error)
	UpdateProfile(ctx context.Context, a *models.Account) error
	UpdateToken(ctx context.Context, id int64, token string) error
	Remove(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error)
}

type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Upsert inserts the account or refreshes the credentials and profile of the
// row with the same business id.
func (r *accountRepository) Upsert(ctx context.Context, tx *sqlx.Tx, a *models.Account) (int64, error) {
	q := queryable(r.db, tx)
	query := q.Rebind(`
		INSERT INTO accounts (external_user_id, business_id, page_id, access_token, display_name, avatar_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (business_id) DO UPDATE SET
			page_id = excluded.page_id,
			access_token = excluded.access_token,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url
		RETURNING id
	`)

	var id int64
	err := q.QueryRowxContext(ctx, query,
		a.ExternalUserID,
		a.BusinessID,
		a.PageID,
		a.AccessToken,
		a.DisplayName,
		a.AvatarURL,
		nowUTC(),
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *accountRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (mo.Option[*models.Account], error) {
	q := queryable(r.db, tx)
	query := q.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`)

	var a models.Account
	if err := sqlx.GetContext(ctx, q, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mo.None[*models.Account](), nil
		}
		slog.Info(err.Error())
		return mo.None[*models.Account](), err
	}
	return mo.Some(&a), nil
}

func (r *accountRepository) List(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC, id DESC`

	var accounts []*models.Account
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) MostRecent(ctx context.Context, tx *sqlx.Tx) (mo.Option[*models.Account], error) {
	q := queryable(r.db, tx)
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC, id DESC LIMIT 1`

	var a models.Account
	if err := sqlx.GetContext(ctx, q, &a, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mo.None[*models.Account](), nil
		}
		slog.Info(err.Error())
		return mo.None[*models.Account](), err
	}
	return mo.Some(&a), nil
}

func (r *accountRepository) UpdateProfile(ctx context.Context, a *models.Account) error {
	query := r.db.Rebind(`
		UPDATE accounts
		SET page_id = ?, business_id = ?, display_name = ?, avatar_url = ?
		WHERE id = ?
	`)
	_, err := r.db.ExecContext(ctx, query, a.PageID, a.BusinessID, a.DisplayName, a.AvatarURL, a.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) UpdateToken(ctx context.Context, id int64, token string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE accounts SET access_token = ? WHERE id = ?`), token, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) Remove(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error) {
	q := queryable(r.db, tx)
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM accounts WHERE id = ?`), id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res.RowsAffected())
}
