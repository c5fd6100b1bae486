package repository

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/maheshrc27/dmflow/internal/models"
)

// ConfigRepository owns the singleton app_config row (id = 1), which holds the
// active account pointer and the settings blob.
type ConfigRepository interface {
	Get(ctx context.Context, tx *sqlx.Tx) (*models.AppConfig, error)
	SetActiveAccount(ctx context.Context, tx *sqlx.Tx, accountID *int64) error
	SetSettings(ctx context.Context, tx *sqlx.Tx, settings string) error
}

type configRepository struct {
	db *sqlx.DB
}

func NewConfigRepository(db *sqlx.DB) ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) ensure(ctx context.Context, q sqlx.ExtContext) error {
	_, err := q.ExecContext(ctx, `INSERT INTO app_config (id, settings) VALUES (1, '{}') ON CONFLICT (id) DO NOTHING`)
	return err
}

func (r *configRepository) Get(ctx context.Context, tx *sqlx.Tx) (*models.AppConfig, error) {
	q := queryable(r.db, tx)
	if err := r.ensure(ctx, q); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	var cfg models.AppConfig
	if err := sqlx.GetContext(ctx, q, &cfg, `SELECT id, active_account_id, settings FROM app_config WHERE id = 1`); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &cfg, nil
}

func (r *configRepository) SetActiveAccount(ctx context.Context, tx *sqlx.Tx, accountID *int64) error {
	q := queryable(r.db, tx)
	if err := r.ensure(ctx, q); err != nil {
		slog.Info(err.Error())
		return err
	}
	if _, err := q.ExecContext(ctx, q.Rebind(`UPDATE app_config SET active_account_id = ? WHERE id = 1`), accountID); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *configRepository) SetSettings(ctx context.Context, tx *sqlx.Tx, settings string) error {
	q := queryable(r.db, tx)
	if err := r.ensure(ctx, q); err != nil {
		slog.Info(err.Error())
		return err
	}
	if _, err := q.ExecContext(ctx, q.Rebind(`UPDATE app_config SET settings = ? WHERE id = 1`), settings); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
