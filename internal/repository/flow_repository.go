package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	"github.com/maheshrc27/dmflow/internal/models"
)

const flowColumns = `id, name, is_active, trigger_type, trigger_keyword, attached_media_id, action_json, created_at`

// flowOrder is the first-match contract of the trigger matcher: most recently
// saved flow first, id as the tie-break.
const flowOrder = ` ORDER BY created_at DESC, id ASC`

type FlowRepository interface {
	Save(ctx context.Context, f *models.Flow) error
	GetByID(ctx context.Context, id string) (mo.Option[*models.Flow], error)
	List(ctx context.Context) ([]*models.Flow, error)
	ListActive(ctx context.Context) ([]*models.Flow, error)
	Toggle(ctx context.Context, id string) (bool, error)
	AttachMedia(ctx context.Context, id, mediaID string) (bool, error)
	Remove(ctx context.Context, id string) (bool, error)
	CountActive(ctx context.Context) (int, error)
}

type flowRepository struct {
	db *sqlx.DB
}

func NewFlowRepository(db *sqlx.DB) FlowRepository {
	return &flowRepository{db: db}
}

type dbFlow struct {
	ID              string    `db:"id"`
	Name            string    `db:"name"`
	IsActive        bool      `db:"is_active"`
	TriggerType     string    `db:"trigger_type"`
	TriggerKeyword  *string   `db:"trigger_keyword"`
	AttachedMediaID *string   `db:"attached_media_id"`
	ActionJSON      string    `db:"action_json"`
	CreatedAt       time.Time `db:"created_at"`
}

func dbFlowToModel(f *dbFlow) (*models.Flow, error) {
	action, err := models.DecodeAction([]byte(f.ActionJSON))
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", f.ID, err)
	}
	return &models.Flow{
		ID:              f.ID,
		Name:            f.Name,
		IsActive:        f.IsActive,
		TriggerType:     models.TriggerType(f.TriggerType),
		TriggerKeyword:  f.TriggerKeyword,
		AttachedMediaID: f.AttachedMediaID,
		Action:          action,
		CreatedAt:       f.CreatedAt,
	}, nil
}

// Save upserts by id. Saving an existing flow moves it to the front of the
// match order, the same as creating it anew. is_active is left untouched and
// attached_media_id is only replaced when the flow carries one, so the link
// written by AttachMedia survives an edit.
func (r *flowRepository) Save(ctx context.Context, f *models.Flow) error {
	actionJSON, err := models.EncodeAction(f.Action)
	if err != nil {
		return err
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = nowUTC()
	}

	query := r.db.Rebind(`
		INSERT INTO flows (id, name, is_active, trigger_type, trigger_keyword, attached_media_id, action_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			trigger_type = excluded.trigger_type,
			trigger_keyword = excluded.trigger_keyword,
			attached_media_id = COALESCE(excluded.attached_media_id, flows.attached_media_id),
			action_json = excluded.action_json,
			created_at = excluded.created_at
	`)
	_, err = r.db.ExecContext(ctx, query,
		f.ID,
		f.Name,
		f.IsActive,
		string(f.TriggerType),
		f.TriggerKeyword,
		f.AttachedMediaID,
		string(actionJSON),
		f.CreatedAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *flowRepository) GetByID(ctx context.Context, id string) (mo.Option[*models.Flow], error) {
	var f dbFlow
	err := r.db.GetContext(ctx, &f, r.db.Rebind(`SELECT `+flowColumns+` FROM flows WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mo.None[*models.Flow](), nil
		}
		slog.Info(err.Error())
		return mo.None[*models.Flow](), err
	}

	flow, err := dbFlowToModel(&f)
	if err != nil {
		return mo.None[*models.Flow](), err
	}
	return mo.Some(flow), nil
}

func (r *flowRepository) List(ctx context.Context) ([]*models.Flow, error) {
	return r.list(ctx, `SELECT `+flowColumns+` FROM flows`+flowOrder)
}

func (r *flowRepository) ListActive(ctx context.Context) ([]*models.Flow, error) {
	return r.list(ctx, `SELECT `+flowColumns+` FROM flows WHERE is_active = TRUE`+flowOrder)
}

func (r *flowRepository) list(ctx context.Context, query string) ([]*models.Flow, error) {
	var rows []*dbFlow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	flows := make([]*models.Flow, 0, len(rows))
	for _, row := range rows {
		flow, err := dbFlowToModel(row)
		if err != nil {
			// one broken row must not stop every other automation
			slog.Warn("skipping flow with unreadable action", "flow_id", row.ID, "error", err)
			continue
		}
		flows = append(flows, flow)
	}
	return flows, nil
}

func (r *flowRepository) Toggle(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE flows SET is_active = NOT is_active WHERE id = ?`), id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res.RowsAffected())
}

// AttachMedia points the flow at a published media item. It reports false
// when the flow no longer exists.
func (r *flowRepository) AttachMedia(ctx context.Context, id, mediaID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE flows SET attached_media_id = ? WHERE id = ?`), mediaID, id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res.RowsAffected())
}

func (r *flowRepository) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM flows WHERE id = ?`), id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res.RowsAffected())
}

func (r *flowRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM flows WHERE is_active = TRUE`); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}
