package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	"github.com/maheshrc27/dmflow/internal/models"
)

const postColumns = `id, file_refs, caption, media_type, publish_at, status, linked_flow_id, remote_media_id, error_message, claim_token, created_at, updated_at`

// ScheduledPostRepository stores publish jobs. Status changes are
// conditional on the current status so the state machine can only move
// PENDING -> PROCESSING -> PUBLISHED | FAILED, plus the stale-claim recovery
// PROCESSING -> PENDING. Every claim carries a token; a queued worker must
// Take the post with the token of the current claim before publishing.
type ScheduledPostRepository interface {
	Create(ctx context.Context, p *models.ScheduledPost) (int64, error)
	GetByID(ctx context.Context, id int64) (mo.Option[*models.ScheduledPost], error)
	ListBetween(ctx context.Context, from, to *time.Time) ([]*models.ScheduledPost, error)
	UpdatePending(ctx context.Context, p *models.ScheduledPost) (bool, error)
	Remove(ctx context.Context, id int64) (bool, error)
	CountByStatus(ctx context.Context, status models.PostStatus) (int, error)

	ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error)
	Claim(ctx context.Context, id int64, token string) (bool, error)
	Take(ctx context.Context, id int64, token string) (bool, error)
	MarkPublished(ctx context.Context, id int64, mediaID string) (bool, error)
	MarkFailed(ctx context.Context, id int64, reason string) (bool, error)
	RecoverStale(ctx context.Context, before time.Time) (int64, error)
}

type scheduledPostRepository struct {
	db *sqlx.DB
}

func NewScheduledPostRepository(db *sqlx.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

func (r *scheduledPostRepository) Create(ctx context.Context, p *models.ScheduledPost) (int64, error) {
	now := nowUTC()
	p.Status = models.PostStatusPending
	p.CreatedAt = now
	p.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO scheduled_posts (file_refs, caption, media_type, publish_at, status, linked_flow_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		p.FileRefs,
		p.Caption,
		string(p.MediaType),
		p.PublishAt.UTC(),
		string(p.Status),
		p.LinkedFlowID,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	p.ID = id
	return id, nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id int64) (mo.Option[*models.ScheduledPost], error) {
	var p models.ScheduledPost
	err := r.db.GetContext(ctx, &p, r.db.Rebind(`SELECT `+postColumns+` FROM scheduled_posts WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mo.None[*models.ScheduledPost](), nil
		}
		slog.Info(err.Error())
		return mo.None[*models.ScheduledPost](), err
	}
	return mo.Some(&p), nil
}

func (r *scheduledPostRepository) ListBetween(ctx context.Context, from, to *time.Time) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts`
	args := []any{}
	if from != nil && to != nil {
		query += ` WHERE publish_at BETWEEN ? AND ?`
		args = append(args, from.UTC(), to.UTC())
	}
	query += ` ORDER BY publish_at ASC, id ASC`

	var posts []*models.ScheduledPost
	if err := r.db.SelectContext(ctx, &posts, r.db.Rebind(query), args...); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

// UpdatePending edits caption, publish time and linked flow of a post that
// has not been picked up yet.
func (r *scheduledPostRepository) UpdatePending(ctx context.Context, p *models.ScheduledPost) (bool, error) {
	query := r.db.Rebind(`
		UPDATE scheduled_posts
		SET caption = ?, publish_at = ?, linked_flow_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		p.Caption,
		p.PublishAt.UTC(),
		p.LinkedFlowID,
		nowUTC(),
		p.ID,
		string(models.PostStatusPending),
	)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res.RowsAffected())
}

func (r *scheduledPostRepository) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM scheduled_posts WHERE id = ?`), id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res.RowsAffected())
}

func (r *scheduledPostRepository) CountByStatus(ctx context.Context, status models.PostStatus) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM scheduled_posts WHERE status = ?`), string(status)); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}

func (r *scheduledPostRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	query := r.db.Rebind(`SELECT ` + postColumns + ` FROM scheduled_posts WHERE status = ? AND publish_at <= ? ORDER BY publish_at ASC, id ASC`)

	var posts []*models.ScheduledPost
	if err := r.db.SelectContext(ctx, &posts, query, string(models.PostStatusPending), now.UTC()); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

// Claim moves a PENDING post to PROCESSING under token. It reports false
// when another tick already claimed it.
func (r *scheduledPostRepository) Claim(ctx context.Context, id int64, token string) (bool, error) {
	query := r.db.Rebind(`
		UPDATE scheduled_posts
		SET status = ?, claim_token = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		string(models.PostStatusProcessing),
		nullIfEmpty(token),
		nowUTC(),
		id,
		string(models.PostStatusPending),
	)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res.RowsAffected())
}

// Take consumes the claim token of a PROCESSING post and refreshes its
// updated_at. It reports false when the claim was recovered and re-issued,
// or when the token was already taken by an earlier delivery.
func (r *scheduledPostRepository) Take(ctx context.Context, id int64, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	query := r.db.Rebind(`
		UPDATE scheduled_posts
		SET claim_token = NULL, updated_at = ?
		WHERE id = ? AND status = ? AND claim_token = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		nowUTC(),
		id,
		string(models.PostStatusProcessing),
		token,
	)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res.RowsAffected())
}

func (r *scheduledPostRepository) MarkPublished(ctx context.Context, id int64, mediaID string) (bool, error) {
	return r.transition(ctx, id, models.PostStatusProcessing, models.PostStatusPublished, mediaID, "")
}

func (r *scheduledPostRepository) MarkFailed(ctx context.Context, id int64, reason string) (bool, error) {
	return r.transition(ctx, id, models.PostStatusProcessing, models.PostStatusFailed, "", reason)
}

func (r *scheduledPostRepository) transition(ctx context.Context, id int64, from, to models.PostStatus, mediaID, reason string) (bool, error) {
	query := r.db.Rebind(`
		UPDATE scheduled_posts
		SET status = ?,
			remote_media_id = COALESCE(?, remote_media_id),
			error_message = COALESCE(?, error_message),
			claim_token = NULL,
			updated_at = ?
		WHERE id = ? AND status = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		string(to),
		nullIfEmpty(mediaID),
		nullIfEmpty(reason),
		nowUTC(),
		id,
		string(from),
	)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res.RowsAffected())
}

// RecoverStale puts PROCESSING posts whose claim is older than before back to
// PENDING. Those are posts abandoned by a process that stopped mid-publish.
func (r *scheduledPostRepository) RecoverStale(ctx context.Context, before time.Time) (int64, error) {
	query := r.db.Rebind(`UPDATE scheduled_posts SET status = ?, claim_token = NULL, updated_at = ? WHERE status = ? AND updated_at < ?`)
	res, err := r.db.ExecContext(ctx, query,
		string(models.PostStatusPending),
		nowUTC(),
		string(models.PostStatusProcessing),
		before.UTC(),
	)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.RowsAffected()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
