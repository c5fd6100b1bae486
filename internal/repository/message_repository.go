package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/maheshrc27/dmflow/internal/models"
)

const messageColumns = `id, recipient_id, status, payload_json, message_type, source, origin_comment_id, flow_id, created_at, executed_at`

// MessageRepository is the durable outbound queue. Rows are never deleted;
// terminal updates only apply to PENDING rows, so a message leaves PENDING
// exactly once.
type MessageRepository interface {
	Enqueue(ctx context.Context, m *models.QueuedMessage) (int64, error)
	ExistsForComment(ctx context.Context, commentID string) (bool, error)
	ListPending(ctx context.Context, limit int) ([]*models.QueuedMessage, error)
	MarkSent(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, reason string) (bool, error)
	List(ctx context.Context, status models.MessageStatus, limit int) ([]*models.QueuedMessage, error)
	CountByStatus(ctx context.Context) (map[models.MessageStatus]int, error)
}

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Enqueue(ctx context.Context, m *models.QueuedMessage) (int64, error) {
	if m.MessageType == "" {
		m.MessageType = models.MessageTypeText
	}
	m.Status = models.MessageStatusPending
	if m.CreatedAt.IsZero() {
		m.CreatedAt = nowUTC()
	}

	query := r.db.Rebind(`
		INSERT INTO message_queue (recipient_id, status, payload_json, message_type, source, origin_comment_id, flow_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		m.RecipientID,
		string(m.Status),
		m.Payload,
		m.MessageType,
		string(m.Source),
		m.OriginCommentID,
		m.FlowID,
		m.CreatedAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (r *messageRepository) ExistsForComment(ctx context.Context, commentID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM message_queue WHERE origin_comment_id = ?`), commentID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return n > 0, nil
}

func (r *messageRepository) ListPending(ctx context.Context, limit int) ([]*models.QueuedMessage, error) {
	query := r.db.Rebind(`SELECT ` + messageColumns + ` FROM message_queue WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT ?`)

	var messages []*models.QueuedMessage
	if err := r.db.SelectContext(ctx, &messages, query, string(models.MessageStatusPending), limit); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) MarkSent(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := r.db.Rebind(`UPDATE message_queue SET status = ?, executed_at = ? WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query, string(models.MessageStatusSent), at.UTC(), id, string(models.MessageStatusPending))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res.RowsAffected())
}

// MarkFailed finalises the message and overwrites its payload with the error.
func (r *messageRepository) MarkFailed(ctx context.Context, id int64, reason string) (bool, error) {
	query := r.db.Rebind(`UPDATE message_queue SET status = ?, payload_json = ? WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query,
		string(models.MessageStatusFailed),
		models.MessagePayload{Error: reason},
		id,
		string(models.MessageStatusPending),
	)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected(res.RowsAffected())
}

// List returns the newest messages first. An empty status lists every status.
func (r *messageRepository) List(ctx context.Context, status models.MessageStatus, limit int) ([]*models.QueuedMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM message_queue`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var messages []*models.QueuedMessage
	if err := r.db.SelectContext(ctx, &messages, r.db.Rebind(query), args...); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) CountByStatus(ctx context.Context) (map[models.MessageStatus]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM message_queue GROUP BY status`); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	counts := map[models.MessageStatus]int{
		models.MessageStatusPending: 0,
		models.MessageStatusSent:    0,
		models.MessageStatusFailed:  0,
	}
	for _, row := range rows {
		counts[models.MessageStatus(row.Status)] = row.Count
	}
	return counts, nil
}
