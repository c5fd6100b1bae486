package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/repository"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ActivityService reports what the automation engine has done.
type ActivityService interface {
	Messages(ctx context.Context, status string, limit int) ([]*models.QueuedMessage, error)
	Stats(ctx context.Context) (*transfer.StatsResponse, error)
}

type activityService struct {
	mr repository.MessageRepository
	fr repository.FlowRepository
	pr repository.ScheduledPostRepository
}

func NewActivityService(
	mr repository.MessageRepository,
	fr repository.FlowRepository,
	pr repository.ScheduledPostRepository) ActivityService {
	return &activityService{
		mr: mr,
		fr: fr,
		pr: pr,
	}
}

func (s *activityService) Messages(ctx context.Context, status string, limit int) ([]*models.QueuedMessage, error) {
	st := models.MessageStatus(strings.ToUpper(strings.TrimSpace(status)))
	switch st {
	case "", models.MessageStatusPending, models.MessageStatusSent, models.MessageStatusFailed:
	default:
		return nil, invalid(fmt.Sprintf("unknown message status %q", status))
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.mr.List(ctx, st, limit)
}

func (s *activityService) Stats(ctx context.Context) (*transfer.StatsResponse, error) {
	flows, err := s.fr.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.pr.CountByStatus(ctx, models.PostStatusPending)
	if err != nil {
		return nil, err
	}
	queue, err := s.mr.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	return &transfer.StatsResponse{
		ActiveFlows:    flows,
		PendingPosts:   posts,
		QueuePending:   queue[models.MessageStatusPending],
		MessagesSent:   queue[models.MessageStatusSent],
		MessagesFailed: queue[models.MessageStatusFailed],
	}, nil
}
