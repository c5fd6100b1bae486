package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	publishMaxRetry = 3
	publishTimeout  = 5 * time.Minute
)

// Client enqueues publish tasks on Redis.
type Client struct {
	client *asynq.Client
}

func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

// RedisOpt parses a redis:// URI. A bare host:port is accepted as well.
func RedisOpt(uri string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(uri)
	if err == nil {
		return opt, nil
	}
	if uri == "" {
		return nil, fmt.Errorf("redis uri is empty")
	}
	return asynq.RedisClientOpt{Addr: uri}, nil
}

func NewPublishPostTask(postID, accountID int64, claimToken string) (*asynq.Task, error) {
	taskPayload, err := json.Marshal(PublishPostPayload{PostID: postID, AccountID: accountID, ClaimToken: claimToken})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, taskPayload,
		asynq.MaxRetry(publishMaxRetry),
		asynq.Timeout(publishTimeout),
	), nil
}

func (c *Client) EnqueuePublish(ctx context.Context, postID, accountID int64, claimToken string) error {
	task, err := NewPublishPostTask(postID, accountID, claimToken)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}

	slog.Info("Task enqueued", "task_id", info.ID, "post_id", postID, "queue", info.Queue)
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
