package queue

import (
	"context"
)

// Publisher runs the container flow for a post claimed by the scheduler.
type Publisher interface {
	PublishByID(ctx context.Context, postID, accountID int64, claimToken string) error
}

type Queue struct {
	publisher Publisher
}

func NewQueue(publisher Publisher) *Queue {
	return &Queue{
		publisher: publisher,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID     int64  `json:"post_id"`
	AccountID  int64  `json:"account_id"`
	ClaimToken string `json:"claim_token"`
}
