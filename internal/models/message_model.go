package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type MessageStatus string

const (
	MessageStatusPending MessageStatus = "PENDING"
	MessageStatusSent    MessageStatus = "SENT"
	MessageStatusFailed  MessageStatus = "FAILED"
)

type MessageSource string

const (
	MessageSourceComment MessageSource = "COMMENT"
	MessageSourceDM      MessageSource = "DM"
)

const MessageTypeText = "TEXT"

// MessagePayload holds the outbound text. After a failed send the text is
// replaced by the error.
type MessagePayload struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func (p MessagePayload) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *MessagePayload) Scan(src any) error {
	return scanJSON(src, p)
}

type QueuedMessage struct {
	ID              int64          `db:"id" json:"id"`
	RecipientID     string         `db:"recipient_id" json:"recipient_id"`
	Status          MessageStatus  `db:"status" json:"status"`
	Payload         MessagePayload `db:"payload_json" json:"payload"`
	MessageType     string         `db:"message_type" json:"message_type"`
	Source          MessageSource  `db:"source" json:"source"`
	OriginCommentID *string        `db:"origin_comment_id" json:"origin_comment_id,omitempty"`
	FlowID          *string        `db:"flow_id" json:"flow_id,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	ExecutedAt      *time.Time     `db:"executed_at" json:"executed_at,omitempty"`
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
}
