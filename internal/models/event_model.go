package models

import "time"

// CommentEvent is a comment on one of the account's media items.
type CommentEvent struct {
	ID           string
	Text         string
	MediaID      string
	FromID       string
	FromUsername string
	Timestamp    time.Time
}

// InboxMessage is one message of an Instagram conversation. Messages sent by
// the account itself show up here as well.
type InboxMessage struct {
	ID           string
	Text         string
	FromID       string
	FromUsername string
	CreatedAt    time.Time
}
