package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type PostStatus string

const (
	PostStatusPending    PostStatus = "PENDING"
	PostStatusProcessing PostStatus = "PROCESSING"
	PostStatusPublished  PostStatus = "PUBLISHED"
	PostStatusFailed     PostStatus = "FAILED"
)

type MediaType string

const (
	MediaTypeReel     MediaType = "REEL"
	MediaTypeImage    MediaType = "IMAGE"
	MediaTypeCarousel MediaType = "CAROUSEL"
	MediaTypeStory    MediaType = "STORY"
)

func (m MediaType) Valid() bool {
	switch m {
	case MediaTypeReel, MediaTypeImage, MediaTypeCarousel, MediaTypeStory:
		return true
	}
	return false
}

// FileRefs is an ordered list of content locators stored as a JSON array.
type FileRefs []string

func (f FileRefs) Value() (driver.Value, error) {
	if f == nil {
		f = FileRefs{}
	}
	b, err := json.Marshal([]string(f))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *FileRefs) Scan(src any) error {
	return scanJSON(src, (*[]string)(f))
}

type ScheduledPost struct {
	ID            int64      `db:"id" json:"id"`
	FileRefs      FileRefs   `db:"file_refs" json:"file_refs"`
	Caption       string     `db:"caption" json:"caption"`
	MediaType     MediaType  `db:"media_type" json:"media_type"`
	PublishAt     time.Time  `db:"publish_at" json:"publish_at"`
	Status        PostStatus `db:"status" json:"status"`
	LinkedFlowID  *string    `db:"linked_flow_id" json:"linked_flow_id,omitempty"`
	RemoteMediaID *string    `db:"remote_media_id" json:"remote_media_id,omitempty"`
	ErrorMessage  *string    `db:"error_message" json:"error_message,omitempty"`
	ClaimToken    *string    `db:"claim_token" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
