package models

import (
	"strings"
	"time"
)

// FallbackBusinessPrefix marks accounts stored from a page that has no linked
// Instagram business account.
const FallbackBusinessPrefix = "fallback_"

type Account struct {
	ID             int64     `db:"id" json:"id"`
	ExternalUserID *string   `db:"external_user_id" json:"external_user_id,omitempty"`
	BusinessID     string    `db:"business_id" json:"business_id"`
	PageID         string    `db:"page_id" json:"page_id"`
	AccessToken    string    `db:"access_token" json:"-"`
	DisplayName    string    `db:"display_name" json:"display_name"`
	AvatarURL      string    `db:"avatar_url" json:"avatar_url"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

func (a *Account) IsFallback() bool {
	return strings.HasPrefix(a.BusinessID, FallbackBusinessPrefix)
}

// HasCredentials reports whether the account can authenticate remote calls.
func (a *Account) HasCredentials() bool {
	return a != nil && a.AccessToken != "" && a.BusinessID != ""
}

// AppConfig is the singleton configuration row of an install.
type AppConfig struct {
	ID              int64  `db:"id" json:"id"`
	ActiveAccountID *int64 `db:"active_account_id" json:"active_account_id"`
	Settings        string `db:"settings" json:"settings"`
}
