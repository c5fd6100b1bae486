package models

import (
	"encoding/json"
	"strings"
)

const (
	SettingReplyDelaySeconds = "reply_delay_seconds"
	SettingBlacklist         = "blacklist"
	SettingAutomationsPaused = "automations_paused"
)

// Settings is the typed view of the free-form settings blob the automation
// core reads. Keys it does not know about are left untouched in the blob.
type Settings struct {
	ReplyDelaySeconds int      `json:"reply_delay_seconds"`
	Blacklist         []string `json:"blacklist"`
	AutomationsPaused bool     `json:"automations_paused"`
}

func ParseSettings(raw string) (Settings, error) {
	var s Settings
	if strings.TrimSpace(raw) == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// IsBlacklisted matches user ids and usernames case-insensitively. A leading
// "@" in either side is ignored.
func (s Settings) IsBlacklisted(ids ...string) bool {
	for _, entry := range s.Blacklist {
		entry = strings.TrimPrefix(strings.TrimSpace(entry), "@")
		if entry == "" {
			continue
		}
		for _, id := range ids {
			if strings.EqualFold(entry, strings.TrimPrefix(id, "@")) {
				return true
			}
		}
	}
	return false
}
