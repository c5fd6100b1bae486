package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

type TokenInput struct {
	Token string `json:"token"`
}

type ActionInput struct {
	ReplyText           string `json:"reply_text"`
	DMText              string `json:"dm_text"`
	HookText            string `json:"hook_text"`
	VerificationKeyword string `json:"verification_keyword"`
	IsFollowGated       bool   `json:"is_follow_gated"`
	GateText            string `json:"gate_text"`
	RewardText          string `json:"reward_text"`
	RewardLink          string `json:"reward_link"`
}

type FlowInput struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	TriggerType     string      `json:"trigger_type"`
	TriggerKeyword  string      `json:"trigger_keyword"`
	AttachedMediaID string      `json:"attached_media_id"`
	Action          ActionInput `json:"action"`
}

type PostCreation struct {
	FileRefs     []string `json:"file_refs"`
	Caption      string   `json:"caption"`
	MediaType    string   `json:"media_type"`
	PublishAt    string   `json:"publish_at"`
	LinkedFlowID string   `json:"linked_flow_id"`
}

// PostUpdate edits a pending post. A missing linked_flow_id keeps the stored
// link and an empty one clears it.
type PostUpdate struct {
	ID           int64   `json:"id"`
	Caption      string  `json:"caption"`
	PublishAt    string  `json:"publish_at"`
	LinkedFlowID *string `json:"linked_flow_id"`
}

type SettingUpdate struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type AccountsResponse struct {
	ActiveAccountID *int64 `json:"active_account_id"`
	Accounts        any    `json:"accounts"`
}

type StatsResponse struct {
	ActiveFlows    int `json:"active_flows"`
	PendingPosts   int `json:"pending_posts"`
	QueuePending   int `json:"queue_pending"`
	MessagesSent   int `json:"messages_sent"`
	MessagesFailed int `json:"messages_failed"`
}
