package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type TriggerType string

const (
	TriggerComment    TriggerType = "comment"
	TriggerStoryReply TriggerType = "story_reply"
)

func (t TriggerType) Valid() bool {
	return t == TriggerComment || t == TriggerStoryReply
}

type ActionKind string

const (
	ActionSimple           ActionKind = "simple"
	ActionHookVerifyReward ActionKind = "hook_verify_reward"
)

// Action is what a flow does once its trigger fires. It is implemented by
// SimpleAction and HookVerifyRewardAction only.
type Action interface {
	Kind() ActionKind
	isAction()
}

type SimpleAction struct {
	ReplyText string `json:"reply_text"`
}

func (SimpleAction) Kind() ActionKind { return ActionSimple }
func (SimpleAction) isAction()        {}

// HookVerifyRewardAction sends a hook message on comment, waits for the user
// to DM the verification keyword, then sends the reward (or the gate text
// when the user must follow first and does not).
type HookVerifyRewardAction struct {
	HookText            string `json:"hook_text"`
	VerificationKeyword string `json:"verification_keyword"`
	IsFollowGated       bool   `json:"is_follow_gated"`
	GateText            string `json:"gate_text"`
	RewardText          string `json:"reward_text"`
	RewardLink          string `json:"reward_link"`
}

func (HookVerifyRewardAction) Kind() ActionKind { return ActionHookVerifyReward }
func (HookVerifyRewardAction) isAction()        {}

// actionWire is the stored shape of an action. dm_text is the legacy name of
// the simple reply.
type actionWire struct {
	ReplyText           string `json:"reply_text,omitempty"`
	DMText              string `json:"dm_text,omitempty"`
	HookText            string `json:"hook_text,omitempty"`
	VerificationKeyword string `json:"verification_keyword,omitempty"`
	IsFollowGated       bool   `json:"is_follow_gated,omitempty"`
	GateText            string `json:"gate_text,omitempty"`
	RewardText          string `json:"reward_text,omitempty"`
	RewardLink          string `json:"reward_link,omitempty"`
}

// DecodeAction reads a stored action. The presence of hook_text selects the
// hook/verify/reward variant.
func DecodeAction(raw []byte) (Action, error) {
	var w actionWire
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
	}
	if w.HookText != "" {
		return HookVerifyRewardAction{
			HookText:            w.HookText,
			VerificationKeyword: w.VerificationKeyword,
			IsFollowGated:       w.IsFollowGated,
			GateText:            w.GateText,
			RewardText:          w.RewardText,
			RewardLink:          w.RewardLink,
		}, nil
	}
	reply := w.ReplyText
	if reply == "" {
		reply = w.DMText
	}
	return SimpleAction{ReplyText: reply}, nil
}

func EncodeAction(a Action) ([]byte, error) {
	switch v := a.(type) {
	case SimpleAction:
		return json.Marshal(actionWire{ReplyText: v.ReplyText})
	case HookVerifyRewardAction:
		return json.Marshal(actionWire{
			HookText:            v.HookText,
			VerificationKeyword: v.VerificationKeyword,
			IsFollowGated:       v.IsFollowGated,
			GateText:            v.GateText,
			RewardText:          v.RewardText,
			RewardLink:          v.RewardLink,
		})
	case nil:
		return json.Marshal(actionWire{})
	default:
		return nil, fmt.Errorf("unknown action type %T", a)
	}
}

type Flow struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	IsActive        bool        `json:"is_active"`
	TriggerType     TriggerType `json:"trigger_type"`
	TriggerKeyword  *string     `json:"trigger_keyword"`
	AttachedMediaID *string     `json:"attached_media_id"`
	Action          Action      `json:"-"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Keyword returns the trigger keyword or "" for match-any flows.
func (f *Flow) Keyword() string {
	if f.TriggerKeyword == nil {
		return ""
	}
	return *f.TriggerKeyword
}

func (f *Flow) MediaID() string {
	if f.AttachedMediaID == nil {
		return ""
	}
	return *f.AttachedMediaID
}

func (f *Flow) MarshalJSON() ([]byte, error) {
	type alias Flow
	var kind ActionKind
	if f.Action != nil {
		kind = f.Action.Kind()
	}
	return json.Marshal(struct {
		*alias
		ActionKind ActionKind `json:"action_kind"`
		Action     Action     `json:"action"`
	}{
		alias:      (*alias)(f),
		ActionKind: kind,
		Action:     f.Action,
	})
}
