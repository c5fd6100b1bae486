// Package matcher decides which automation flow, if any, reacts to an
// incoming comment or direct message, and builds the reply texts.
package matcher

import (
	"strings"

	"github.com/maheshrc27/dmflow/internal/models"
)

const (
	defaultReplyText = "Thanks for commenting!"
	defaultGateText  = "Please follow us first!"
)

// Match returns the first flow that reacts to the comment, or nil. Flows are
// evaluated in the given order; callers pass them newest first.
func Match(event models.CommentEvent, flows []*models.Flow) *models.Flow {
	text := strings.ToLower(event.Text)
	for _, flow := range flows {
		if flow == nil || !flow.IsActive || flow.TriggerType != models.TriggerComment {
			continue
		}
		if mediaID := flow.MediaID(); mediaID != "" && mediaID != event.MediaID {
			continue
		}
		keyword := strings.ToLower(flow.Keyword())
		if keyword == "" || strings.Contains(text, keyword) {
			return flow
		}
	}
	return nil
}

// MatchVerification returns the first hook flow whose verification keyword
// equals the message text, ignoring case and surrounding whitespace.
func MatchVerification(text string, flows []*models.Flow) *models.Flow {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, flow := range flows {
		if flow == nil || !flow.IsActive {
			continue
		}
		hook, ok := flow.Action.(models.HookVerifyRewardAction)
		if !ok {
			continue
		}
		keyword := strings.TrimSpace(hook.VerificationKeyword)
		if keyword != "" && strings.EqualFold(text, keyword) {
			return flow
		}
	}
	return nil
}

// HookPayload is the first message sent to a commenter.
func HookPayload(flow *models.Flow) string {
	switch action := flow.Action.(type) {
	case models.HookVerifyRewardAction:
		if action.VerificationKeyword == "" {
			return action.HookText
		}
		return action.HookText + "\n\n(Reply \"" + action.VerificationKeyword + "\" when done!)"
	case models.SimpleAction:
		if action.ReplyText != "" {
			return action.ReplyText
		}
	}
	return defaultReplyText
}

// VerificationReply is the answer to a verification keyword: the reward when
// the follow gate is passed, the gate text otherwise.
func VerificationReply(flow *models.Flow, following bool) string {
	action, ok := flow.Action.(models.HookVerifyRewardAction)
	if !ok {
		return HookPayload(flow)
	}
	if following || !action.IsFollowGated {
		if action.RewardLink == "" {
			return action.RewardText
		}
		return action.RewardText + "\n\n" + action.RewardLink
	}
	if action.GateText != "" {
		return action.GateText
	}
	return defaultGateText
}
