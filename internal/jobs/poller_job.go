package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/dmflow/internal/graph"
	"github.com/maheshrc27/dmflow/internal/matcher"
	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/repository"
)

// PollerJob reads new comments and DMs of the active account, queues the
// replies of matching flows and then drives one dispatch pass.
//
// Only events newer than the watermark are considered. The watermark starts
// at construction time and moves to the start of each completed cycle, so an
// event arriving while a cycle runs is picked up by the next one.
type PollerJob struct {
	accounts   AccountSource
	settings   SettingsSource
	flows      repository.FlowRepository
	messages   repository.MessageRepository
	api        graph.API
	dispatcher *DispatchJob

	mu        sync.Mutex
	watermark time.Time
	now       func() time.Time
}

func NewPollerJob(
	accounts AccountSource,
	settings SettingsSource,
	flows repository.FlowRepository,
	messages repository.MessageRepository,
	api graph.API,
	dispatcher *DispatchJob) *PollerJob {
	return &PollerJob{
		accounts:   accounts,
		settings:   settings,
		flows:      flows,
		messages:   messages,
		api:        api,
		dispatcher: dispatcher,
		watermark:  time.Now().UTC(),
		now:        time.Now,
	}
}

func (j *PollerJob) Watermark() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.watermark
}

// Run executes one poll cycle unless the previous one is still running.
func (j *PollerJob) Run(ctx context.Context) {
	if !j.mu.TryLock() {
		slog.Debug("poll cycle still running, skipping tick")
		return
	}
	defer j.mu.Unlock()

	cycleStart := j.now().UTC()

	if account, settings, ok := j.prepare(ctx); ok {
		flows, err := j.flows.ListActive(ctx)
		if err != nil {
			slog.Warn("failed to load active flows", "error", err)
		} else {
			creds := graph.AccountCredentials(account)
			j.pollComments(ctx, creds, flows, settings)
			j.pollInbox(ctx, account, creds, flows, settings)
		}
	}

	if j.dispatcher != nil {
		j.dispatcher.Run(ctx)
	}

	if ctx.Err() == nil {
		j.watermark = cycleStart
	}
}

func (j *PollerJob) prepare(ctx context.Context) (*models.Account, models.Settings, bool) {
	account := activeAccount(ctx, j.accounts, "poller")
	if account == nil {
		return nil, models.Settings{}, false
	}
	if account.IsFallback() {
		slog.Debug("active account has no business account, skipping poll", "account_id", account.ID)
		return nil, models.Settings{}, false
	}

	settings, err := j.settings.Settings(ctx)
	if err != nil {
		slog.Warn("failed to read settings", "job", "poller", "error", err)
		return nil, models.Settings{}, false
	}
	if settings.AutomationsPaused {
		slog.Debug("automations paused, skipping poll")
		return nil, models.Settings{}, false
	}
	return account, settings, true
}

func (j *PollerJob) pollComments(ctx context.Context, creds graph.Credentials, flows []*models.Flow, settings models.Settings) {
	comments, err := j.api.ListRecentComments(ctx, creds)
	if err != nil {
		slog.Warn("comment polling failed", "error", err)
		return
	}

	for _, comment := range comments {
		if !comment.Timestamp.After(j.watermark) {
			continue
		}
		if settings.IsBlacklisted(comment.FromID, comment.FromUsername) {
			slog.Debug("ignoring comment from blacklisted user", "comment_id", comment.ID)
			continue
		}

		flow := matcher.Match(comment, flows)
		if flow == nil {
			continue
		}

		queued, err := j.messages.ExistsForComment(ctx, comment.ID)
		if err != nil {
			slog.Warn("failed to check comment dedup", "comment_id", comment.ID, "error", err)
			continue
		}
		if queued {
			continue
		}

		commentID, flowID := comment.ID, flow.ID
		_, err = j.messages.Enqueue(ctx, &models.QueuedMessage{
			RecipientID:     comment.ID,
			Payload:         models.MessagePayload{Text: matcher.HookPayload(flow)},
			Source:          models.MessageSourceComment,
			OriginCommentID: &commentID,
			FlowID:          &flowID,
		})
		if err != nil {
			slog.Warn("failed to queue comment reply", "comment_id", comment.ID, "error", err)
			continue
		}
		slog.Info("comment matched", "comment_id", comment.ID, "flow_id", flow.ID)
	}
}

func (j *PollerJob) pollInbox(ctx context.Context, account *models.Account, creds graph.Credentials, flows []*models.Flow, settings models.Settings) {
	messages, err := j.api.ListRecentMessages(ctx, creds)
	if err != nil {
		slog.Warn("inbox polling failed", "error", err)
		return
	}

	for _, msg := range messages {
		if !msg.CreatedAt.After(j.watermark) || msg.Text == "" {
			continue
		}
		if msg.FromID == "" || msg.FromID == account.BusinessID || msg.FromID == account.PageID {
			continue
		}
		if settings.IsBlacklisted(msg.FromID, msg.FromUsername) {
			slog.Debug("ignoring message from blacklisted user", "message_id", msg.ID)
			continue
		}

		flow := matcher.MatchVerification(msg.Text, flows)
		if flow == nil {
			continue
		}

		following, err := j.api.IsUserFollowing(ctx, creds, msg.FromID)
		if err != nil {
			slog.Warn("follow check failed", "user_id", msg.FromID, "error", err)
			continue
		}

		flowID := flow.ID
		_, err = j.messages.Enqueue(ctx, &models.QueuedMessage{
			RecipientID: msg.FromID,
			Payload:     models.MessagePayload{Text: matcher.VerificationReply(flow, following)},
			Source:      models.MessageSourceDM,
			FlowID:      &flowID,
		})
		if err != nil {
			slog.Warn("failed to queue verification reply", "user_id", msg.FromID, "error", err)
			continue
		}
		slog.Info("verification keyword matched", "user_id", msg.FromID, "flow_id", flow.ID, "following", following)
	}
}
