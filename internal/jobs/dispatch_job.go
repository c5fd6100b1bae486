package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/dmflow/internal/graph"
	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/repository"
)

const defaultDispatchBatch = 5

// DispatchJob sends queued messages and records the outcome of each send.
type DispatchJob struct {
	accounts  AccountSource
	settings  SettingsSource
	messages  repository.MessageRepository
	api       graph.API
	batchSize int

	mu sync.Mutex
}

func NewDispatchJob(
	accounts AccountSource,
	settings SettingsSource,
	messages repository.MessageRepository,
	api graph.API,
	batchSize int) *DispatchJob {
	if batchSize <= 0 {
		batchSize = defaultDispatchBatch
	}
	return &DispatchJob{
		accounts:  accounts,
		settings:  settings,
		messages:  messages,
		api:       api,
		batchSize: batchSize,
	}
}

// Run sends one batch. A pass that finds another pass in flight returns
// immediately.
func (j *DispatchJob) Run(ctx context.Context) {
	if !j.mu.TryLock() {
		slog.Debug("dispatch pass already running, skipping")
		return
	}
	defer j.mu.Unlock()

	account := activeAccount(ctx, j.accounts, "dispatch")
	if account == nil || account.IsFallback() {
		return
	}

	settings, err := j.settings.Settings(ctx)
	if err != nil {
		slog.Warn("failed to read settings", "job", "dispatch", "error", err)
		return
	}
	if settings.AutomationsPaused {
		slog.Debug("automations paused, skipping dispatch")
		return
	}

	j.dispatch(ctx, graph.AccountCredentials(account), time.Duration(settings.ReplyDelaySeconds)*time.Second)
}

func (j *DispatchJob) dispatch(ctx context.Context, creds graph.Credentials, delay time.Duration) {
	pending, err := j.messages.ListPending(ctx, j.batchSize)
	if err != nil {
		slog.Warn("failed to list pending messages", "error", err)
		return
	}

	for i, msg := range pending {
		if i > 0 {
			if err := wait(ctx, delay); err != nil {
				return
			}
		}

		err := j.send(ctx, creds, msg)
		if err != nil && ctx.Err() != nil {
			// shutting down mid-send: the message stays PENDING
			return
		}
		j.finalise(ctx, msg, err)
	}
}

func (j *DispatchJob) send(ctx context.Context, creds graph.Credentials, msg *models.QueuedMessage) error {
	text := msg.Payload.Text
	if text == "" {
		return errors.New("message has no text")
	}

	switch msg.Source {
	case models.MessageSourceComment:
		return j.api.SendPrivateReply(ctx, creds, msg.RecipientID, text)
	case models.MessageSourceDM:
		return j.api.SendDirectMessage(ctx, creds, msg.RecipientID, text)
	default:
		return fmt.Errorf("unknown message source %q", msg.Source)
	}
}

// finalise records the outcome even when ctx was cancelled after the send.
func (j *DispatchJob) finalise(ctx context.Context, msg *models.QueuedMessage, sendErr error) {
	ctx = context.WithoutCancel(ctx)
	var (
		ok  bool
		err error
	)
	if sendErr == nil {
		ok, err = j.messages.MarkSent(ctx, msg.ID, time.Now())
	} else {
		slog.Warn("message send failed", "message_id", msg.ID, "source", msg.Source, "error", sendErr)
		ok, err = j.messages.MarkFailed(ctx, msg.ID, sendErr.Error())
	}

	if err != nil {
		slog.Error("failed to record message outcome", "message_id", msg.ID, "error", err)
		return
	}
	if !ok {
		slog.Warn("message already finalised", "message_id", msg.ID)
		return
	}
	if sendErr == nil {
		slog.Info("message sent", "message_id", msg.ID, "source", msg.Source)
	}
}
