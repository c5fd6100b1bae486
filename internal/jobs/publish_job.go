package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/dmflow/internal/graph"
	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/repository"
)

const (
	defaultPollTries  = 10
	defaultPollDelay  = 5 * time.Second
	defaultStaleAfter = 15 * time.Minute
)

// Enqueuer hands a claimed post to a background worker. claimToken names the
// claim the worker has to take before publishing.
type Enqueuer interface {
	EnqueuePublish(ctx context.Context, postID, accountID int64, claimToken string) error
}

type PublishOptions struct {
	PollTries  int
	PollDelay  time.Duration
	StaleAfter time.Duration
}

type PublishJob struct {
	accounts AccountSource
	posts    repository.ScheduledPostRepository
	flows    repository.FlowRepository
	api      graph.API
	queue    Enqueuer
	opts     PublishOptions

	mu  sync.Mutex
	now func() time.Time
}

// NewPublishJob builds the scheduler. A nil queue publishes claimed posts
// inline.
func NewPublishJob(
	accounts AccountSource,
	posts repository.ScheduledPostRepository,
	flows repository.FlowRepository,
	api graph.API,
	queue Enqueuer,
	opts PublishOptions) *PublishJob {
	if opts.PollTries <= 0 {
		opts.PollTries = defaultPollTries
	}
	if opts.PollDelay < 0 {
		opts.PollDelay = defaultPollDelay
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	return &PublishJob{
		accounts: accounts,
		posts:    posts,
		flows:    flows,
		api:      api,
		queue:    queue,
		opts:     opts,
		now:      time.Now,
	}
}

// RecoverStale puts posts stuck in PROCESSING back to PENDING.
func (j *PublishJob) RecoverStale(ctx context.Context) {
	n, err := j.posts.RecoverStale(ctx, j.now().Add(-j.opts.StaleAfter))
	if err != nil {
		slog.Warn("failed to recover stale posts", "error", err)
		return
	}
	if n > 0 {
		slog.Info("recovered stale posts", "count", n)
	}
}

// Run claims every due post and publishes it, or hands it to the queue.
func (j *PublishJob) Run(ctx context.Context) {
	if !j.mu.TryLock() {
		slog.Debug("publish tick still running, skipping")
		return
	}
	defer j.mu.Unlock()

	j.RecoverStale(ctx)

	account := activeAccount(ctx, j.accounts, "publish")
	if account == nil {
		return
	}
	if account.IsFallback() {
		slog.Debug("active account cannot publish, skipping", "account_id", account.ID)
		return
	}

	due, err := j.posts.ListDue(ctx, j.now())
	if err != nil {
		slog.Warn("failed to list due posts", "error", err)
		return
	}

	for _, post := range due {
		if ctx.Err() != nil {
			return
		}

		token, err := gonanoid.New()
		if err != nil {
			slog.Warn("failed to generate claim token", "post_id", post.ID, "error", err)
			continue
		}
		claimed, err := j.posts.Claim(ctx, post.ID, token)
		if err != nil {
			slog.Warn("failed to claim post", "post_id", post.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		post.Status = models.PostStatusProcessing

		if j.queue != nil {
			err := j.queue.EnqueuePublish(ctx, post.ID, account.ID, token)
			if err == nil {
				slog.Info("post handed to worker", "post_id", post.ID)
				continue
			}
			slog.Warn("failed to enqueue post, publishing inline", "post_id", post.ID, "error", err)
		}

		// a task that reached the queue despite the error finds the token gone
		taken, err := j.posts.Take(ctx, post.ID, token)
		if err != nil || !taken {
			slog.Warn("failed to take claimed post", "post_id", post.ID, "error", err)
			continue
		}
		j.PublishPost(ctx, post, account)
	}
}

// PublishByID publishes a post claimed earlier by Run. It serves the
// background worker and only proceeds when claimToken is still the post's
// current claim, so a redelivered task or one that waited past a stale
// recovery does nothing.
func (j *PublishJob) PublishByID(ctx context.Context, postID, accountID int64, claimToken string) error {
	found, err := j.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	post, ok := found.Get()
	if !ok {
		return fmt.Errorf("post %d: %w", postID, repository.ErrNotFound)
	}
	if post.Status != models.PostStatusProcessing {
		slog.Warn("post is not being processed, skipping", "post_id", postID, "status", post.Status)
		return nil
	}

	account, err := j.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}

	taken, err := j.posts.Take(ctx, postID, claimToken)
	if err != nil {
		return err
	}
	if !taken {
		slog.Warn("claim is no longer current, skipping", "post_id", postID)
		return nil
	}

	if !account.HasCredentials() {
		j.fail(ctx, post, errors.New("account has no credentials"))
		return nil
	}

	j.PublishPost(ctx, post, account)
	return nil
}

// PublishPost runs the container state machine for a claimed post. A
// cancelled context leaves the post in PROCESSING for the stale sweep.
func (j *PublishJob) PublishPost(ctx context.Context, post *models.ScheduledPost, account *models.Account) {
	creds := graph.AccountCredentials(account)

	for _, ref := range post.FileRefs {
		if err := graph.ValidatePublicURL(ref); err != nil {
			j.fail(ctx, post, err)
			return
		}
	}

	containerID, err := j.createContainer(ctx, creds, post)
	if err != nil {
		j.fail(ctx, post, err)
		return
	}

	status, err := j.waitForContainer(ctx, creds, containerID)
	if ctx.Err() != nil {
		slog.Warn("publish interrupted", "post_id", post.ID)
		return
	}
	if err != nil {
		j.fail(ctx, post, err)
		return
	}
	switch status {
	case graph.ContainerFinished:
	case graph.ContainerError, graph.ContainerExpired:
		j.fail(ctx, post, fmt.Errorf("container %s finished with status %s", containerID, status))
		return
	default:
		slog.Warn("container not finished after polling, publishing anyway",
			"post_id", post.ID, "container_id", containerID, "status", status)
	}

	mediaID, err := j.api.PublishContainer(ctx, creds, containerID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		j.fail(ctx, post, err)
		return
	}

	// the media is live; record it even if shutdown started meanwhile
	ctx = context.WithoutCancel(ctx)
	ok, err := j.posts.MarkPublished(ctx, post.ID, mediaID)
	if err != nil {
		slog.Error("failed to record published post", "post_id", post.ID, "media_id", mediaID, "error", err)
		return
	}
	if !ok {
		slog.Warn("post already finalised", "post_id", post.ID)
		return
	}
	slog.Info("post published", "post_id", post.ID, "media_id", mediaID)

	if post.LinkedFlowID == nil || *post.LinkedFlowID == "" {
		return
	}
	attached, err := j.flows.AttachMedia(ctx, *post.LinkedFlowID, mediaID)
	if err != nil {
		slog.Warn("failed to attach media to flow", "flow_id", *post.LinkedFlowID, "error", err)
		return
	}
	if !attached {
		slog.Warn("linked flow no longer exists", "flow_id", *post.LinkedFlowID, "post_id", post.ID)
	}
}

func (j *PublishJob) createContainer(ctx context.Context, creds graph.Credentials, post *models.ScheduledPost) (string, error) {
	if len(post.FileRefs) == 0 {
		return "", errors.New("post has no media")
	}
	first := post.FileRefs[0]

	switch post.MediaType {
	case models.MediaTypeReel:
		return j.api.CreateContainer(ctx, creds, graph.ContainerRequest{
			MediaType: "REELS",
			VideoURL:  first,
			Caption:   post.Caption,
		})
	case models.MediaTypeStory:
		req := graph.ContainerRequest{MediaType: "STORIES"}
		if isVideoRef(first) {
			req.VideoURL = first
		} else {
			req.ImageURL = first
		}
		return j.api.CreateContainer(ctx, creds, req)
	case models.MediaTypeImage:
		return j.api.CreateContainer(ctx, creds, graph.ContainerRequest{
			ImageURL: first,
			Caption:  post.Caption,
		})
	case models.MediaTypeCarousel:
		children := make([]string, 0, len(post.FileRefs))
		for _, ref := range post.FileRefs {
			req := graph.ContainerRequest{IsCarouselItem: true}
			if isVideoRef(ref) {
				req.MediaType = "VIDEO"
				req.VideoURL = ref
			} else {
				req.ImageURL = ref
			}
			id, err := j.api.CreateContainer(ctx, creds, req)
			if err != nil {
				return "", fmt.Errorf("carousel item %s: %w", ref, err)
			}
			children = append(children, id)
		}
		return j.api.CreateContainer(ctx, creds, graph.ContainerRequest{
			MediaType: "CAROUSEL",
			Caption:   post.Caption,
			Children:  children,
		})
	default:
		return "", fmt.Errorf("unsupported media type %q", post.MediaType)
	}
}

// waitForContainer polls until the container reaches a terminal status or
// the attempts run out, and returns the last status seen.
func (j *PublishJob) waitForContainer(ctx context.Context, creds graph.Credentials, containerID string) (string, error) {
	if err := wait(ctx, j.opts.PollDelay); err != nil {
		return "", err
	}

	builder := retrypolicy.NewBuilder[string]().
		HandleIf(func(status string, err error) bool {
			return err == nil && !terminalStatus(status)
		}).
		WithMaxAttempts(j.opts.PollTries)
	if j.opts.PollDelay > 0 {
		builder = builder.WithDelay(j.opts.PollDelay)
	}
	policy := builder.Build()

	var (
		last    string
		lastErr error
	)
	_, _ = failsafe.With[string](policy).WithContext(ctx).Get(func() (string, error) {
		status, err := j.api.ContainerStatus(ctx, creds, containerID)
		last, lastErr = status, err
		return status, err
	})
	if err := ctx.Err(); err != nil {
		return last, err
	}
	return last, lastErr
}

func (j *PublishJob) fail(ctx context.Context, post *models.ScheduledPost, cause error) {
	slog.Warn("post publish failed", "post_id", post.ID, "error", cause)
	ok, err := j.posts.MarkFailed(context.WithoutCancel(ctx), post.ID, cause.Error())
	if err != nil {
		slog.Error("failed to record failed post", "post_id", post.ID, "error", err)
		return
	}
	if !ok {
		slog.Warn("post already finalised", "post_id", post.ID)
	}
}

func terminalStatus(status string) bool {
	switch status {
	case graph.ContainerFinished, graph.ContainerError, graph.ContainerExpired:
		return true
	}
	return false
}

func isVideoRef(ref string) bool {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	return filetype.GetType(ext).MIME.Type == "video"
}
