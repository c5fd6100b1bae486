package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/repository"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

// publishAtLayout is what a datetime-local form field submits.
const publishAtLayout = "2006-01-02T15:04"

const maxCarouselItems = 10

type PostService interface {
	Schedule(ctx context.Context, in *transfer.PostCreation) (*models.ScheduledPost, error)
	List(ctx context.Context, from, to string) ([]*models.ScheduledPost, error)
	Update(ctx context.Context, in *transfer.PostUpdate) error
	Remove(ctx context.Context, id int64) error
}

type postService struct {
	pr       repository.ScheduledPostRepository
	uploader MediaUploader
}

// NewPostService builds the scheduling service. uploader may be nil, in which
// case local file references are stored as they are.
func NewPostService(pr repository.ScheduledPostRepository, uploader MediaUploader) PostService {
	return &postService{
		pr:       pr,
		uploader: uploader,
	}
}

func (s *postService) Schedule(ctx context.Context, in *transfer.PostCreation) (*models.ScheduledPost, error) {
	if in == nil {
		return nil, invalid("post creation data is nil")
	}

	mediaType := models.MediaType(strings.ToUpper(strings.TrimSpace(in.MediaType)))
	if mediaType == "" {
		mediaType = models.MediaTypeReel
	}
	if !mediaType.Valid() {
		return nil, invalid(fmt.Sprintf("unknown media type %q", in.MediaType))
	}

	publishAt, err := parsePublishAt(in.PublishAt)
	if err != nil {
		return nil, err
	}

	refs, err := cleanRefs(in.FileRefs)
	if err != nil {
		return nil, err
	}
	if err := checkRefCount(mediaType, len(refs)); err != nil {
		return nil, err
	}

	for i, ref := range refs {
		staged, err := s.stage(ctx, mediaType, ref)
		if err != nil {
			return nil, err
		}
		refs[i] = staged
	}

	post := &models.ScheduledPost{
		FileRefs:  refs,
		Caption:   in.Caption,
		MediaType: mediaType,
		PublishAt: publishAt,
	}
	if flowID := strings.TrimSpace(in.LinkedFlowID); flowID != "" {
		post.LinkedFlowID = &flowID
	}

	if _, err := s.pr.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	slog.Info("post scheduled", "post_id", post.ID, "media_type", post.MediaType, "publish_at", post.PublishAt)
	return post, nil
}

// stage checks the file kind against the media type and, when an uploader is
// configured, replaces a local path by the public URL of its uploaded copy.
func (s *postService) stage(ctx context.Context, mediaType models.MediaType, ref string) (string, error) {
	remote := isRemoteRef(ref)

	kind := filetype.GetType(refExtension(ref))
	if kind == types.Unknown {
		if !remote {
			return "", invalid(fmt.Sprintf("unsupported file type for %q", ref))
		}
	} else if !kindAllowed(mediaType, kind) {
		return "", invalid(fmt.Sprintf("file %q is not allowed for %s posts", ref, mediaType))
	}

	if remote || s.uploader == nil {
		return ref, nil
	}

	file, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("error reading file content: %w", err)
	}
	match, err := filetype.Match(file)
	if err != nil || match == types.Unknown {
		return "", invalid(fmt.Sprintf("unsupported file type for %q", ref))
	}
	if !kindAllowed(mediaType, match) {
		return "", invalid(fmt.Sprintf("file %q is not allowed for %s posts", ref, mediaType))
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	publicURL, err := s.uploader.Upload(ctx, id+"."+match.Extension, file, match.MIME.Value)
	if err != nil {
		return "", fmt.Errorf("error uploading file: %w", err)
	}
	return publicURL, nil
}

func (s *postService) List(ctx context.Context, from, to string) ([]*models.ScheduledPost, error) {
	if from == "" || to == "" {
		return s.pr.ListBetween(ctx, nil, nil)
	}
	start, err := parsePublishAt(from)
	if err != nil {
		return nil, err
	}
	end, err := parsePublishAt(to)
	if err != nil {
		return nil, err
	}
	return s.pr.ListBetween(ctx, &start, &end)
}

func (s *postService) Update(ctx context.Context, in *transfer.PostUpdate) error {
	if in == nil || in.ID == 0 {
		return invalid("post id is not valid")
	}
	publishAt, err := parsePublishAt(in.PublishAt)
	if err != nil {
		return err
	}

	post := &models.ScheduledPost{
		ID:        in.ID,
		Caption:   in.Caption,
		PublishAt: publishAt,
	}
	if in.LinkedFlowID != nil {
		if flowID := strings.TrimSpace(*in.LinkedFlowID); flowID != "" {
			post.LinkedFlowID = &flowID
		}
	} else {
		existing, err := s.pr.GetByID(ctx, in.ID)
		if err != nil {
			return err
		}
		stored, found := existing.Get()
		if !found {
			return fmt.Errorf("post %d: %w", in.ID, repository.ErrNotFound)
		}
		post.LinkedFlowID = stored.LinkedFlowID
	}

	ok, err := s.pr.UpdatePending(ctx, post)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	existing, err := s.pr.GetByID(ctx, in.ID)
	if err != nil {
		return err
	}
	if existing.IsAbsent() {
		return fmt.Errorf("post %d: %w", in.ID, repository.ErrNotFound)
	}
	return ErrPostNotPending
}

func (s *postService) Remove(ctx context.Context, id int64) error {
	if id == 0 {
		return invalid("post id is not valid")
	}
	ok, err := s.pr.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("post %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func invalid(msg string) error {
	err := fmt.Errorf("%w: %s", ErrInvalidInput, msg)
	slog.Info(err.Error())
	return err
}

func parsePublishAt(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(publishAtLayout, value, time.Local); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if unix, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, invalid(fmt.Sprintf("invalid publish time %q", value))
}

func cleanRefs(in []string) (models.FileRefs, error) {
	refs := make(models.FileRefs, 0, len(in))
	for _, ref := range in {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil, invalid("no files provided for the post")
	}
	return refs, nil
}

func checkRefCount(mediaType models.MediaType, n int) error {
	switch mediaType {
	case models.MediaTypeCarousel:
		if n < 2 || n > maxCarouselItems {
			return invalid(fmt.Sprintf("carousel needs 2 to %d files, got %d", maxCarouselItems, n))
		}
	default:
		if n != 1 {
			return invalid(fmt.Sprintf("%s posts take exactly one file, got %d", mediaType, n))
		}
	}
	return nil
}

func kindAllowed(mediaType models.MediaType, kind types.Type) bool {
	switch mediaType {
	case models.MediaTypeReel:
		return kind.MIME.Type == "video"
	case models.MediaTypeImage:
		return kind.MIME.Type == "image"
	default:
		return kind.MIME.Type == "video" || kind.MIME.Type == "image"
	}
}

func isRemoteRef(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func refExtension(ref string) string {
	path := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Path != "" {
		path = u.Path
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "jpeg" {
		ext = "jpg"
	}
	return ext
}
