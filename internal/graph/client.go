package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

const DefaultBaseURL = "https://graph.facebook.com/v18.0"

const (
	commentMediaLimit    = 10
	commentsPerMedia     = 5
	conversationLimit    = 10
	messagesPerThread    = 5
	ContainerFinished    = "FINISHED"
	ContainerError       = "ERROR"
	ContainerExpired     = "EXPIRED"
	ContainerInProgress  = "IN_PROGRESS"
	defaultHTTPTimeout   = 30 * time.Second
	defaultGetRetries    = 2
	defaultRetryBaseWait = 500 * time.Millisecond
	defaultRetryMaxWait  = 5 * time.Second
)

// Credentials authenticate every call made on behalf of an account.
type Credentials struct {
	Token      string
	BusinessID string
	PageID     string
}

// AccountCredentials builds the credentials of an account whose token is
// already decrypted.
func AccountCredentials(a *models.Account) Credentials {
	return Credentials{
		Token:      a.AccessToken,
		BusinessID: a.BusinessID,
		PageID:     a.PageID,
	}
}

// inboxID is the node that owns the account's conversations.
func (c Credentials) inboxID() string {
	if c.PageID != "" {
		return c.PageID
	}
	return c.BusinessID
}

// ContainerRequest describes one media container. MediaType is empty for
// single images and carousel items.
type ContainerRequest struct {
	MediaType      string
	ImageURL       string
	VideoURL       string
	Caption        string
	IsCarouselItem bool
	Children       []string
}

// API is the subset of the Graph API the automation engine talks to.
type API interface {
	ListRecentComments(ctx context.Context, creds Credentials) ([]models.CommentEvent, error)
	ListRecentMessages(ctx context.Context, creds Credentials) ([]models.InboxMessage, error)
	SendPrivateReply(ctx context.Context, creds Credentials, commentID, text string) error
	SendDirectMessage(ctx context.Context, creds Credentials, recipientID, text string) error
	IsUserFollowing(ctx context.Context, creds Credentials, userID string) (bool, error)
	ListMedia(ctx context.Context, creds Credentials, limit int) ([]transfer.GraphMedia, error)
	CreateContainer(ctx context.Context, creds Credentials, req ContainerRequest) (string, error)
	ContainerStatus(ctx context.Context, creds Credentials, containerID string) (string, error)
	PublishContainer(ctx context.Context, creds Credentials, containerID string) (string, error)
}

type response struct {
	status int
	body   []byte
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	getPolicy  retrypolicy.RetryPolicy[*response]
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		getPolicy:  newGetRetryPolicy(defaultGetRetries, defaultRetryBaseWait, defaultRetryMaxWait),
	}
}

// newGetRetryPolicy retries reads on network errors, 429 and 5xx.
func newGetRetryPolicy(retries int, base, max time.Duration) retrypolicy.RetryPolicy[*response] {
	return retrypolicy.NewBuilder[*response]().
		WithBackoff(base, max).
		WithMaxRetries(retries).
		WithJitterFactor(0.1).
		HandleIf(func(r *response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && (r.status == http.StatusTooManyRequests || r.status >= 500)
		}).
		Build()
}

var _ API = (*Client)(nil)

func (c *Client) ListRecentComments(ctx context.Context, creds Credentials) ([]models.CommentEvent, error) {
	params := url.Values{}
	params.Set("fields", fmt.Sprintf("id,comments.limit(%d){id,text,timestamp,username,from,media{id}}", commentsPerMedia))
	params.Set("limit", strconv.Itoa(commentMediaLimit))

	var out transfer.GraphMediaCommentsResponse
	if err := c.get(ctx, creds.Token, "/"+creds.BusinessID+"/media", params, &out); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	var events []models.CommentEvent
	for _, media := range out.Data {
		if media.Comments == nil {
			continue
		}
		for _, cm := range media.Comments.Data {
			event := models.CommentEvent{
				ID:           cm.ID,
				Text:         cm.Text,
				MediaID:      media.ID,
				FromUsername: cm.Username,
				Timestamp:    cm.Timestamp.Time,
			}
			if cm.Media != nil && cm.Media.ID != "" {
				event.MediaID = cm.Media.ID
			}
			if cm.From != nil {
				event.FromID = cm.From.ID
				if event.FromUsername == "" {
					event.FromUsername = cm.From.Username
				}
			}
			events = append(events, event)
		}
	}
	return events, nil
}

func (c *Client) ListRecentMessages(ctx context.Context, creds Credentials) ([]models.InboxMessage, error) {
	params := url.Values{}
	params.Set("platform", "instagram")
	params.Set("fields", fmt.Sprintf("messages.limit(%d){message,from,created_time}", messagesPerThread))
	params.Set("limit", strconv.Itoa(conversationLimit))

	var out transfer.GraphConversationsResponse
	if err := c.get(ctx, creds.Token, "/"+creds.inboxID()+"/conversations", params, &out); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	var messages []models.InboxMessage
	for _, conv := range out.Data {
		if conv.Messages == nil {
			continue
		}
		for _, m := range conv.Messages.Data {
			messages = append(messages, models.InboxMessage{
				ID:           m.ID,
				Text:         m.Message,
				FromID:       m.From.ID,
				FromUsername: m.From.Username,
				CreatedAt:    m.CreatedTime.Time,
			})
		}
	}
	return messages, nil
}

func (c *Client) SendPrivateReply(ctx context.Context, creds Credentials, commentID, text string) error {
	payload := map[string]interface{}{
		"message": text,
	}
	return c.post(ctx, creds.Token, "/"+commentID+"/private_replies", payload, nil)
}

func (c *Client) SendDirectMessage(ctx context.Context, creds Credentials, recipientID, text string) error {
	payload := map[string]interface{}{
		"recipient": map[string]string{"id": recipientID},
		"message":   map[string]string{"text": text},
	}
	return c.post(ctx, creds.Token, "/me/messages", payload, nil)
}

func (c *Client) IsUserFollowing(ctx context.Context, creds Credentials, userID string) (bool, error) {
	params := url.Values{}
	params.Set("fields", "is_user_follow_business")

	var out transfer.GraphFollowStatus
	if err := c.get(ctx, creds.Token, "/"+userID, params, &out); err != nil {
		return false, fmt.Errorf("follow check: %w", err)
	}
	return out.IsUserFollowBusiness, nil
}

func (c *Client) ListMedia(ctx context.Context, creds Credentials, limit int) ([]transfer.GraphMedia, error) {
	params := url.Values{}
	params.Set("fields", "id,caption,media_type,thumbnail_url,permalink,media_url")
	params.Set("limit", strconv.Itoa(limit))

	var out transfer.GraphMediaResponse
	if err := c.get(ctx, creds.Token, "/"+creds.BusinessID+"/media", params, &out); err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return out.Data, nil
}

func (c *Client) CreateContainer(ctx context.Context, creds Credentials, req ContainerRequest) (string, error) {
	payload := map[string]interface{}{}
	if req.MediaType != "" {
		payload["media_type"] = req.MediaType
	}
	if req.VideoURL != "" {
		payload["video_url"] = req.VideoURL
	}
	if req.ImageURL != "" {
		payload["image_url"] = req.ImageURL
	}
	if req.Caption != "" {
		payload["caption"] = req.Caption
	}
	if req.IsCarouselItem {
		payload["is_carousel_item"] = true
	}
	if len(req.Children) > 0 {
		payload["children"] = strings.Join(req.Children, ",")
	}

	var out transfer.GraphIDResponse
	if err := c.post(ctx, creds.Token, "/"+creds.BusinessID+"/media", payload, &out); err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("create container: no container id returned")
	}
	return out.ID, nil
}

func (c *Client) ContainerStatus(ctx context.Context, creds Credentials, containerID string) (string, error) {
	params := url.Values{}
	params.Set("fields", "status_code")

	var out transfer.GraphContainerStatus
	if err := c.get(ctx, creds.Token, "/"+containerID, params, &out); err != nil {
		return "", fmt.Errorf("container status: %w", err)
	}
	return out.StatusCode, nil
}

func (c *Client) PublishContainer(ctx context.Context, creds Credentials, containerID string) (string, error) {
	payload := map[string]interface{}{
		"creation_id": containerID,
	}

	var out transfer.GraphIDResponse
	if err := c.post(ctx, creds.Token, "/"+creds.BusinessID+"/media_publish", payload, &out); err != nil {
		return "", fmt.Errorf("publish container: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("publish container: no media id returned")
	}
	return out.ID, nil
}

// get runs a read through the retry policy. The last response wins, so an
// exhausted retry still surfaces the Graph error message.
func (c *Client) get(ctx context.Context, token, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if token != "" {
		params.Set("access_token", token)
	}
	endpoint := c.baseURL + path + "?" + params.Encode()

	var last *response
	_, err := failsafe.With[*response](c.getPolicy).WithContext(ctx).Get(func() (*response, error) {
		resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
		if resp != nil {
			last = resp
		}
		return resp, err
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if last == nil {
		return err
	}
	return decode(last, out)
}

func (c *Client) post(ctx context.Context, token, path string, payload map[string]interface{}, out any) error {
	if token != "" {
		payload["access_token"] = token
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	return &response{status: resp.StatusCode, body: respBody}, nil
}

func decode(r *response, out any) error {
	if r.status < 200 || r.status > 299 {
		apiErr := &APIError{StatusCode: r.status, Message: http.StatusText(r.status)}
		var envelope transfer.GraphErrorResponse
		if err := json.Unmarshal(r.body, &envelope); err == nil && envelope.Error.Message != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Subcode = envelope.Error.ErrorSubcode
			apiErr.Type = envelope.Error.Type
			apiErr.Message = envelope.Error.Message
			apiErr.Transient = envelope.Error.IsTransient
		}
		slog.Debug("graph api error", "status", r.status, "code", apiErr.Code, "message", apiErr.Message)
		return apiErr
	}
	if out == nil || len(r.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}
