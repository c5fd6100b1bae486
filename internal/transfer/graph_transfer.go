package transfer

import (
	"strings"
	"time"
)

// graphTimeLayout is the timestamp format of the Graph API ("+0000" offset
// without a colon).
const graphTimeLayout = "2006-01-02T15:04:05-0700"

type GraphTime struct {
	time.Time
}

func (t *GraphTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := time.Parse(graphTimeLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
	}
	t.Time = parsed.UTC()
	return nil
}

type GraphTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type GraphPage struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
	InstagramBusinessAccount *struct {
		ID string `json:"id"`
	} `json:"instagram_business_account"`
}

type GraphPagesResponse struct {
	Data []GraphPage `json:"data"`
}

type GraphComment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp GraphTime `json:"timestamp"`
	Username  string    `json:"username"`
	From      *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
	Media *struct {
		ID string `json:"id"`
	} `json:"media"`
}

type GraphMediaWithComments struct {
	ID       string `json:"id"`
	Comments *struct {
		Data []GraphComment `json:"data"`
	} `json:"comments"`
}

type GraphMediaCommentsResponse struct {
	Data []GraphMediaWithComments `json:"data"`
}

type GraphMessage struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	CreatedTime GraphTime `json:"created_time"`
	From        struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
}

type GraphConversation struct {
	ID       string `json:"id"`
	Messages *struct {
		Data []GraphMessage `json:"data"`
	} `json:"messages"`
}

type GraphConversationsResponse struct {
	Data []GraphConversation `json:"data"`
}

type GraphMedia struct {
	ID           string `json:"id"`
	Caption      string `json:"caption"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Permalink    string `json:"permalink"`
}

type GraphMediaResponse struct {
	Data []GraphMedia `json:"data"`
}

type GraphIDResponse struct {
	ID string `json:"id"`
}

type GraphContainerStatus struct {
	StatusCode string `json:"status_code"`
}

type GraphFollowStatus struct {
	IsUserFollowBusiness bool `json:"is_user_follow_business"`
}

type GraphErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}
