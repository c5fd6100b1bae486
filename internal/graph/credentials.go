package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/maheshrc27/dmflow/internal/transfer"
)

const dialogURL = "https://www.facebook.com/v18.0/dialog/oauth"

var oauthScopes = []string{
	"instagram_basic",
	"instagram_manage_comments",
	"instagram_manage_messages",
	"instagram_content_publish",
	"pages_show_list",
	"pages_read_engagement",
	"pages_manage_metadata",
	"business_management",
}

// LinkedAccount is a Facebook page together with its Instagram business
// account, when one is linked.
type LinkedAccount struct {
	PageID     string
	BusinessID string
	Name       string
	PictureURL string
}

// CredentialProvider turns an authorization code or a user token into the
// long-lived token and linked accounts the engine runs with.
type CredentialProvider struct {
	oauth     *oauth2.Config
	client    *Client
	appID     string
	appSecret string
}

func NewCredentialProvider(appID, appSecret, redirectURI string, client *Client) *CredentialProvider {
	return &CredentialProvider{
		oauth: &oauth2.Config{
			ClientID:     appID,
			ClientSecret: appSecret,
			RedirectURL:  redirectURI,
			Scopes:       oauthScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   dialogURL,
				TokenURL:  client.baseURL + "/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client:    client,
		appID:     appID,
		appSecret: appSecret,
	}
}

func (p *CredentialProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a long-lived user token.
func (p *CredentialProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", errors.New("authorization code is empty")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client.httpClient)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to get short-lived token: %w", err)
	}

	return p.ExtendToken(ctx, token.AccessToken)
}

// ExtendToken exchanges a short-lived user token for a long-lived one. When
// the app credentials are not configured the token is returned unchanged.
func (p *CredentialProvider) ExtendToken(ctx context.Context, shortLived string) (string, error) {
	if p.appID == "" || p.appSecret == "" {
		return shortLived, nil
	}

	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", p.appID)
	params.Set("client_secret", p.appSecret)
	params.Set("fb_exchange_token", shortLived)

	var out transfer.GraphTokenResponse
	if err := p.client.get(ctx, "", "/oauth/access_token", params, &out); err != nil {
		return "", fmt.Errorf("failed to get long-lived token: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("failed to get long-lived token: empty token")
	}
	return out.AccessToken, nil
}

// FetchLinkedAccounts lists the pages the token can manage.
func (p *CredentialProvider) FetchLinkedAccounts(ctx context.Context, token string) ([]LinkedAccount, error) {
	params := url.Values{}
	params.Set("fields", "id,name,picture,instagram_business_account")

	var out transfer.GraphPagesResponse
	if err := p.client.get(ctx, strings.TrimSpace(token), "/me/accounts", params, &out); err != nil {
		return nil, fmt.Errorf("fetch linked accounts: %w", err)
	}

	accounts := make([]LinkedAccount, 0, len(out.Data))
	for _, page := range out.Data {
		acc := LinkedAccount{
			PageID:     page.ID,
			Name:       page.Name,
			PictureURL: page.Picture.Data.URL,
		}
		if page.InstagramBusinessAccount != nil {
			acc.BusinessID = page.InstagramBusinessAccount.ID
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}
