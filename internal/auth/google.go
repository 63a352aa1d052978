package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"itemcatalog/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleTokenInfoURL = "https://www.googleapis.com/oauth2/v1/tokeninfo"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v1/userinfo"
	googleRevokeURL    = "https://accounts.google.com/o/oauth2/revoke"
)

// Credentials are the result of upgrading a one-time code.
type Credentials struct {
	AccessToken string
	// Subject is the account id carried by the id token.
	Subject string
}

// TokenInfo is what the provider reports about an access token.
type TokenInfo struct {
	UserID   string
	IssuedTo string
	Error    string
}

// Provider is the OAuth identity provider used by the login flow.
type Provider interface {
	ClientID() string
	Exchange(ctx context.Context, code string) (*Credentials, error)
	TokenInfo(ctx context.Context, accessToken string) (*TokenInfo, error)
	UserInfo(ctx context.Context, accessToken string) (*models.User, error)
	Revoke(ctx context.Context, accessToken string) error
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string

	// Endpoint overrides, empty means Google's production endpoints.
	TokenURL     string
	TokenInfoURL string
	UserInfoURL  string
	RevokeURL    string

	HTTPClient *http.Client
}

type Google struct {
	oauth        *oauth2.Config
	tokenInfoURL string
	userInfoURL  string
	revokeURL    string
	client       *http.Client
}

func NewGoogle(cfg GoogleConfig) *Google {
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			// one-time codes from the JavaScript sign-in button
			RedirectURL: "postmessage",
			Scopes:      []string{"openid", "profile", "email"},
		},
		tokenInfoURL: orDefault(cfg.TokenInfoURL, googleTokenInfoURL),
		userInfoURL:  orDefault(cfg.UserInfoURL, googleUserInfoURL),
		revokeURL:    orDefault(cfg.RevokeURL, googleRevokeURL),
		client:       client,
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// LoadClientSecrets reads the client id and secret from a client_secrets.json
// file as downloaded from the Google developer console.
func LoadClientSecrets(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read client secrets: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return "", "", fmt.Errorf("client secrets file %s is not valid JSON", path)
	}

	clientID = gjson.GetBytes(data, "web.client_id").String()
	clientSecret = gjson.GetBytes(data, "web.client_secret").String()
	if clientID == "" {
		return "", "", fmt.Errorf("client secrets file %s has no web.client_id", path)
	}

	return clientID, clientSecret, nil
}

func (g *Google) ClientID() string {
	return g.oauth.ClientID
}

func (g *Google) Exchange(ctx context.Context, code string) (*Credentials, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	// the id token comes straight from the token endpoint; its signature is
	// not checked here, tokeninfo verifies the access token instead
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, errors.New("token response has no id_token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token: %w", err)
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, errors.New("id token has no subject")
	}

	return &Credentials{AccessToken: token.AccessToken, Subject: subject}, nil
}

func (g *Google) TokenInfo(ctx context.Context, accessToken string) (*TokenInfo, error) {
	body, _, err := g.get(ctx, g.tokenInfoURL, url.Values{"access_token": {accessToken}})
	if err != nil {
		return nil, err
	}

	result := gjson.ParseBytes(body)
	return &TokenInfo{
		UserID:   result.Get("user_id").String(),
		IssuedTo: result.Get("issued_to").String(),
		Error:    result.Get("error").String(),
	}, nil
}

func (g *Google) UserInfo(ctx context.Context, accessToken string) (*models.User, error) {
	body, status, err := g.get(ctx, g.userInfoURL, url.Values{"access_token": {accessToken}, "alt": {"json"}})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", status)
	}

	result := gjson.ParseBytes(body)
	return &models.User{
		ProviderID: result.Get("id").String(),
		Username:   result.Get("name").String(),
		Email:      result.Get("email").String(),
		Picture:    result.Get("picture").String(),
	}, nil
}

func (g *Google) Revoke(ctx context.Context, accessToken string) error {
	_, status, err := g.get(ctx, g.revokeURL, url.Values{"token": {accessToken}})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("failed to revoke token: status %d", status)
	}
	return nil
}

func (g *Google) get(ctx context.Context, endpoint string, params url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
