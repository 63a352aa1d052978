// Package auth implements the OAuth one-time-code login flow on top of a
// session: Anonymous, then PendingVerification once a state token is
// issued, then Authenticated after a successful connect.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"

	"itemcatalog/internal/logger"
	"itemcatalog/internal/models"
	"itemcatalog/internal/session"
)

// Session keys written by the login flow.
const (
	KeyState       = "state"
	KeyAccessToken = "access_token"
	KeyProviderID  = "gplus_id"
	KeyUsername    = "username"
	KeyPicture     = "picture"
	KeyEmail       = "email"
)

var profileKeys = []string{KeyAccessToken, KeyProviderID, KeyUsername, KeyPicture, KeyEmail}

// Error is a login failure together with the HTTP status it maps to.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result is the outcome of a successful connect.
type Result struct {
	User             *models.User
	AlreadyConnected bool
}

// NewState generates an anti-forgery state token.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// BeginLogin stores a fresh state token in the session and returns it.
func BeginLogin(s *session.Session) (string, error) {
	state, err := NewState()
	if err != nil {
		return "", err
	}
	s.Set(KeyState, state)
	return state, nil
}

// Connect upgrades a one-time code into a signed-in session. The session is
// left untouched unless the state token matches.
func Connect(ctx context.Context, p Provider, s *session.Session, state, code string) (*Result, error) {
	expected := s.Get(KeyState)
	if state == "" || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		return nil, &Error{Status: http.StatusUnauthorized, Message: "Invalid state parameter."}
	}

	creds, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, &Error{Status: http.StatusUnauthorized, Message: "Failed to upgrade the authorization code.", Err: err}
	}

	info, err := p.TokenInfo(ctx, creds.AccessToken)
	if err != nil {
		return nil, &Error{Status: http.StatusInternalServerError, Message: "Failed to verify the access token.", Err: err}
	}
	if info.Error != "" {
		return nil, &Error{Status: http.StatusInternalServerError, Message: info.Error}
	}

	if info.UserID == "" || info.UserID != creds.Subject {
		return nil, &Error{Status: http.StatusUnauthorized, Message: "Token's user ID doesn't match given user ID."}
	}

	if info.IssuedTo != p.ClientID() {
		return nil, &Error{Status: http.StatusUnauthorized, Message: "Token's client ID does not match app's."}
	}

	if s.Get(KeyAccessToken) != "" && s.Get(KeyProviderID) == creds.Subject {
		s.Delete(KeyState)
		return &Result{User: CurrentUser(s), AlreadyConnected: true}, nil
	}

	user, err := p.UserInfo(ctx, creds.AccessToken)
	if err != nil {
		return nil, &Error{Status: http.StatusInternalServerError, Message: "Failed to fetch the user profile.", Err: err}
	}
	user.ProviderID = creds.Subject
	if user.Username == "" {
		user.Username = user.Email
	}

	s.Delete(KeyState)
	s.Set(KeyAccessToken, creds.AccessToken)
	s.Set(KeyProviderID, user.ProviderID)
	s.Set(KeyUsername, user.Username)
	s.Set(KeyPicture, user.Picture)
	s.Set(KeyEmail, user.Email)

	logger.Info("User connected", "gplus_id", user.ProviderID, "email", user.Email)
	return &Result{User: user}, nil
}

// Disconnect revokes the access token and drops the profile from the
// session. It reports false when nobody was connected. Revocation is best
// effort: the session is cleared even if the provider call fails.
func Disconnect(ctx context.Context, p Provider, s *session.Session) bool {
	token := s.Get(KeyAccessToken)
	if token == "" {
		return false
	}

	if err := p.Revoke(ctx, token); err != nil {
		logger.Warn("Failed to revoke token", "error", err)
	}

	s.Delete(profileKeys...)
	return true
}

// CurrentUser returns the signed-in profile or nil.
func CurrentUser(s *session.Session) *models.User {
	if !IsLoggedIn(s) {
		return nil
	}
	return &models.User{
		ProviderID: s.Get(KeyProviderID),
		Username:   s.Get(KeyUsername),
		Email:      s.Get(KeyEmail),
		Picture:    s.Get(KeyPicture),
	}
}

func IsLoggedIn(s *session.Session) bool {
	return s.Get(KeyUsername) != ""
}
