package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoogleServer(t *testing.T) *httptest.Server {
	t.Helper()

	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "108"}).
		SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "a@example.com"}).
		SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch r.PostForm.Get("code") {
		case "code-without-id-token":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"ya29.token","token_type":"Bearer","expires_in":3600}`))
			return
		case "code-without-subject":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "ya29.token",
				"token_type":   "Bearer",
				"expires_in":   3600,
				"id_token":     noSubject,
			})
			return
		}
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		assert.Equal(t, "postmessage", r.PostForm.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "ya29.token",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	})
	mux.HandleFunc("/tokeninfo", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "ya29.token" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_token"}`))
			return
		}
		w.Write([]byte(`{"user_id":"108","issued_to":"client-1","expires_in":3599}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"108","name":"Alice","email":"alice@example.com","picture":"https://example.com/a.png"}`))
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "ya29.token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(srv *httptest.Server) *Google {
	return NewGoogle(GoogleConfig{
		ClientID:     "client-1",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
		TokenInfoURL: srv.URL + "/tokeninfo",
		UserInfoURL:  srv.URL + "/userinfo",
		RevokeURL:    srv.URL + "/revoke",
		HTTPClient:   srv.Client(),
	})
}

func TestGoogleExchange(t *testing.T) {
	g := newTestGoogle(newGoogleServer(t))

	creds, err := g.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, &Credentials{AccessToken: "ya29.token", Subject: "108"}, creds)

	_, err = g.Exchange(context.Background(), "bad-code")
	assert.Error(t, err)
}

func TestGoogleExchangeRequiresSubject(t *testing.T) {
	g := newTestGoogle(newGoogleServer(t))

	_, err := g.Exchange(context.Background(), "code-without-id-token")
	assert.ErrorContains(t, err, "no id_token")

	_, err = g.Exchange(context.Background(), "code-without-subject")
	assert.ErrorContains(t, err, "no subject")
}

func TestGoogleTokenInfo(t *testing.T) {
	g := newTestGoogle(newGoogleServer(t))

	info, err := g.TokenInfo(context.Background(), "ya29.token")
	require.NoError(t, err)
	assert.Equal(t, &TokenInfo{UserID: "108", IssuedTo: "client-1"}, info)

	info, err = g.TokenInfo(context.Background(), "expired")
	require.NoError(t, err)
	assert.Equal(t, "invalid_token", info.Error)
}

func TestGoogleUserInfo(t *testing.T) {
	g := newTestGoogle(newGoogleServer(t))

	user, err := g.UserInfo(context.Background(), "ya29.token")
	require.NoError(t, err)
	assert.Equal(t, "108", user.ProviderID)
	assert.Equal(t, "Alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "https://example.com/a.png", user.Picture)
}

func TestGoogleRevoke(t *testing.T) {
	g := newTestGoogle(newGoogleServer(t))

	assert.NoError(t, g.Revoke(context.Background(), "ya29.token"))
	assert.Error(t, g.Revoke(context.Background(), "unknown"))
}

func TestGoogleFullConnect(t *testing.T) {
	g := newTestGoogle(newGoogleServer(t))
	s, state := pendingSession(t)

	result, err := Connect(context.Background(), g, s, state, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "Alice", result.User.Username)
	assert.Equal(t, "108", s.Get(KeyProviderID))
}

func TestLoadClientSecrets(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "client_secrets.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{"web":{"client_id":"abc.apps.googleusercontent.com","client_secret":"shh"}}`), 0o600))

	id, secret, err := LoadClientSecrets(valid)
	require.NoError(t, err)
	assert.Equal(t, "abc.apps.googleusercontent.com", id)
	assert.Equal(t, "shh", secret)

	missingID := filepath.Join(dir, "installed.json")
	require.NoError(t, os.WriteFile(missingID, []byte(`{"installed":{"client_id":"x"}}`), 0o600))
	_, _, err = LoadClientSecrets(missingID)
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{not json`), 0o600))
	_, _, err = LoadClientSecrets(broken)
	assert.Error(t, err)

	_, _, err = LoadClientSecrets(filepath.Join(dir, "nope.json"))
	assert.Error(t, err)
}
