// Package session keeps per-browser state between requests: the signed-in
// profile, the login state token, the CSRF token and flash messages.
package session

import (
	"net/http"
	"time"
)

const CookieName = "catalog_session"

type Session struct {
	// ID identifies server-side sessions. Cookie sessions leave it empty.
	ID      string
	Values  map[string]string
	Flashes []string

	changed    bool
	previousID string
}

func New() *Session {
	return &Session{Values: map[string]string{}}
}

func (s *Session) Get(key string) string {
	return s.Values[key]
}

func (s *Session) Has(key string) bool {
	_, ok := s.Values[key]
	return ok
}

func (s *Session) Set(key, value string) {
	if s.Values == nil {
		s.Values = map[string]string{}
	}
	s.Values[key] = value
	s.changed = true
}

func (s *Session) Delete(keys ...string) {
	for _, key := range keys {
		if _, ok := s.Values[key]; ok {
			delete(s.Values, key)
			s.changed = true
		}
	}
}

// Clear drops every value and pending flash.
func (s *Session) Clear() {
	s.Values = map[string]string{}
	s.Flashes = nil
	s.changed = true
}

// Renew drops the server-side id so the next save issues a new one. Call it
// whenever the signed-in identity changes.
func (s *Session) Renew() {
	if s.ID != "" {
		s.previousID = s.ID
	}
	s.ID = ""
	s.changed = true
}

// PreviousID is the id the session had before Renew, if any. Stores delete
// the data kept under it when saving.
func (s *Session) PreviousID() string {
	return s.previousID
}

func (s *Session) AddFlash(message string) {
	s.Flashes = append(s.Flashes, message)
	s.changed = true
}

// PopFlashes returns pending flash messages and removes them.
func (s *Session) PopFlashes() []string {
	flashes := s.Flashes
	if len(flashes) > 0 {
		s.Flashes = nil
		s.changed = true
	}
	return flashes
}

// Changed reports whether the session was modified since it was loaded.
func (s *Session) Changed() bool {
	return s.changed
}

// Store loads sessions from requests and persists them into responses.
// Load never fails on a missing, expired or tampered cookie: the caller gets
// a fresh session instead.
type Store interface {
	Load(r *http.Request) (*Session, error)
	Save(w http.ResponseWriter, r *http.Request, s *Session) error
}

func setCookie(w http.ResponseWriter, value string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
