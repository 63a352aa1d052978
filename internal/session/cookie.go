package session

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

type cookieClaims struct {
	Values  map[string]string `json:"v,omitempty"`
	Flashes []string          `json:"f,omitempty"`
	jwt.RegisteredClaims
}

// CookieStore keeps the whole session in an HS256-signed token stored in
// the session cookie.
type CookieStore struct {
	key    []byte
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

func NewCookieStore(secret string, maxAge time.Duration, secure bool) (*CookieStore, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}

	return &CookieStore{
		key:    key,
		maxAge: maxAge,
		secure: secure,
		now:    time.Now,
	}, nil
}

// deriveKey expands the configured secret into the session signing key.
func deriveKey(secret string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("itemcatalog session signing"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return key, nil
}

func (cs *CookieStore) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return New(), nil
	}

	claims := &cookieClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims,
		func(token *jwt.Token) (interface{}, error) {
			return cs.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(cs.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return New(), nil
	}

	s := New()
	for k, v := range claims.Values {
		s.Values[k] = v
	}
	s.Flashes = claims.Flashes
	return s, nil
}

func (cs *CookieStore) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	now := cs.now()
	claims := cookieClaims{
		Values:  s.Values,
		Flashes: s.Flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cs.maxAge)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cs.key)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	setCookie(w, signed, cs.maxAge, cs.secure)
	s.changed = false
	return nil
}
